package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jscomlabs/contactd/internal/filter"
	"github.com/jscomlabs/contactd/internal/listener"
	"github.com/jscomlabs/contactd/internal/notifier"
	"github.com/jscomlabs/contactd/internal/notify"
	"github.com/jscomlabs/contactd/internal/server"
	"github.com/jscomlabs/contactd/internal/server/handler"
	"github.com/jscomlabs/contactd/internal/server/ws"
)

// ListenerMode serves the public submission endpoint and publishes accepted
// submissions to the intake stream. No stores and no admin API.
func (a *App) ListenerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting listener mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, true, false)
	return g.Wait()
}

// FilterMode consumes the intake stream, archives and optionally classifies
// messages, and forwards non-blocked messages to the notify stream.
func (a *App) FilterMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting filter mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startFilter(ctx, g, deps)
	return g.Wait()
}

// NotifierMode consumes the notify stream and fans each message out to the
// enabled notification channels.
func (a *App) NotifierMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting notifier mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startNotifier(ctx, g, deps)
	return g.Wait()
}

// AdminMode serves the authenticated admin API and the live event feed. It
// does not accept public submissions or consume queues.
func (a *App) AdminMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting admin mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, false, true)
	return g.Wait()
}

// FullMode runs every stage in a single process: the public listener, the
// filter and notifier consumers, and the admin API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startFilter(ctx, g, deps)
	a.startNotifier(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, true, true)
	return g.Wait()
}

// startFilter adds the filter stage consumer to the errgroup.
func (a *App) startFilter(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	opts := filter.Options{
		EventChannel: a.cfg.Queues.EventChannel,
		ReclaimIdle:  a.cfg.Queues.ReclaimIdle.Duration,
		Events:       deps.Events,
	}
	if deps.Classifier != nil {
		opts.Classifier = deps.Classifier
	}
	if deps.Archiver != nil {
		opts.Archiver = deps.Archiver
	}

	svc := filter.New(deps.IntakeQueue, deps.NotifyQueue, deps.Messages, deps.Blocklist, opts, a.logger)
	g.Go(func() error {
		return svc.Run(ctx)
	})
}

// startNotifier adds the notifier stage consumer to the errgroup.
func (a *App) startNotifier(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	dispatcher := notify.NewDispatcher(deps.Channels, a.logger)
	svc := notifier.New(deps.NotifyQueue, dispatcher, a.cfg.Queues.ReclaimIdle.Duration, a.logger)
	g.Go(func() error {
		return svc.Run(ctx)
	})
}

// startHTTPServer adds the HTTP server goroutine to the given errgroup,
// registering the public intake endpoint and/or the admin API depending on
// the mode. The server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, withIntake, withAdmin bool) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
	}

	if withIntake {
		handlers.Contact = listener.NewHandler(deps.Verifier, deps.IntakeQueue, a.logger)
	}

	var hub *ws.Hub
	if withAdmin {
		handlers.Messages = handler.NewMessageHandler(deps.Messages, a.logger)
		handlers.Blocked = handler.NewBlockedHandler(deps.Blocklist, a.logger)

		var exporter handler.MessageExporter
		if deps.Archiver != nil {
			exporter = deps.Archiver
		}
		handlers.Export = handler.NewExportHandler(deps.Messages, exporter, a.logger)

		if deps.Events != nil {
			hub = ws.NewHub(deps.Events, a.cfg.Queues.EventChannel, a.logger)
			g.Go(func() error {
				return hub.Run(ctx)
			})
		}
	}

	srvCfg := server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Admin.APIKey,
	}
	if deps.JWT != nil {
		srvCfg.JWTVerifier = deps.JWT
	}

	srv := server.NewServer(srvCfg, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.InfoContext(ctx, "HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})
}
