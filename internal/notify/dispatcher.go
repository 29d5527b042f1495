package notify

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jscomlabs/contactd/internal/domain"
)

// Dispatcher fans one envelope out to every enabled channel and aggregates
// the per-channel results. The channel list is fixed at construction; the
// enabled subset is re-evaluated on every dispatch.
type Dispatcher struct {
	channels []Channel
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given channels.
func NewDispatcher(channels []Channel, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch delivers the envelope to all enabled channels and returns the
// aggregate report. The report's Success field decides acknowledgment: the
// caller acks the source message only when Success is true.
//
// An envelope without a message body is a validation failure; no channel is
// attempted and domain.ErrMissingMessage is returned alongside the report.
func (d *Dispatcher) Dispatch(ctx context.Context, env domain.Envelope) (Report, error) {
	if env.ContactMessage == "" {
		return Report{
			Success: false,
			Message: domain.ErrMissingMessage.Error(),
		}, domain.ErrMissingMessage
	}

	enabled := make([]Channel, 0, len(d.channels))
	for _, ch := range d.channels {
		if ch.Enabled() {
			enabled = append(enabled, ch)
		}
	}

	if len(enabled) == 0 {
		d.logger.WarnContext(ctx, "no notification channels enabled",
			slog.String("contact_type", env.ContactType),
		)
		return Report{
			Success: true,
			Message: "no notification channels enabled",
		}, nil
	}

	// Channels share no state, so deliveries run concurrently. Each result
	// lands in its own slot; a panicking channel becomes a failed result
	// rather than taking down the whole fan-out.
	results := make([]Result, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range enabled {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = failed(ch.Name(), "channel panicked", fmt.Errorf("panic: %v", r))
				}
			}()
			results[i] = ch.Send(gctx, env)
			return nil
		})
	}
	// Goroutines never return errors; Wait is only a join point.
	_ = g.Wait()

	succeededCount := 0
	for _, r := range results {
		if r.Success {
			succeededCount++
			d.logger.InfoContext(ctx, "notification delivered",
				slog.String("channel", r.Channel),
				slog.String("contact_type", env.ContactType),
			)
		} else {
			d.logger.ErrorContext(ctx, "notification failed",
				slog.String("channel", r.Channel),
				slog.String("error", r.Error),
			)
		}
	}

	report := Report{
		Success: succeededCount == len(results),
		Results: results,
	}
	if report.Success {
		report.Message = fmt.Sprintf("all %d channel(s) succeeded", len(results))
	} else {
		report.Message = fmt.Sprintf("%d of %d channel(s) failed", len(results)-succeededCount, len(results))
	}
	return report, nil
}
