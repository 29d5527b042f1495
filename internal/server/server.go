// Package server wires the public intake endpoint and the admin API onto a
// single HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jscomlabs/contactd/internal/listener"
	"github.com/jscomlabs/contactd/internal/server/handler"
	"github.com/jscomlabs/contactd/internal/server/middleware"
	"github.com/jscomlabs/contactd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// APIKey authenticates admin requests via X-API-Key when no JWT
	// verifier is configured. If both are empty, the admin API is open
	// (local development only).
	APIKey string

	// JWTVerifier, when set, authenticates admin requests via Bearer JWT
	// instead of the static key.
	JWTVerifier middleware.TokenVerifier
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Messages *handler.MessageHandler
	Blocked  *handler.BlockedHandler
	Export   *handler.ExportHandler

	// Contact serves the public submission endpoint; nil when this process
	// does not run the listener stage.
	Contact *listener.Handler
}

// Server is the HTTP + WebSocket front of the contact pipeline.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// Admin routes sit behind authentication; the public intake endpoint and the
// health check do not.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Public form submission endpoint.
	if handlers.Contact != nil {
		mux.HandleFunc("POST /v1/contact", handlers.Contact.Submit)
	}

	// Admin API behind its own auth chain. A process that only runs the
	// listener stage has no stores and therefore no admin surface.
	if handlers.Messages != nil && handlers.Blocked != nil {
		admin := http.NewServeMux()
		admin.HandleFunc("GET /admin/messages", handlers.Messages.ListMessages)
		admin.HandleFunc("GET /admin/messages/{id}", handlers.Messages.GetMessage)
		admin.HandleFunc("GET /admin/stats", handlers.Messages.GetStats)
		admin.HandleFunc("GET /admin/blocked", handlers.Blocked.ListBlocked)
		admin.HandleFunc("POST /admin/blocked", handlers.Blocked.BlockContact)
		admin.HandleFunc("DELETE /admin/blocked/{id}", handlers.Blocked.UnblockContact)
		if handlers.Export != nil {
			admin.HandleFunc("POST /admin/export", handlers.Export.Export)
		}
		if wsHub != nil {
			admin.HandleFunc("GET /admin/events", wsHub.HandleWS)
		}

		var adminChain http.Handler = admin
		if cfg.JWTVerifier != nil {
			adminChain = middleware.JWT(cfg.JWTVerifier)(adminChain)
		} else {
			adminChain = middleware.APIKey(cfg.APIKey)(adminChain)
		}
		mux.Handle("/admin/", adminChain)
	}

	// Build the outer middleware chain.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
