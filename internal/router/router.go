package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"quote-assistant-backend/internal/handlers"
	"quote-assistant-backend/internal/metrics"
	"quote-assistant-backend/internal/middleware"
	"quote-assistant-backend/pkg/logging"
)

// Options carries the HTTP-level settings.
type Options struct {
	Prefix       string
	CORSOrigins  []string
	MaxBodyBytes int64
	// RulesLimiter throttles rule updates when set. The caller owns it and
	// stops it on shutdown.
	RulesLimiter *middleware.RateLimiter
}

// New builds the HTTP handler. jwtAuth may be nil, in which case rule
// updates are not authenticated.
func New(
	opts Options,
	jwtAuth *middleware.JWTAuth,
	chatHandler *handlers.ChatHandler,
	rulesHandler *handlers.RulesHandler,
	m *metrics.Metrics,
	logger *logging.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.CORSOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	api := func(r chi.Router) {
		// Base64 images make bodies large.
		if opts.MaxBodyBytes > 0 {
			r.Use(chimiddleware.RequestSize(opts.MaxBodyBytes))
		}

		r.Post("/send", chatHandler.Send)

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", rulesHandler.Get)

			r.Group(func(r chi.Router) {
				if opts.RulesLimiter != nil {
					r.Use(opts.RulesLimiter.Middleware)
				}
				if jwtAuth != nil {
					r.Use(jwtAuth.Middleware)
				}
				r.Post("/", rulesHandler.Update)
			})
		})
	}

	if opts.Prefix == "" {
		r.Group(api)
	} else {
		r.Route(opts.Prefix, api)
	}

	return r
}
