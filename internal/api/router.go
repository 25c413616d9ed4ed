package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/baechuer/roadside-admin/internal/api/handlers"
	"github.com/baechuer/roadside-admin/internal/config"
	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Readiness     *handlers.ReadinessHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UsersHandler
	Review        *handlers.ReviewHandler
	Overview      *handlers.OverviewHandler
	Notifications *handlers.NotificationsHandler
}

// NewRouter wires middleware and routes. rdb may be nil, in which case rate
// limiting falls back to an in-process limiter.
func NewRouter(cfg *config.Config, h Handlers, tokens middleware.UpstreamTokens, rdb *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	// Replace default chi Logger with our structured logger
	r.Use(middleware.RequestLogger(logger.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Metrics)
	if cfg.OTELEnabled {
		r.Use(middleware.Tracing("roadside-admin"))
	}

	r.Get("/api/healthz", h.Readiness.Healthz)
	r.Get("/api/readyz", h.Readiness.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, tokens))
		if cfg.RLEnabled {
			if rdb != nil {
				limiter := middleware.NewRedisRateLimiter(rdb)
				r.Use(limiter.Middleware(middleware.RateLimitConfig{
					Limit:  cfg.RLLimit,
					Window: cfg.RLWindow,
					KeyFn:  middleware.KeyByAdmin,
				}))
			} else {
				r.Use(httprate.LimitByIP(cfg.RLLimit, cfg.RLWindow))
			}
		}

		r.Post("/api/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/api/auth/logout", h.Auth.Logout)

			r.Route("/api/admin", func(r chi.Router) {
				r.Get("/users", h.Users.List)
				r.Get("/users/snapshot", h.Users.Snapshot)

				r.Get("/review", h.Review.State)
				r.Post("/review/open", h.Review.Open)
				r.Post("/review/decision", h.Review.Decide)
				r.Post("/review/close", h.Review.Close)
				r.Get("/review/history", h.Review.History)

				r.Get("/overview", h.Overview.Get)

				r.Post("/notifications", h.Notifications.Send)
				r.Get("/notifications", h.Notifications.List)
			})
		})
	})

	return r
}
