// Package server monta o roteador HTTP e a cadeia de admissão:
//
//	RequestID -> recover -> log -> trusted host -> CORS -> limit headers -> API key -> rate limit -> rotas
//
// Rotas de health passam pelo gate e pelo limiter sem serem barradas.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chat-gateway/chat"
	"chat-gateway/config"
	"chat-gateway/logging"
	"chat-gateway/middleware/auth"
	"chat-gateway/middleware/ratelimit"
	"chat-gateway/middleware/ratelimit/domain"
	"chat-gateway/respond"
)

// ReadinessProbe é consultado por /health/ready.
type ReadinessProbe interface {
	Ready() error
}

type Deps struct {
	Config  config.Config
	Logger  *slog.Logger
	Chat    *chat.Handler
	Gate    *auth.Gate
	Limiter domain.WindowStore
	Stats   domain.StatsStore
	// Pool nil desliga o limite de concorrência na rota de chat.
	Pool  domain.SlotPool
	Probe ReadinessProbe
	// Metrics nil não expõe /metrics.
	Metrics http.Handler
	Now     func() time.Time
}

// New devolve o handler raiz da API.
func New(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverer(d.Logger))
	r.Use(logging.Requests(d.Logger))
	if !cfg.Debug {
		r.Use(trustedHosts(cfg.AllowedHosts))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	exempt := ratelimit.DefaultExemptPaths
	if d.Metrics != nil {
		exempt = append(append([]string{}, exempt...), "/metrics")
	}
	// antes do gate, para o 401 também levar X-RateLimit-Limit-*
	r.Use(ratelimit.LimitHeaders(d.Limiter, exempt))
	r.Use(auth.Middleware(d.Gate, d.Logger))

	r.Use(ratelimit.Middleware(ratelimit.Options{
		Store:              d.Limiter,
		Stats:              d.Stats,
		KeyHeader:          cfg.RateKeyHeader,
		TrustXForwardedFor: cfg.TrustXFF,
		RetryAfter:         cfg.RateRetryAfter,
		ExemptPaths:        exempt,
		Now:                d.Now,
		Logger:             d.Logger,
	}))

	h := health{probe: d.Probe, cfg: cfg, pool: d.Pool}
	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/health/live", h.live)
	r.Get("/health/ready", h.ready)

	if cfg.Debug {
		r.Get("/openapi.json", openAPIHandler(d.Logger))
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Route("/api/v1/chat", func(r chi.Router) {
		r.Use(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Pool:           d.Pool,
			AcquireTimeout: cfg.ConcurrencyTimeout,
			Logger:         d.Logger,
		}))
		d.Chat.Routes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Detail(w, http.StatusNotFound, "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Detail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// PublicPaths devolve as rotas que dispensam API key nesta configuração.
func PublicPaths(metrics bool) []string {
	paths := append([]string{}, auth.DefaultPublicPaths...)
	if metrics {
		paths = append(paths, "/metrics")
	}
	return paths
}

// recoverer troca o 500 em texto do chi por {"detail": ...} e loga o panic.
func recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					"panic", rec,
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
				)
				respond.Detail(w, http.StatusInternalServerError, "Internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
