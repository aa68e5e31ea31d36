package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"chat-gateway/middleware/ratelimit/application"
	"chat-gateway/middleware/ratelimit/domain"
	"chat-gateway/respond"
)

type KeyFunc func(r *http.Request) string

// DefaultExemptPaths são as rotas de health que nunca passam pelo limiter.
var DefaultExemptPaths = []string{"/", "/health", "/health/live", "/health/ready"}

type Options struct {
	Store              domain.WindowStore
	Stats              domain.StatsStore
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
	RejectStatus       int
	RetryAfter         time.Duration
	// ExemptPaths: nil usa DefaultExemptPaths.
	ExemptPaths []string
	// Now permite injetar relógio nos testes.
	Now    func() time.Time
	Logger *slog.Logger
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

func pathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// Middleware aplica a janela deslizante (minuto + hora) por cliente.
//
// Rotas isentas passam direto. Nas demais os headers X-RateLimit-Limit-*
// vão em toda resposta (inclusive no 429). A requisição é contada na
// admissão: se depois o handler rejeitar o corpo, ela já gastou cota.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = application.DefaultRetryAfter
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.ExemptPaths == nil {
		opts.ExemptPaths = DefaultExemptPaths
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	exempt := pathSet(opts.ExemptPaths)

	svc := application.Service{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}
	setLimits := limitHeaders(svc.Limits())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := opts.KeyFn(r)
			now := opts.Now()

			setLimits(w.Header())

			dec, verdict := svc.Decide(domain.Key(key), now)
			if opts.Stats != nil {
				err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     domain.Key(key),
					Allowed: dec.Allowed,
					Window:  verdict.Window,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      now,
				})
				if err != nil {
					opts.Logger.Debug("rate limit stats record failed", "error", err)
				}
			}
			if !dec.Allowed {
				opts.Logger.Warn("rate limit exceeded", "client", key, "reason", dec.Reason, "path", r.URL.Path)
				w.Header().Set("Retry-After", formatInt(retryAfterSeconds(dec.RetryAfter)))
				respond.Detail(w, opts.RejectStatus, dec.Reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LimitHeaders põe X-RateLimit-Limit-* nas rotas não isentas antes dos
// middlewares que podem responder cedo (ex.: 401 da API key). O Middleware
// acima repete os mesmos valores quando a requisição chega até ele.
func LimitHeaders(store domain.WindowStore, exemptPaths []string) func(next http.Handler) http.Handler {
	if exemptPaths == nil {
		exemptPaths = DefaultExemptPaths
	}
	exempt := pathSet(exemptPaths)
	setLimits := limitHeaders(application.Service{Store: store}.Limits())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exempt[r.URL.Path]; !ok {
				setLimits(w.Header())
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limitHeaders(l domain.Limits) func(http.Header) {
	perMinute := formatInt(l.PerMinute)
	perHour := formatInt(l.PerHour)
	return func(h http.Header) {
		h.Set("X-RateLimit-Limit-Minute", perMinute)
		h.Set("X-RateLimit-Limit-Hour", perHour)
	}
}

// retryAfterSeconds arredonda para cima: Retry-After é em segundos inteiros
// e 0 faria o cliente repetir na hora.
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
