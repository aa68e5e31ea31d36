package ratelimit

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chat-gateway/middleware/ratelimit/application"
	"chat-gateway/middleware/ratelimit/domain"
	"chat-gateway/respond"
)

type ConcurrencyOptions struct {
	// Pool nil desliga o limite.
	Pool           domain.SlotPool
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         *slog.Logger
}

// ConcurrencyMiddleware limita quantas requisições ficam em voo no handler
// envolvido (usado na rota de chat, que segura uma chamada ao LLM).
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				if !errors.Is(err, application.ErrNoSlot) {
					// cliente foi embora enquanto esperava; não há pra quem responder
					return
				}
				opts.Logger.Warn("concurrency limit reached", "path", r.URL.Path)
				respond.Detail(w, opts.RejectStatus, "Service is busy, please try again shortly")
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
