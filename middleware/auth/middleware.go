// Package auth implementa o gate de API key da API de chat.
//
// Um único segredo estático, comparado por igualdade exata. Rotas públicas
// (health, docs) passam sem credencial; com REQUIRE_API_KEY=false tudo passa.
package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"chat-gateway/respond"
)

// Middleware aplica o Gate. Falhas viram 401 com WWW-Authenticate: ApiKey.
func Middleware(g *Gate, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := g.Authorize(r.URL.Path, r.Header)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			var authErr *Error
			if !errors.As(err, &authErr) {
				logger.Error("auth gate failed", "error", err)
				respond.Detail(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if errors.Is(err, ErrMissing) {
				logger.Warn("missing API key", "remote", r.RemoteAddr, "path", r.URL.Path)
			} else {
				logger.Warn("invalid API key", "remote", r.RemoteAddr, "path", r.URL.Path)
			}
			w.Header().Set("WWW-Authenticate", "ApiKey")
			respond.Detail(w, http.StatusUnauthorized, authErr.Error())
		})
	}
}
