package server

import (
	"net/http"

	"chat-gateway/config"
	"chat-gateway/middleware/ratelimit/domain"
	"chat-gateway/respond"
)

// poolGauge é implementado por pools que sabem a própria ocupação
// (infra.ChanPool).
type poolGauge interface {
	InFlight() int
	Cap() int
}

type health struct {
	probe ReadinessProbe
	cfg   config.Config
	pool  domain.SlotPool
}

func (h health) root(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"message": config.ServiceName + " is running",
		"version": config.Version,
		"status":  "healthy",
	})
}

func (h health) health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": config.ServiceName,
		"version": config.Version,
	})
}

func (h health) live(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h health) ready(w http.ResponseWriter, r *http.Request) {
	if h.probe != nil {
		if err := h.probe.Ready(); err != nil {
			respond.JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	checks := map[string]any{
		"api_key_configured": h.cfg.GeminiAPIKey != "",
		"mock_mode":          h.cfg.UseMockResponses,
		"tutor_agent":        "initialized",
	}
	if g, ok := h.pool.(poolGauge); ok {
		checks["in_flight"] = g.InFlight()
		checks["capacity"] = g.Cap()
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}
