package infra

import (
	"context"

	"chat-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore expõe as decisões como contador.
//
// Labels: decision (allowed|denied), window (""|minute|hour), route.
// A chave do cliente NÃO vira label (cardinalidade). Pelo mesmo motivo, se
// routes for informado, paths fora da lista viram "other".
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
	routes    map[string]struct{}
}

// NewPrometheusStatsStore registra o contador no registry informado.
func NewPrometheusStatsStore(reg prometheus.Registerer, routes ...string) (*PrometheusStatsStore, error) {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_gateway",
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limit decisions by outcome, window and route.",
	}, []string{"decision", "window", "route"})

	if reg != nil {
		if err := reg.Register(decisions); err != nil {
			return nil, err
		}
	}
	s := &PrometheusStatsStore{decisions: decisions}
	if len(routes) > 0 {
		s.routes = make(map[string]struct{}, len(routes))
		for _, r := range routes {
			s.routes[r] = struct{}{}
		}
	}
	return s, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	decision := "denied"
	if ev.Allowed {
		decision = "allowed"
	}
	path := ev.Path
	if s.routes != nil {
		if _, ok := s.routes[path]; !ok {
			path = "other"
		}
	}
	s.decisions.WithLabelValues(decision, string(ev.Window), ev.Method+" "+path).Inc()
	return nil
}

// Counter devolve o contador para uma combinação de labels (usado em testes).
func (s *PrometheusStatsStore) Counter(decision string, window domain.Window, route string) prometheus.Counter {
	return s.decisions.WithLabelValues(decision, string(window), route)
}
