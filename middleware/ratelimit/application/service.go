package application

import (
	"time"

	"chat-gateway/middleware/ratelimit/domain"
)

// DefaultRetryAfter é o valor sugerido no Retry-After quando nada for configurado.
const DefaultRetryAfter = 60 * time.Second

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store      domain.WindowStore
	RetryAfter time.Duration
}

// Decide avalia a chave no instante `now`. O relógio vem de fora para que
// testes consigam simular a passagem do tempo.
func (s Service) Decide(key domain.Key, now time.Time) (domain.Decision, domain.Verdict) {
	if s.Store == nil {
		return domain.Decision{Allowed: true, Reason: "OK"}, domain.Verdict{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = DefaultRetryAfter
	}

	v := s.Store.Admit(key, now)
	if v.Allowed {
		return domain.Decision{Allowed: true, Reason: v.Reason()}, v
	}
	return domain.Decision{Allowed: false, Reason: v.Reason(), RetryAfter: s.RetryAfter}, v
}

// Limits expõe os tetos configurados (usado nos headers X-RateLimit-*).
func (s Service) Limits() domain.Limits {
	if s.Store == nil {
		return domain.Limits{}
	}
	return s.Store.Limits()
}
