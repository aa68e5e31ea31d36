package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"strconv"
	"time"
)

type Key string

// Limits são os dois tetos aplicados simultaneamente a cada chave.
type Limits struct {
	PerMinute int
	PerHour   int
}

// DefaultLimits: 20 req/min e 100 req/hora.
func DefaultLimits() Limits {
	return Limits{PerMinute: 20, PerHour: 100}
}

// Window identifica qual janela rejeitou a requisição.
type Window string

const (
	WindowNone   Window = ""
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
)

// Verdict é o resultado cru da janela deslizante para uma chave.
type Verdict struct {
	Allowed bool
	// Window só é preenchido quando Allowed == false.
	Window Window
	Limit  int
}

// Reason devolve a mensagem legível para o cliente.
func (v Verdict) Reason() string {
	switch v.Window {
	case WindowMinute:
		return "Rate limit exceeded: " + strconv.Itoa(v.Limit) + " requests per minute"
	case WindowHour:
		return "Rate limit exceeded: " + strconv.Itoa(v.Limit) + " requests per hour"
	default:
		return "OK"
	}
}

// WindowStore decide a admissão de uma chave no instante `now`.
//
// Observação: a implementação deve serializar purge + contagem + append
// por chave, senão duas requisições concorrentes podem ver a mesma
// contagem e passar do limite.
type WindowStore interface {
	Admit(key Key, now time.Time) Verdict
	Limits() Limits
}

type Decision struct {
	Allowed bool
	// Reason é a mensagem enviada no corpo do 429 (ou "OK").
	Reason string
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
