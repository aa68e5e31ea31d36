package application

import (
	"context"
	"errors"
	"time"

	"chat-gateway/middleware/ratelimit/domain"
)

// ErrNoSlot indica que o timeout de aquisição estourou com o pool cheio.
var ErrNoSlot = errors.New("no concurrency slot available")

// ConcurrencyService limita quantas requisições de chat ficam em voo ao mesmo
// tempo (cada uma segura uma chamada ao provedor de LLM), sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - Se `AcquireTimeout <= 0`, espera até o ctx do chamador encerrar.
//   - Se `AcquireTimeout > 0`, espera no máximo esse tempo.
//
// Erros: ErrNoSlot quando o timeout estoura; ctx.Err() quando o próprio
// chamador desistiu (cliente desconectou). Nesse caso não adianta responder.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSlot
}
