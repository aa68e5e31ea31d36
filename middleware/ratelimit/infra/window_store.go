package infra

import (
	"hash/fnv"
	"sync"
	"time"

	"chat-gateway/middleware/ratelimit/domain"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// WindowStore é o rate limit de janela deslizante em memória.
//
// Cada chave guarda os instantes das requisições aceitas (em ordem). O mapa é
// dividido em shards, cada um com seu mutex: purge + contagem + append de uma
// chave acontecem inteiros sob o lock do shard dela.
type WindowStore struct {
	shards       []*windowShard
	limits       domain.Limits
	cleanupEvery time.Duration
}

type windowShard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

type WindowOption func(*WindowStore)

// WithShards define quantos shards o mapa terá (mínimo 1).
func WithShards(n int) WindowOption {
	return func(s *WindowStore) {
		if n < 1 {
			n = 1
		}
		s.shards = newShards(n)
	}
}

func WithCleanupEvery(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

func NewWindowStore(limits domain.Limits, opts ...WindowOption) *WindowStore {
	s := &WindowStore{
		shards:       newShards(32),
		limits:       limits,
		cleanupEvery: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newShards(n int) []*windowShard {
	shards := make([]*windowShard, n)
	for i := range shards {
		shards[i] = &windowShard{windows: make(map[string][]time.Time)}
	}
	return shards
}

func (s *WindowStore) Limits() domain.Limits        { return s.limits }
func (s *WindowStore) CleanupEvery() time.Duration { return s.cleanupEvery }

func (s *WindowStore) shardFor(key string) *windowShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Admit implementa domain.WindowStore.
//
// Ordem: purge (> 1h), teto por minuto, teto por hora, append. Rejeição não
// grava o instante atual; só a admissão faz a janela crescer.
// Limite <= 0 desliga o teto correspondente.
func (s *WindowStore) Admit(key domain.Key, now time.Time) domain.Verdict {
	k := string(key)
	sh := s.shardFor(k)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	ts := purgeBefore(sh.windows[k], now.Add(-hourWindow))

	if s.limits.PerMinute > 0 {
		minuteAgo := now.Add(-minuteWindow)
		recent := 0
		for _, t := range ts {
			if t.After(minuteAgo) {
				recent++
			}
		}
		if recent >= s.limits.PerMinute {
			sh.store(k, ts)
			return domain.Verdict{Window: domain.WindowMinute, Limit: s.limits.PerMinute}
		}
	}

	if s.limits.PerHour > 0 && len(ts) >= s.limits.PerHour {
		sh.store(k, ts)
		return domain.Verdict{Window: domain.WindowHour, Limit: s.limits.PerHour}
	}

	sh.windows[k] = append(ts, now)
	return domain.Verdict{Allowed: true}
}

func (sh *windowShard) store(k string, ts []time.Time) {
	if len(ts) == 0 {
		delete(sh.windows, k)
		return
	}
	sh.windows[k] = ts
}

// purgeBefore mantém só os instantes estritamente depois de cutoff.
// Reaproveita o array de ts (o chamador é dono dele sob o lock).
func purgeBefore(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Count devolve quantas requisições aceitas a chave tem dentro da última hora
// de `now`, sem alterar o estado.
func (s *WindowStore) Count(key domain.Key, now time.Time) int {
	sh := s.shardFor(string(key))
	cutoff := now.Add(-hourWindow)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	n := 0
	for _, t := range sh.windows[string(key)] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

// Len devolve quantas chaves estão sendo rastreadas.
func (s *WindowStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.windows)
		sh.mu.Unlock()
	}
	return n
}

// Cleanup remove chaves cujo instante mais recente já saiu da janela de 1h.
// Sem isso o mapa cresce para sempre com clientes que nunca voltam.
func (s *WindowStore) Cleanup(now time.Time) int {
	cutoff := now.Add(-hourWindow)
	removed := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, ts := range sh.windows {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(sh.windows, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Cleanup(now)
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
// (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}
