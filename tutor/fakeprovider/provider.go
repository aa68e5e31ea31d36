// Package fakeprovider é um endpoint /chat/completions compatível com a API
// da OpenAI, para testes e para rodar a API localmente sem chave real.
package fakeprovider

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Provider struct {
	mu       sync.Mutex
	reply    string
	status   int
	delay    time.Duration
	token    string
	requests []openai.ChatCompletionRequest
}

type Option func(*Provider)

// WithToken exige Authorization: Bearer <token>.
func WithToken(token string) Option { return func(p *Provider) { p.token = token } }

// WithDelay atrasa cada resposta (útil para testar timeout).
func WithDelay(d time.Duration) Option { return func(p *Provider) { p.delay = d } }

func New(reply string, opts ...Option) *Provider {
	p := &Provider{reply: reply, status: http.StatusOK}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fail faz as próximas chamadas responderem com status (0 volta ao normal).
func (p *Provider) Fail(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	p.status = status
}

// Requests devolve uma cópia das requisições recebidas.
func (p *Provider) Requests() []openai.ChatCompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]openai.ChatCompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *Provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if p.token != "" && r.Header.Get("Authorization") != "Bearer "+p.token {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	p.mu.Lock()
	p.requests = append(p.requests, req)
	status, reply, delay := p.status, p.reply, p.delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != http.StatusOK {
		writeError(w, status, "upstream unavailable")
		return
	}

	resp := openai.ChatCompletionResponse{
		ID:      "chatcmpl-fake",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			FinishReason: openai.FinishReasonStop,
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": msg, "type": "fake_error"},
	})
}
