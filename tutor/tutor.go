// Package tutor conversa com o provedor de LLM (API compatível com OpenAI,
// por padrão o endpoint OpenAI do Gemini) no papel de professor de segurança.
//
// Falha do provedor nunca vira erro HTTP: Reply e Tip devolvem um texto
// amigável e o detalhe fica no log.
package tutor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"chat-gateway/sanitize"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 30 * time.Second

	FallbackReply = "Sorry, I'm having trouble answering right now. Could you try rephrasing your question in a moment?"
	FallbackTip   = "🔒 Turn on two-factor authentication (2FA) for every business account. It stops the vast majority of automated account takeovers."
)

// ErrNotConfigured: sem cliente e fora do modo mock.
var ErrNotConfigured = errors.New("tutor: no LLM provider configured")

const systemPrompt = `You are Professor Shield, a patient cybersecurity teacher for small business owners.

Explain OWASP Top 10 risks, LLM and GenAI threats, everyday security hygiene and EU compliance basics (GDPR, NIS2) to people who are not developers.

Use plain language and short analogies. When you cover a vulnerability, say what it is, why it matters to a small business, how to defend against it and give one relatable example. Keep answers practical and encouraging.`

const tipPrompt = "Give me one quick, actionable cybersecurity tip for a small business owner. Keep it under 50 words."

// ChatCompleter é o pedaço do *openai.Client que o tutor usa.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient monta o cliente go-openai apontando para baseURL.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

type Tutor struct {
	client  ChatCompleter
	model   string
	mock    bool
	timeout time.Duration
	pacer   *rate.Limiter
	logger  *slog.Logger
}

type Option func(*Tutor)

func WithModel(model string) Option {
	return func(t *Tutor) {
		if model != "" {
			t.model = model
		}
	}
}

// WithMock liga as respostas prontas; o provedor não é chamado.
func WithMock(on bool) Option { return func(t *Tutor) { t.mock = on } }

// WithTimeout limita cada chamada ao provedor.
func WithTimeout(d time.Duration) Option {
	return func(t *Tutor) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithPacing limita a vazão de saída para o provedor (rps <= 0 desliga).
func WithPacing(rps float64, burst int) Option {
	return func(t *Tutor) {
		if rps <= 0 {
			t.pacer = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		t.pacer = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tutor) {
		if l != nil {
			t.logger = l
		}
	}
}

// New cria o tutor. client pode ser nil em modo mock.
func New(client ChatCompleter, opts ...Option) *Tutor {
	t := &Tutor{
		client:  client,
		model:   DefaultModel,
		timeout: DefaultTimeout,
		pacer:   rate.NewLimiter(rate.Inf, 0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tutor) Mock() bool    { return t.mock }
func (t *Tutor) Model() string { return t.model }

// Ready é usado pelo /health/ready.
func (t *Tutor) Ready() error {
	if t.mock || t.client != nil {
		return nil
	}
	return ErrNotConfigured
}

// Reply responde a mensagem já sanitizada, com o histórico como contexto.
// Só devolve erro quando não há provedor configurado.
func (t *Tutor) Reply(ctx context.Context, message string, history []sanitize.Entry) (string, error) {
	if t.mock {
		return MockReply(message), nil
	}
	if t.client == nil {
		return "", ErrNotConfigured
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, e := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(e.Role), Content: e.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	text, err := t.complete(ctx, msgs)
	if err != nil {
		t.logger.Error("LLM call failed", "model", t.model, "error", err)
		return FallbackReply, nil
	}
	return text, nil
}

// Tip devolve uma dica curta; qualquer falha cai na dica fixa.
func (t *Tutor) Tip(ctx context.Context) string {
	if t.mock || t.client == nil {
		return FallbackTip
	}
	text, err := t.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: tipPrompt},
	})
	if err != nil {
		t.logger.Warn("quick tip failed, using fallback", "error", err)
		return FallbackTip
	}
	return text
}

var errNoChoices = errors.New("provider returned no choices")

func (t *Tutor) complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.pacer.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    t.model,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errNoChoices
	}
	t.logger.Debug("LLM reply",
		"model", t.model,
		"finish_reason", resp.Choices[0].FinishReason,
		"took", time.Since(start),
	)
	return resp.Choices[0].Message.Content, nil
}
