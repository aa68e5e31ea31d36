// Package chat expõe as rotas do tutor: POST /api/v1/chat/ e
// GET /api/v1/chat/quick-tip.
//
// Ordem dentro do handler: schema (422), sanitização (400), tutor.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"chat-gateway/respond"
	"chat-gateway/sanitize"
)

const (
	maxBodyBytes = 1 << 20

	msgChatFailed = "Failed to process chat message. Please try again."
)

// Tutor é o colaborador que gera as respostas.
type Tutor interface {
	Reply(ctx context.Context, message string, history []sanitize.Entry) (string, error)
	Tip(ctx context.Context) string
}

type Handler struct {
	tutor      Tutor
	sanitizer  *sanitize.Sanitizer
	maxLength  int
	maxHistory int
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

type Option func(*Handler)

// WithLimits define o tamanho máximo da mensagem e do histórico.
func WithLimits(maxLength, maxHistory int) Option {
	return func(h *Handler) {
		if maxLength > 0 {
			h.maxLength = maxLength
		}
		if maxHistory > 0 {
			h.maxHistory = maxHistory
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

// WithIDs troca o gerador de conversation_id (testes).
func WithIDs(newID func() string) Option { return func(h *Handler) { h.newID = newID } }

func NewHandler(t Tutor, s *sanitize.Sanitizer, opts ...Option) *Handler {
	h := &Handler{
		tutor:      t,
		sanitizer:  s,
		maxLength:  s.MaxLength(),
		maxHistory: sanitize.DefaultMaxHistory,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      func() string { return "conv_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registra as rotas no subrouter montado em /api/v1/chat.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Chat)
	r.Get("/quick-tip", h.QuickTip)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	req, ferrs := decodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if ferrs != nil {
		respond.Unprocessable(w, ferrs)
		return
	}

	msg, err := h.sanitizer.Message(*req.Message, h.maxLength)
	if err != nil {
		var verr *sanitize.ValidationError
		if errors.As(err, &verr) {
			h.logger.Warn("invalid input detected",
				"error", verr.Error(),
				"rule", verr.Rule,
				"remote", r.RemoteAddr,
			)
			respond.Detail(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error("sanitizer failed", "error", err)
		respond.Detail(w, http.StatusInternalServerError, msgChatFailed)
		return
	}
	history := h.sanitizer.History(req.ConversationHistory, h.maxHistory)

	reply, err := h.tutor.Reply(r.Context(), msg, history)
	if err != nil {
		h.logger.Error("chat error", "error", err)
		respond.Detail(w, http.StatusInternalServerError, msgChatFailed)
		return
	}

	respond.JSON(w, http.StatusOK, Response{
		Response:       reply,
		ConversationID: h.newID(),
		Timestamp:      h.now().UTC(),
	})
}

func (h *Handler) QuickTip(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, TipResponse{Tip: h.tutor.Tip(r.Context())})
}
