package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// DefaultPublicPaths nunca exigem credencial.
var DefaultPublicPaths = []string{
	"/",
	"/health",
	"/health/live",
	"/health/ready",
	"/docs",
	"/redoc",
	"/openapi.json",
}

var (
	ErrMissing = errors.New("API key required. Include X-API-Key header or Authorization: Bearer <key>")
	ErrInvalid = errors.New("Invalid API key")
)

// Error é a falha de autenticação. Kind é ErrMissing ou ErrInvalid.
type Error struct {
	Kind error
}

func (e *Error) Error() string { return e.Kind.Error() }
func (e *Error) Unwrap() error { return e.Kind }

// Gate confere a credencial apresentada contra um segredo único.
type Gate struct {
	secret  string
	enabled bool
	public  map[string]struct{}
}

type Option func(*Gate)

// WithPublicPaths substitui o conjunto de rotas públicas.
func WithPublicPaths(paths ...string) Option {
	return func(g *Gate) {
		g.public = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			g.public[p] = struct{}{}
		}
	}
}

// NewGate cria o gate. Com enabled=false tudo passa.
func NewGate(secret string, enabled bool, opts ...Option) *Gate {
	g := &Gate{secret: secret, enabled: enabled}
	WithPublicPaths(DefaultPublicPaths...)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Enabled() bool { return g.enabled }

// IsPublic informa se o path dispensa credencial.
func (g *Gate) IsPublic(path string) bool {
	_, ok := g.public[path]
	return ok
}

// Credential extrai a credencial: X-API-Key tem prioridade; depois
// Authorization, sem o prefixo "Bearer ".
func Credential(h http.Header) string {
	key := h.Get("X-API-Key")
	if key == "" {
		key = h.Get("Authorization")
	}
	return strings.TrimPrefix(key, "Bearer ")
}

// Authorize devolve nil quando a requisição pode seguir, ou *Error.
func (g *Gate) Authorize(path string, h http.Header) error {
	if g.IsPublic(path) || !g.enabled {
		return nil
	}

	key := Credential(h)
	if key == "" {
		return &Error{Kind: ErrMissing}
	}
	// comparação exata, em tempo constante
	if subtle.ConstantTimeCompare([]byte(key), []byte(g.secret)) != 1 {
		return &Error{Kind: ErrInvalid}
	}
	return nil
}
