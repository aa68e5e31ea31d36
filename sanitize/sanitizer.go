// Package sanitize valida e limpa o texto enviado pelo usuário antes de
// chegar ao provedor de LLM.
//
// A lista de padrões é uma heurística de melhor esforço: bloqueia texto
// legítimo ("DELETE FROM" numa pergunta didática) e deixa passar ofuscação
// criativa. Não é fronteira de segurança.
package sanitize

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength vale para Message quando maxLength <= 0 e para o histórico.
const DefaultMaxLength = 2000

var (
	ErrEmpty     = errors.New("Input cannot be empty")
	ErrTooLong   = errors.New("Input too long")
	ErrDangerous = errors.New("Input contains potentially dangerous content")
)

// ValidationError é a rejeição de uma mensagem. Kind é um dos Err* acima.
type ValidationError struct {
	Kind error
	Max  int    // só para ErrTooLong
	Rule string // só para ErrDangerous; vai para log, nunca para o cliente
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Kind, ErrTooLong) {
		return fmt.Sprintf("Input too long (max %d characters)", e.Max)
	}
	return e.Kind.Error()
}

func (e *ValidationError) Unwrap() error { return e.Kind }

var scriptBlock = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)

// Sanitizer aplica a política compilada. Seguro para uso concorrente.
type Sanitizer struct {
	rules     []compiledRule
	maxLength int
}

type Option func(*Sanitizer)

// WithMaxLength muda o limite usado pelo histórico e por Message(text, 0).
func WithMaxLength(n int) Option {
	return func(s *Sanitizer) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

// New compila a política. Regex inválida é erro de construção.
func New(p Policy, opts ...Option) (*Sanitizer, error) {
	rules, err := p.compile()
	if err != nil {
		return nil, err
	}
	s := &Sanitizer{rules: rules, maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Default usa a política embutida.
func Default(opts ...Option) *Sanitizer {
	s, err := New(DefaultPolicy(), opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Sanitizer) MaxLength() int { return s.maxLength }

// Message devolve o texto aparado e escapado, ou *ValidationError.
func (s *Sanitizer) Message(text string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = s.maxLength
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ValidationError{Kind: ErrEmpty}
	}
	if utf8.RuneCountInString(text) > maxLength {
		return "", &ValidationError{Kind: ErrTooLong, Max: maxLength}
	}

	escaped := html.EscapeString(text)
	escaped = scriptBlock.ReplaceAllString(escaped, "")

	// o escape transforma && em &amp;&amp;; a checagem olha as duas formas
	decoded := html.UnescapeString(escaped)
	if rule, hit := s.match(escaped, decoded); hit {
		return "", &ValidationError{Kind: ErrDangerous, Rule: rule}
	}
	return escaped, nil
}

func (s *Sanitizer) match(views ...string) (string, bool) {
	for _, r := range s.rules {
		for _, v := range views {
			if r.re.MatchString(v) {
				return r.name, true
			}
		}
	}
	return "", false
}

var keyFormat = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,100}$`)

// ValidKeyFormat informa se a chave tem formato aceitável (20 a 100 chars
// alfanuméricos, '-' ou '_').
func ValidKeyFormat(key string) bool {
	return keyFormat.MatchString(key)
}
