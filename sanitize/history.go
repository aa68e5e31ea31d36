package sanitize

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Entry é uma mensagem do histórico já sanitizada.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultMaxHistory é o corte padrão do histórico.
const DefaultMaxHistory = 50

// History filtra o histórico enviado pelo cliente. Entrada que não é lista
// vira histórico vazio. Corta para as últimas maxMessages antes de validar
// e descarta em silêncio as entradas inválidas, preservando a ordem.
func (s *Sanitizer) History(raw any, maxMessages int) []Entry {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return []Entry{}
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxHistory
	}
	if len(items) > maxMessages {
		items = items[len(items)-maxMessages:]
	}

	out := make([]Entry, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		role, ok := obj["role"].(string)
		if !ok || !Role(role).Valid() {
			continue
		}
		content, ok := obj["content"].(string)
		if !ok {
			continue
		}
		clean, err := s.Message(content, s.maxLength)
		if err != nil {
			continue
		}
		out = append(out, Entry{Role: Role(role), Content: clean})
	}
	return out
}
