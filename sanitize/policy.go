package sanitize

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	CategorySQL   = "sql"
	CategoryShell = "shell"
)

// Rule é um padrão bloqueado. Sem case_sensitive a regex é compilada com (?i).
type Rule struct {
	Name          string `yaml:"name"`
	Pattern       string `yaml:"pattern"`
	Category      string `yaml:"category"`
	CaseSensitive bool   `yaml:"case_sensitive"`
}

// Policy é o formato do arquivo SANITIZER_POLICY_FILE:
//
//	rules:
//	  dangerous_patterns:
//	    - name: drop_table
//	      pattern: '\bDROP\s+TABLE\b'
//	      category: sql
type Policy struct {
	Rules struct {
		DangerousPatterns []Rule `yaml:"dangerous_patterns"`
	} `yaml:"rules"`
}

// DefaultPolicy devolve a lista embutida: comandos SQL destrutivos,
// comentários SQL e operadores de shell.
func DefaultPolicy() Policy {
	var p Policy
	p.Rules.DangerousPatterns = []Rule{
		{Name: "drop_table", Pattern: `\bDROP\s+TABLE\b`, Category: CategorySQL},
		{Name: "delete_from", Pattern: `\bDELETE\s+FROM\b`, Category: CategorySQL},
		{Name: "insert_into", Pattern: `\bINSERT\s+INTO\b`, Category: CategorySQL},
		{Name: "update_set", Pattern: `\bUPDATE\s+\w+\s+SET\b`, Category: CategorySQL},
		{Name: "chained_drop", Pattern: `;\s*DROP\s+`, Category: CategorySQL},
		{Name: "line_comment", Pattern: `--\s*$`, Category: CategorySQL},
		{Name: "block_comment", Pattern: `/\*.*?\*/`, Category: CategorySQL},

		{Name: "command_substitution", Pattern: `\$\(`, Category: CategoryShell, CaseSensitive: true},
		{Name: "backtick", Pattern: "`", Category: CategoryShell, CaseSensitive: true},
		{Name: "pipe_sh", Pattern: `\|\s*sh\b`, Category: CategoryShell, CaseSensitive: true},
		{Name: "pipe_bash", Pattern: `\|\s*bash\b`, Category: CategoryShell, CaseSensitive: true},
		{Name: "and_chain", Pattern: `&&`, Category: CategoryShell, CaseSensitive: true},
		{Name: "or_chain", Pattern: `\|\|`, Category: CategoryShell, CaseSensitive: true},
	}
	return p
}

// LoadPolicy lê e valida um arquivo YAML de política.
func LoadPolicy(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read sanitizer policy: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodifica e compila a política; uma lista vazia é erro.
func ParsePolicy(raw []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parse sanitizer policy: %w", err)
	}
	if len(p.Rules.DangerousPatterns) == 0 {
		return Policy{}, fmt.Errorf("sanitizer policy has no dangerous_patterns")
	}
	if _, err := p.compile(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

type compiledRule struct {
	name string
	re   *regexp.Regexp
}

func (p Policy) compile() ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(p.Rules.DangerousPatterns))
	for i, r := range p.Rules.DangerousPatterns {
		if r.Pattern == "" {
			return nil, fmt.Errorf("rule %d (%s): empty pattern", i, r.Name)
		}
		expr := r.Pattern
		if !r.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
		}
		out = append(out, compiledRule{name: r.Name, re: re})
	}
	return out, nil
}
