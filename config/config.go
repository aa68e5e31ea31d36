// Package config carrega a configuração da API a partir do ambiente.
//
// Um arquivo .env no diretório atual é lido antes (godotenv); variáveis já
// definidas no ambiente têm prioridade sobre ele.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ServiceName = "Chat Gateway API"
	Version     = "1.0.0"
)

type Config struct {
	ListenAddr string
	Debug      bool

	SecretKey     string
	APIKey        string
	RequireAPIKey bool

	AllowedOrigins []string
	AllowedHosts   []string

	RatePerMinute    int
	RatePerHour      int
	RateRetryAfter   time.Duration
	RateCleanupEvery time.Duration
	RateKeyHeader    string
	TrustXFF         bool

	MaxMessageLength    int
	MaxHistoryMessages  int
	SanitizerPolicyFile string

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	RateStatsEnabled bool
	RedisURL         string
	RateStatsPrefix  string
	RateStatsTTL     time.Duration
	// RateStatsBucket: "minute" ou "none" (só o total).
	RateStatsBucket    string
	RateStatsTrackKeys bool
	MetricsEnabled     bool

	GeminiAPIKey     string
	UseMockResponses bool
	LLMBaseURL       string
	LLMModel         string
	UpstreamTimeout  time.Duration
	UpstreamRPS      float64
	UpstreamBurst    int
}

// Load lê .env (se existir) e depois o ambiente.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv lê só o ambiente do processo.
func FromEnv() (Config, error) {
	e := &env{}
	cfg := Config{
		ListenAddr: e.str("LISTEN_ADDR", ":8000"),
		Debug:      e.boolean("DEBUG", false),

		SecretKey:     e.str("SECRET_KEY", ""),
		APIKey:        e.str("API_KEY", ""),
		RequireAPIKey: e.boolean("REQUIRE_API_KEY", false),

		AllowedOrigins: e.list("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		AllowedHosts:   e.list("ALLOWED_HOSTS", "localhost,127.0.0.1"),

		RatePerMinute:    e.integer("RATE_PER_MINUTE", 20),
		RatePerHour:      e.integer("RATE_PER_HOUR", 100),
		RateRetryAfter:   e.duration("RATE_RETRY_AFTER", 60*time.Second),
		RateCleanupEvery: e.duration("RATE_CLEANUP_EVERY", 5*time.Minute),
		RateKeyHeader:    e.str("RATE_KEY_HEADER", ""),
		TrustXFF:         e.boolean("TRUST_XFF", false),

		MaxMessageLength:    e.integer("MAX_MESSAGE_LENGTH", 2000),
		MaxHistoryMessages:  e.integer("MAX_HISTORY_MESSAGES", 50),
		SanitizerPolicyFile: e.str("SANITIZER_POLICY_FILE", ""),

		ConcurrencyMax:     e.integer("CONCURRENCY_MAX", 0),
		ConcurrencyTimeout: e.duration("CONCURRENCY_TIMEOUT", 0),

		RateStatsEnabled:   e.boolean("RATE_STATS_ENABLED", false),
		RedisURL:           e.str("REDIS_URL", ""),
		RateStatsPrefix:    e.str("RATE_STATS_PREFIX", "chat:ratelimit:stats"),
		RateStatsTTL:       e.duration("RATE_STATS_TTL", 24*time.Hour),
		RateStatsBucket:    e.str("RATE_STATS_BUCKET", "minute"),
		RateStatsTrackKeys: e.boolean("RATE_STATS_TRACK_KEYS", false),
		MetricsEnabled:     e.boolean("METRICS_ENABLED", false),

		GeminiAPIKey:     e.str("GEMINI_API_KEY", ""),
		UseMockResponses: e.boolean("USE_MOCK_RESPONSES", false),
		LLMBaseURL:       e.str("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		LLMModel:         e.str("LLM_MODEL", "gemini-2.5-flash"),
		UpstreamTimeout:  e.duration("UPSTREAM_TIMEOUT", 30*time.Second),
		UpstreamRPS:      e.float("UPSTREAM_RPS", 0),
		UpstreamBurst:    e.integer("UPSTREAM_BURST", 5),
	}
	if e.err != nil {
		return Config{}, e.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate confere combinações que não fazem sentido.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SecretKey) == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	if c.RequireAPIKey && c.APIKey == "" {
		errs = append(errs, errors.New("API_KEY is required when REQUIRE_API_KEY=true"))
	}
	if c.RatePerMinute < 0 || c.RatePerHour < 0 {
		errs = append(errs, errors.New("RATE_PER_MINUTE and RATE_PER_HOUR must be >= 0"))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("MAX_MESSAGE_LENGTH must be > 0"))
	}
	if c.MaxHistoryMessages <= 0 {
		errs = append(errs, errors.New("MAX_HISTORY_MESSAGES must be > 0"))
	}
	if c.ConcurrencyMax < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if c.RateStatsEnabled && strings.TrimSpace(c.RedisURL) == "" {
		errs = append(errs, errors.New("REDIS_URL is required when RATE_STATS_ENABLED=true"))
	}
	if c.UpstreamRPS < 0 {
		errs = append(errs, errors.New("UPSTREAM_RPS must be >= 0"))
	}
	return errors.Join(errs...)
}

// env acumula erros de parse; o primeiro valor inválido não interrompe a
// leitura, para que todos apareçam de uma vez.
type env struct {
	err error
}

func (e *env) fail(k, v string, err error) {
	e.err = errors.Join(e.err, fmt.Errorf("invalid %s=%q: %w", k, v, err))
}

func (e *env) str(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func (e *env) integer(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return i
}

func (e *env) float(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return f
}

func (e *env) boolean(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return b
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// segundos inteiros também valem (RATE_RETRY_AFTER=60)
		if secs, aerr := strconv.Atoi(v); aerr == nil {
			return time.Duration(secs) * time.Second
		}
		e.fail(k, v, err)
		return def
	}
	return d
}

// list separa por vírgula, descartando itens vazios.
func (e *env) list(k, def string) []string {
	raw := e.str(k, def)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
