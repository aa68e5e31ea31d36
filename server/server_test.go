package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-gateway/chat"
	"chat-gateway/config"
	"chat-gateway/middleware/auth"
	"chat-gateway/middleware/ratelimit/domain"
	"chat-gateway/middleware/ratelimit/infra"
	"chat-gateway/sanitize"
	"chat-gateway/tutor"
)

const apiKey = "test-api-key-0123456789"

type fixture struct {
	cfg     config.Config
	tutor   *tutor.Tutor
	limits  domain.Limits
	stats   domain.StatsStore
	metrics http.Handler
	pool    domain.SlotPool
}

func defaultFixture() fixture {
	return fixture{
		cfg: config.Config{
			Debug:            true,
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedHosts:     []string{"api.example.com"},
			RateRetryAfter:   60 * time.Second,
			MaxMessageLength: 2000,
		},
		tutor:  tutor.New(nil, tutor.WithMock(true)),
		limits: domain.Limits{PerMinute: 3, PerHour: 100},
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func (f fixture) handler() http.Handler {
	logger := quiet()
	return New(Deps{
		Config:  f.cfg,
		Logger:  logger,
		Chat:    chat.NewHandler(f.tutor, sanitize.Default(), chat.WithLogger(logger)),
		Gate:    auth.NewGate(f.cfg.APIKey, f.cfg.RequireAPIKey, auth.WithPublicPaths(PublicPaths(f.metrics != nil)...)),
		Limiter: infra.NewWindowStore(f.limits),
		Stats:   f.stats,
		Pool:    f.pool,
		Probe:   f.tutor,
		Metrics: f.metrics,
	})
}

func do(h http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(hdr); i += 2 {
		if hdr[i] == "Host" {
			r.Host = hdr[i+1]
			continue
		}
		r.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	h := defaultFixture().handler()

	w := do(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, config.ServiceName, body["service"])

	w = do(h, http.MethodGet, "/health/live", "")
	assert.Equal(t, "alive", decode(t, w)["status"])

	w = do(h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "ready", body["status"])
	assert.Contains(t, body, "checks")
}

func TestHealthBypassesRateLimitAndAuth(t *testing.T) {
	f := defaultFixture()
	f.cfg.RequireAPIKey = true
	f.cfg.APIKey = apiKey
	h := f.handler()

	for i := 0; i < 10; i++ {
		w := do(h, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit-Minute"))
	}
}

func TestReadinessNotReadyWithoutProvider(t *testing.T) {
	f := defaultFixture()
	f.tutor = tutor.New(nil)
	w := do(f.handler(), http.MethodGet, "/health/ready", "")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "not_ready", body["status"])
	assert.NotEmpty(t, body["error"])
}

func TestReadinessReportsConcurrencyPool(t *testing.T) {
	f := defaultFixture()
	pool := infra.NewChanPool(4)
	release, ok := pool.Acquire(context.Background())
	require.True(t, ok)
	defer release()
	f.pool = pool

	w := do(f.handler(), http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	checks := decode(t, w)["checks"].(map[string]any)
	assert.Equal(t, float64(1), checks["in_flight"])
	assert.Equal(t, float64(4), checks["capacity"])

	w = do(defaultFixture().handler(), http.MethodGet, "/health/ready", "")
	assert.NotContains(t, decode(t, w)["checks"], "capacity")
}

func TestUnauthorizedCarriesLimitHeaders(t *testing.T) {
	f := defaultFixture()
	f.cfg.RequireAPIKey = true
	f.cfg.APIKey = apiKey
	h := f.handler()

	w := do(h, http.MethodPost, "/api/v1/chat/", `{"message":"hello"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit-Minute"))
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit-Hour"))

	// 401 não gasta cota
	for i := 0; i < 3; i++ {
		w = do(h, http.MethodPost, "/api/v1/chat/", `{"message":"hello"}`, "X-API-Key", apiKey)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}

	w = do(h, http.MethodGet, "/health", "")
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit-Minute"))
}

func TestAuthChallenge(t *testing.T) {
	f := defaultFixture()
	f.cfg.RequireAPIKey = true
	f.cfg.APIKey = apiKey
	h := f.handler()

	w := do(h, http.MethodPost, "/api/v1/chat/", `{"message":"hello"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "ApiKey", w.Header().Get("WWW-Authenticate"))
	assert.Contains(t, decode(t, w)["detail"], "API key required")

	w = do(h, http.MethodPost, "/api/v1/chat/", `{"message":"hello"}`, "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid API key", decode(t, w)["detail"])

	w = do(h, http.MethodPost, "/api/v1/chat/", `{"message":"hello"}`, "Authorization", "Bearer "+apiKey)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitHeadersAnd429(t *testing.T) {
	h := defaultFixture().handler()

	for i := 0; i < 3; i++ {
		w := do(h, http.MethodPost, "/api/v1/chat/", `{"message":"What is XSS?"}`)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit-Minute"))
		assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit-Hour"))
	}

	w := do(h, http.MethodPost, "/api/v1/chat/", `{"message":"What is XSS?"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit-Minute"))
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit-Hour"))
	assert.Equal(t, "Rate limit exceeded: 3 requests per minute", decode(t, w)["detail"])
}

func TestRateLimitIsPerClient(t *testing.T) {
	h := defaultFixture().handler()
	for i := 0; i < 3; i++ {
		do(h, http.MethodGet, "/api/v1/chat/quick-tip", "")
	}
	require.Equal(t, http.StatusTooManyRequests, do(h, http.MethodGet, "/api/v1/chat/quick-tip", "").Code)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/chat/quick-tip", nil)
	r.RemoteAddr = "198.51.100.7:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSanitizerRejectionStillConsumesQuota(t *testing.T) {
	h := defaultFixture().handler()

	for i := 0; i < 3; i++ {
		w := do(h, http.MethodPost, "/api/v1/chat/", `{"message":"'; DROP TABLE users; --"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, strings.ToLower(decode(t, w)["detail"].(string)), "dangerous")
	}
	w := do(h, http.MethodPost, "/api/v1/chat/", `{"message":"hello"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestChatValidationStatuses(t *testing.T) {
	f := defaultFixture()
	f.limits = domain.Limits{PerMinute: 100, PerHour: 1000}
	h := f.handler()

	assert.Equal(t, http.StatusUnprocessableEntity, do(h, http.MethodPost, "/api/v1/chat/", `{}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(h, http.MethodPost, "/api/v1/chat/", `not json`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(h, http.MethodPost, "/api/v1/chat/", `{"message":"a"} trailing`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/v1/chat/", `{"message":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/v1/chat/", `{"message":"`+strings.Repeat("a", 3000)+`"}`).Code)

	w := do(h, http.MethodPost, "/api/v1/chat/", `{"message":"<script>alert('xss')</script>"}`)
	if w.Code == http.StatusOK {
		assert.NotContains(t, w.Body.String(), "<script")
	} else {
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w = do(h, http.MethodPost, "/api/v1/chat/", `{
		"message": "What is XSS?",
		"conversation_history": [{"role":"user","content":"Hello"},{"role":"assistant","content":"Hi there!"}]
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.True(t, strings.HasPrefix(body["conversation_id"].(string), "conv_"))
	assert.NotEmpty(t, body["response"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestCORSPreflight(t *testing.T) {
	f := defaultFixture()
	f.cfg.RequireAPIKey = true
	f.cfg.APIKey = apiKey
	h := f.handler()

	w := do(h, http.MethodOptions, "/api/v1/chat/", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = do(h, http.MethodOptions, "/api/v1/chat/", "",
		"Origin", "https://evil.example",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTrustedHostOnlyInProduction(t *testing.T) {
	f := defaultFixture()
	f.cfg.Debug = false
	h := f.handler()

	w := do(h, http.MethodGet, "/health", "", "Host", "evil.example")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid host header", decode(t, w)["detail"])

	w = do(h, http.MethodGet, "/health", "", "Host", "api.example.com:8000")
	assert.Equal(t, http.StatusOK, w.Code)

	f.cfg.Debug = true
	w = do(f.handler(), http.MethodGet, "/health", "", "Host", "evil.example")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHostAllowed(t *testing.T) {
	allowed := []string{"example.com", "*.example.org"}
	assert.True(t, hostAllowed("example.com", allowed))
	assert.True(t, hostAllowed("EXAMPLE.com:443", allowed))
	assert.True(t, hostAllowed("api.example.org", allowed))
	assert.False(t, hostAllowed("example.org", allowed))
	assert.False(t, hostAllowed("badexample.com", allowed))
	assert.True(t, hostAllowed("anything", []string{"*"}))
}

func TestNotFoundIsJSON(t *testing.T) {
	w := do(defaultFixture().handler(), http.MethodGet, "/nonexistent-endpoint", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Resource not found", decode(t, w)["detail"])
}

func TestOpenAPIOnlyInDebug(t *testing.T) {
	f := defaultFixture()
	w := do(f.handler(), http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "3.1.0", body["openapi"])
	assert.Contains(t, body["paths"], "/api/v1/chat/")

	f.cfg.Debug = false
	w = do(f.handler(), http.MethodGet, "/openapi.json", "", "Host", "api.example.com")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom, err := infra.NewPrometheusStatsStore(reg, "/api/v1/chat/")
	require.NoError(t, err)

	f := defaultFixture()
	f.cfg.RequireAPIKey = true
	f.cfg.APIKey = apiKey
	f.stats = prom
	f.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	h := f.handler()

	w := do(h, http.MethodPost, "/api/v1/chat/", `{"message":"hello"}`, "X-API-Key", apiKey)
	require.Equal(t, http.StatusOK, w.Code)

	// /metrics é público e não consome cota
	w = do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `chat_gateway_ratelimit_decisions_total{decision="allowed",route="POST /api/v1/chat/",window=""} 1`)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit-Minute"))
}

func TestRecovererReturnsJSON500(t *testing.T) {
	h := recoverer(quiet())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["detail"])
}
