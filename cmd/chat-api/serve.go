package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"chat-gateway/chat"
	"chat-gateway/config"
	"chat-gateway/logging"
	"chat-gateway/middleware/auth"
	"chat-gateway/middleware/ratelimit/domain"
	"chat-gateway/middleware/ratelimit/infra"
	"chat-gateway/sanitize"
	"chat-gateway/server"
	"chat-gateway/tutor"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			logger := logging.New(cfg.Debug, os.Stderr)
			slog.SetDefault(logger)
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func loadSanitizer(cfg config.Config) (*sanitize.Sanitizer, error) {
	policy := sanitize.DefaultPolicy()
	if cfg.SanitizerPolicyFile != "" {
		p, err := sanitize.LoadPolicy(cfg.SanitizerPolicyFile)
		if err != nil {
			return nil, err
		}
		policy = p
	}
	return sanitize.New(policy, sanitize.WithMaxLength(cfg.MaxMessageLength))
}

func newTutor(cfg config.Config, logger *slog.Logger) *tutor.Tutor {
	// interface nil de verdade quando não há chave, para Ready() acusar
	var client tutor.ChatCompleter
	if cfg.GeminiAPIKey != "" {
		client = tutor.NewOpenAIClient(cfg.GeminiAPIKey, cfg.LLMBaseURL)
	} else if !cfg.UseMockResponses {
		logger.Warn("GEMINI_API_KEY not set and mock mode off; chat will fail until configured")
	}
	return tutor.New(client,
		tutor.WithModel(cfg.LLMModel),
		tutor.WithMock(cfg.UseMockResponses),
		tutor.WithTimeout(cfg.UpstreamTimeout),
		tutor.WithPacing(cfg.UpstreamRPS, cfg.UpstreamBurst),
		tutor.WithLogger(logger),
	)
}

var chatRoutes = []string{"/api/v1/chat/", "/api/v1/chat", "/api/v1/chat/quick-tip"}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	san, err := loadSanitizer(cfg)
	if err != nil {
		return fmt.Errorf("sanitizer: %w", err)
	}

	if cfg.RequireAPIKey && !sanitize.ValidKeyFormat(cfg.APIKey) {
		logger.Warn("API_KEY has a weak format; use 20-100 characters of [a-zA-Z0-9_-]")
	}

	store := infra.NewWindowStore(
		domain.Limits{PerMinute: cfg.RatePerMinute, PerHour: cfg.RatePerHour},
		infra.WithCleanupEvery(cfg.RateCleanupEvery),
	)
	store.StartJanitor(ctx)

	var stores infra.MultiStats
	if cfg.RateStatsEnabled {
		rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		stores = append(stores, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.RateStatsPrefix),
			infra.WithStatsTTL(cfg.RateStatsTTL),
			infra.WithStatsBucket(cfg.RateStatsBucket),
			infra.WithStatsTrackKeys(cfg.RateStatsTrackKeys),
		))
	}

	var metrics http.Handler
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		prom, err := infra.NewPrometheusStatsStore(reg, chatRoutes...)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		stores = append(stores, prom)
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	var stats domain.StatsStore
	switch len(stores) {
	case 0:
	case 1:
		stats = stores[0]
	default:
		stats = stores
	}

	var pool domain.SlotPool
	if cfg.ConcurrencyMax > 0 {
		pool = infra.NewChanPool(cfg.ConcurrencyMax)
	}

	tu := newTutor(cfg, logger)
	gate := auth.NewGate(cfg.APIKey, cfg.RequireAPIKey, auth.WithPublicPaths(server.PublicPaths(cfg.MetricsEnabled)...))
	handler := server.New(server.Deps{
		Config:  cfg,
		Logger:  logger,
		Chat:    chat.NewHandler(tu, san, chat.WithLimits(cfg.MaxMessageLength, cfg.MaxHistoryMessages), chat.WithLogger(logger)),
		Gate:    gate,
		Limiter: store,
		Stats:   stats,
		Pool:    pool,
		Probe:   tu,
		Metrics: metrics,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// cobre UPSTREAM_TIMEOUT com folga
		WriteTimeout: cfg.UpstreamTimeout + 30*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("chat api listening",
		"addr", cfg.ListenAddr,
		"debug", cfg.Debug,
		"version", config.Version,
	)
	logger.Info("admission",
		"require_api_key", gate.Enabled(),
		"per_minute", cfg.RatePerMinute,
		"per_hour", cfg.RatePerHour,
		"cleanup_every", store.CleanupEvery(),
		"key_header", cfg.RateKeyHeader,
		"trust_xff", cfg.TrustXFF,
		"concurrency_max", cfg.ConcurrencyMax,
	)
	logger.Info("upstream",
		"model", tu.Model(),
		"mock", tu.Mock(),
		"rps", cfg.UpstreamRPS,
		"stats_redis", cfg.RateStatsEnabled,
		"metrics", cfg.MetricsEnabled,
		"cors_origins", cfg.AllowedOrigins,
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
