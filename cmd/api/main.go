package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	aiconfig "agency-site/internal/config"
	hhttp "agency-site/internal/handler/http"
	"agency-site/internal/handler/http/admin"
	"agency-site/internal/handler/http/generate"
	"agency-site/internal/handler/http/middleware"
	"agency-site/internal/handler/http/requestid"
	"agency-site/internal/infra/generator"
	"agency-site/internal/observability/logging"
	"agency-site/internal/observability/metrics"
	"agency-site/internal/observability/tracing"
	"agency-site/internal/usecase/copywriting"
	"agency-site/pkg/config"
	"agency-site/pkg/ratelimit"
)

const (
	defaultHTTPAddr       = ":8080"
	defaultAdminAddr      = "127.0.0.1:9090"
	defaultRequestTimeout = 90 * time.Second
	maxBodyBytes          = 64 << 10
	shutdownTimeout       = 10 * time.Second
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	version := getVersion()
	metrics.SetBuildInfo(version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, version); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// components holds everything built from configuration at startup.
type components struct {
	limiter   *ratelimit.Limiter
	limiterMx *ratelimit.PrometheusMetrics
	generator copywriting.Generator
	copy      *copywriting.Service
	extractor middleware.IdentifierExtractor
	settings  *config.RateLimitSettings
	closers   []func() error
}

func (c *components) close(logger *slog.Logger) {
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			logger.Warn("failed to release resource", slog.Any("error", err))
		}
	}
}

func run(ctx context.Context, logger *slog.Logger, version string) error {
	comps, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer comps.close(logger)

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	sweepDone, err := hhttp.StartRateLimitSweep(sweepCtx, logger, comps.limiter, comps.settings.SweepSchedule, ratelimit.DefaultLimiterName)
	if err != nil {
		return err
	}

	public := &http.Server{
		Addr:              config.GetEnvString("HTTP_ADDR", defaultHTTPAddr),
		Handler:           publicHandler(logger, comps),
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	internal := &http.Server{
		Addr:              config.GetEnvString("ADMIN_ADDR", defaultAdminAddr),
		Handler:           adminHandler(logger, comps, version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{public, internal} {
		g.Go(func() error {
			logger.Info("server starting",
				slog.String("addr", srv.Addr),
				slog.String("version", version))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(public.Shutdown(shutdownCtx), internal.Shutdown(shutdownCtx))
	})

	err = g.Wait()
	cancelSweep()
	<-sweepDone
	return err
}

// setup loads configuration and builds the limiter, store and generator.
// Any configuration error aborts startup.
func setup(ctx context.Context, logger *slog.Logger) (*components, error) {
	settings, err := config.LoadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	aiCfg, err := aiconfig.LoadAIConfig()
	if err != nil {
		return nil, err
	}

	prompts, err := aiconfig.LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	proxyCfg, err := middleware.NewTrustedProxyConfig(settings.TrustProxy, settings.TrustedProxies)
	if err != nil {
		return nil, err
	}

	comps := &components{
		limiterMx: ratelimit.NewPrometheusMetrics(),
		extractor: middleware.NewExtractor(proxyCfg, logger),
		settings:  settings,
	}

	opts := []ratelimit.Option{
		ratelimit.WithMetrics(comps.limiterMx),
		ratelimit.WithName(ratelimit.DefaultLimiterName),
	}
	if settings.Backend == config.BackendRedis {
		store, closeStore, err := newRedisStore(ctx, logger, settings)
		if err != nil {
			return nil, err
		}
		comps.closers = append(comps.closers, closeStore)
		opts = append(opts, ratelimit.WithStore(store))
	}

	comps.limiter, err = ratelimit.New(settings.Limiter, opts...)
	if err != nil {
		comps.close(logger)
		return nil, err
	}

	comps.generator, err = generator.New(aiCfg, generator.NewPrometheusMetrics())
	if err != nil {
		comps.close(logger)
		return nil, err
	}

	presets := copywriting.DefaultPresets()
	presets.Ad = presets.Ad.Merge(toPreset(prompts.Prompts.Ad))
	presets.Email = presets.Email.Merge(toPreset(prompts.Prompts.Email))
	comps.copy = copywriting.NewService(comps.generator, presets)

	logger.Info("rate limiting initialized",
		slog.String("backend", settings.Backend),
		slog.Int("max_requests", settings.Limiter.MaxRequests),
		slog.Duration("window", settings.Limiter.Window),
		slog.Int("max_entries", settings.Limiter.MaxEntries),
		slog.Bool("trust_proxy", proxyCfg.Enabled),
		slog.Int("trusted_proxies_count", len(proxyCfg.AllowedCIDRs)))
	logger.Info("copy generator initialized",
		slog.String("provider", comps.generator.Name()),
		slog.String("model", aiCfg.Model))

	return comps, nil
}

// newRedisStore connects the shared Redis store. The store keeps no entry
// bound of its own, so the configured MaxEntries has no effect.
func newRedisStore(ctx context.Context, logger *slog.Logger, settings *config.RateLimitSettings) (*ratelimit.RedisStore, func() error, error) {
	client, err := connectRedis(ctx, settings.Redis)
	if err != nil {
		return nil, nil, err
	}

	logger.Warn("AI_RATE_LIMIT_MAX_ENTRIES is ignored by the redis rate limit backend; the redis maxmemory policy bounds memory instead",
		slog.Int("max_entries", settings.Limiter.MaxEntries),
		slog.String("redis_addr", settings.Redis.Addr))

	return ratelimit.NewRedisStore(client, ratelimit.RedisStoreConfig{
		Prefix: settings.Redis.Prefix,
	}), client.Close, nil
}

func connectRedis(ctx context.Context, cfg config.RedisSettings) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect rate limit redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func toPreset(p aiconfig.PromptPreset) copywriting.Preset {
	return copywriting.Preset{
		SystemPrompt: p.SystemPrompt,
		Temperature:  p.Temperature,
		MaxTokens:    p.MaxTokens,
	}
}

// publicHandler builds the visitor-facing server.
// Middleware order: Request ID → Recovery → Timeout → Input validation →
// Body limit → Tracing → Logging → Metrics. Everything that replaces the
// request context sits outside Logging and Metrics so they see r.Pattern.
func publicHandler(logger *slog.Logger, comps *components) http.Handler {
	mux := http.NewServeMux()
	generate.Register(mux, generate.Deps{
		Limiter:   comps.limiter,
		Copy:      comps.copy,
		Extractor: comps.extractor,
		Logger:    logger,
	})

	return hhttp.Chain(mux,
		requestid.Middleware,
		hhttp.Recover(logger),
		hhttp.Timeout(config.GetEnvDuration("HTTP_REQUEST_TIMEOUT", defaultRequestTimeout)),
		hhttp.InputValidation(),
		hhttp.LimitRequestBody(maxBodyBytes),
		tracing.Middleware,
		hhttp.Logging(logger),
		hhttp.MetricsMiddleware,
	)
}

// adminHandler builds the operator server: probes, metrics and quota overrides.
func adminHandler(logger *slog.Logger, comps *components, version string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", &hhttp.HealthHandler{
		Limiter:   comps.limiter,
		Generator: comps.generator,
		Version:   version,
	})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{Limiter: comps.limiter})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler(comps.limiterMx.Registry()))
	admin.Register(mux, comps.limiter, logger)

	return hhttp.Chain(mux,
		requestid.Middleware,
		hhttp.Recover(logger),
		hhttp.Logging(logger),
	)
}
