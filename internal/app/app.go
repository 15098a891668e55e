package app

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"whistlemcp/internal/infra/backend"
	"whistlemcp/internal/infra/config"
	"whistlemcp/internal/infra/extract"
	"whistlemcp/internal/infra/middleware"
	"whistlemcp/internal/infra/ratelimit"
	"whistlemcp/internal/infra/telemetry"
	"whistlemcp/internal/infra/tools"
)

const (
	serverName    = "dowhistle-mcp"
	serverVersion = "1.0.0"
)

type App struct {
	logger *zap.Logger
}

type ServeConfig struct {
	ConfigPath string
}

type ValidateConfig struct {
	ConfigPath string
}

func New(logger *zap.Logger) *App {
	return &App{
		logger: logger.Named("app"),
	}
}

// Serve loads configuration, assembles the tool server and blocks until
// the context is cancelled or the transport shuts down.
func (a *App) Serve(ctx context.Context, serveCfg ServeConfig) error {
	cfg, err := config.Load(serveCfg.ConfigPath)
	if err != nil {
		return err
	}

	logger, err := NewLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("config", serveCfg.ConfigPath),
		zap.String("environment", cfg.Environment),
		zap.String("transport", cfg.Transport),
		zap.String("backend", cfg.BackendBaseURL),
	)

	registry := prometheus.NewRegistry()
	var metrics telemetry.Metrics = telemetry.NewNoopMetrics()
	if cfg.MetricsEnabled {
		metrics = telemetry.NewPrometheusMetrics(registry)
	}

	client := backend.NewClient(backend.Options{
		BaseURL:        cfg.BackendBaseURL,
		APIKey:         cfg.APIKey,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
		Metrics:        metrics,
	})

	store, err := newRateLimitStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	limiter := ratelimit.NewLimiter(store, logger)

	extractor := extract.NewExtractor(cfg.OpenAIAPIKey, logger)
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OpenAI API key not configured, create_whistle will ask for clarification")
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, &mcp.ServerOptions{
		HasTools: true,
	})
	middleware.Install(server, limiter, metrics, logger)
	tools.NewRegistry(client, extractor, logger).Register(server)

	if serveCfg.ConfigPath != "" {
		if err := config.Watch(ctx, serveCfg.ConfigPath, logger, func(next config.Config) {
			client.SetBaseURL(next.BackendBaseURL)
			logger.Info("configuration reloaded",
				zap.String("backend", next.BackendBaseURL))
		}); err != nil {
			logger.Warn("config watch unavailable", zap.Error(err))
		}
	}

	go func() {
		err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
			Addr:          cfg.ObservabilityAddress,
			EnableMetrics: cfg.MetricsEnabled,
			ServiceName:   serverName,
			Environment:   cfg.Environment,
			Registry:      registry,
		}, logger)
		if err != nil {
			logger.Error("observability server exited", zap.Error(err))
		}
	}()

	switch cfg.Transport {
	case config.TransportStdio:
		logger.Info("serving on stdio")
		return server.Run(ctx, &mcp.StdioTransport{})
	default:
		return a.serveHTTP(ctx, cfg, server, logger)
	}
}

// serveHTTP runs the streamable HTTP transport. Inbound headers are
// stashed on the request context so the auth gate can read transport
// credentials.
func (a *App) serveHTTP(ctx context.Context, cfg config.Config, server *mcp.Server, logger *zap.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		JSONResponse: true,
	})

	httpServer := &http.Server{
		Addr: cfg.ListenAddress,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler.ServeHTTP(w, r.WithContext(telemetry.WithHeaders(r.Context(), r.Header)))
		}),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("serving streamable HTTP", zap.String("addr", cfg.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
			return err
		}
		logger.Info("http server stopped")
		return nil
	}
}

func newRateLimitStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (ratelimit.Store, error) {
	if cfg.RateLimitStore != config.RateStoreRedis {
		return ratelimit.NewMemoryStore(), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, falling back to in-memory rate limiting",
			zap.String("addr", cfg.RedisAddress),
			zap.Error(err),
		)
		return ratelimit.NewMemoryStore(), nil
	}
	logger.Info("rate limiting backed by redis", zap.String("addr", cfg.RedisAddress))
	return ratelimit.NewRedisStore(rdb), nil
}
