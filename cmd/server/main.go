package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	adviceapp "github.com/nutrifit/backend/internal/application/advice"
	leaderboardapp "github.com/nutrifit/backend/internal/application/leaderboard"
	libraryapp "github.com/nutrifit/backend/internal/application/library"
	quotaapp "github.com/nutrifit/backend/internal/application/quota"
	quotadomain "github.com/nutrifit/backend/internal/domain/quota"
	cacheinfra "github.com/nutrifit/backend/internal/infrastructure/cache"
	"github.com/nutrifit/backend/internal/infrastructure/config"
	"github.com/nutrifit/backend/internal/infrastructure/logger"
	quotainfra "github.com/nutrifit/backend/internal/infrastructure/quota"
	"github.com/nutrifit/backend/internal/infrastructure/telemetry"
	"github.com/nutrifit/backend/internal/interfaces/http/handler"
	"github.com/nutrifit/backend/internal/interfaces/http/middleware"
	"github.com/nutrifit/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting NutriFit Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	// Quota tracking
	registry, err := buildQuotaRegistry(cfg.Quota.Types)
	if err != nil {
		log.Fatal("Invalid quota type configuration", zap.Error(err))
	}

	counterStore, err := quotainfra.NewCounterStoreFactory(cfg.Redis, quotainfra.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create counter store", zap.Error(err))
	}
	defer closeQuietly(counterStore, "counter store", log)

	quotaOpts := []quotaapp.ServiceOption{
		quotaapp.WithLogger(log),
		quotaapp.WithUnavailablePolicy(cfg.Quota.UnavailablePolicy),
		quotaapp.WithSafetyBuffer(cfg.Quota.SafetyBuffer),
	}
	if loc, err := time.LoadLocation(cfg.Quota.DefaultTimezone); err == nil {
		quotaOpts = append(quotaOpts, quotaapp.WithDefaultLocation(loc))
	} else {
		log.Warn("Invalid default timezone, using UTC", zap.String("timezone", cfg.Quota.DefaultTimezone))
	}
	quotaService := quotaapp.NewService(registry, counterStore, quotaOpts...)

	// Indexed cache
	indexedCache, fallbackStore, err := cacheinfra.NewFactory(cfg.Redis, cfg.Cache, cacheinfra.WithFactoryLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to create cache", zap.Error(err))
	}
	defer closeQuietly(fallbackStore, "fallback store", log)

	// Typed cache bindings over the shared indexed cache
	adviceGuard := adviceapp.NewGuard(indexedCache, cfg.Cache.AdviceTTL, adviceapp.WithGuardLogger(log))
	snapshotStore := leaderboardapp.NewSnapshotStore(indexedCache, cfg.Cache.LeaderboardTTL)
	pageStore := libraryapp.NewPageStore(indexedCache, cfg.Cache.LibraryTTL)

	// Gin engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	if tracerProvider.IsEnabled() {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		defer rateLimiter.Close()
		engine.Use(middleware.RateLimit(rateLimiter))
	}

	// Unversioned system routes
	systemHandler := handler.NewSystemHandler(version, indexedCache)
	systemHandler.RegisterRoot(engine)

	// Versioned API behind identity
	engine.Use(middleware.Identity(middleware.IdentityConfig{
		Secret:         cfg.JWT.Secret,
		Issuer:         cfg.JWT.Issuer,
		AllowDevHeader: cfg.App.Env != "production",
	}))

	adviceGate := middleware.QuotaGate(quotaService, "ai_advice")
	router.NewRouter(engine).
		Register(handler.NewQuotaHandler(quotaService, log)).
		Register(handler.NewAdviceHandler(adviceGuard, adviceGate, log)).
		Register(handler.NewLeaderboardHandler(snapshotStore, log)).
		Register(handler.NewLibraryHandler(pageStore, log)).
		Register(handler.NewCacheHandler(indexedCache, log)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}

// buildQuotaRegistry turns the configured quota types into a registry
func buildQuotaRegistry(configs []config.QuotaTypeConfig) (*quotadomain.Registry, error) {
	types := make([]quotadomain.QuotaType, 0, len(configs))
	for _, tc := range configs {
		t, err := quotadomain.NewQuotaType(tc.Key, tc.FreeLimit, quotadomain.ResetPeriod(tc.ResetPeriod))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return quotadomain.NewRegistry(types...)
}

// closeQuietly closes anything closable, logging failures
func closeQuietly(v any, name string, log *zap.Logger) {
	if closer, ok := v.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Error("Error closing "+name, zap.Error(err))
		}
	}
}
