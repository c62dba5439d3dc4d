package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/hostportal/backend/internal/adapters/cache"
	"github.com/zatekoja/hostportal/backend/internal/adapters/database"
	"github.com/zatekoja/hostportal/backend/internal/adapters/events"
	"github.com/zatekoja/hostportal/backend/internal/api/handlers"
	"github.com/zatekoja/hostportal/backend/internal/api/middleware"
	"github.com/zatekoja/hostportal/backend/internal/api/routes"
	"github.com/zatekoja/hostportal/backend/internal/application/services"
	"github.com/zatekoja/hostportal/backend/internal/domain/providers"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/clients/upstream"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/observability"
	"github.com/zatekoja/hostportal/backend/pkg/config"
	"github.com/zatekoja/hostportal/backend/pkg/retry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env, cfg.App.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	routeMetrics := observability.NewRouteMetrics(cfg.Metrics.Namespace)

	// Redis and Postgres are optional; the gateway routes without them
	optionalRetry := retry.DefaultConfig()
	optionalRetry.MaxAttempts = 3
	optionalRetry.MaxTotalTimeout = 10 * time.Second

	var (
		redisClient   *redis.Client
		redisPinger   handlers.Pinger
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis, optionalRetry)
		if err != nil {
			log.Warn().Err(err).Msg("continuing without Redis: static cache and event bus disabled")
		} else {
			defer redisClient.Close()
			redisPinger = redisClient
			cacheProvider = cache.NewRedisAdapter(redisClient, "gateway:")
			eventBus = events.NewRedisEventBus(redisClient)
		}
	}

	var (
		pgClient         *postgres.Client
		pgPinger         handlers.Pinger
		analyticsService *services.RedirectAnalyticsService
		scheduler        *services.RetentionScheduler
		tracker          middleware.RedirectTracker
		stats            handlers.RedirectStatsService
	)
	if cfg.Analytics.Enabled {
		pgClient, err = postgres.NewClient(ctx, &cfg.Database, optionalRetry)
		if err != nil {
			log.Warn().Err(err).Msg("continuing without redirect analytics: PostgreSQL unavailable")
		} else {
			defer pgClient.Close()
			pgPinger = pgClient

			repo := database.NewRedirectAnalyticsAdapter(pgClient)
			if err := repo.EnsureSchema(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to prepare redirect analytics schema")
			}

			analyticsService = services.NewRedirectAnalyticsService(repo, eventBus, routeMetrics, cfg.Analytics.RetentionDays)
			if err := analyticsService.Start(); err != nil {
				log.Fatal().Err(err).Msg("failed to start redirect analytics")
			}
			tracker = analyticsService
			stats = analyticsService

			scheduler, err = services.NewRetentionScheduler(analyticsService, cfg.Analytics.RetentionSchedule)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to schedule redirect retention")
			}
			scheduler.Start()
		}
	}

	// Routing
	portalRouter := services.NewPortalRouter(cfg.Portal)
	for _, def := range portalRouter.Definitions() {
		log.Info().
			Str("portal", string(def.Portal)).
			Str("subdomain", def.Subdomain).
			Str("prefix", def.Prefix).
			Int("owned_paths", len(def.OwnedPaths)).
			Msg("portal registered")
	}

	proxy, err := upstream.NewProxy(&cfg.Upstream, metrics, routeMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create upstream proxy")
	}

	var staticCache *middleware.StaticCacheMiddleware
	if cacheProvider != nil {
		staticCache = middleware.NewStaticCacheMiddleware(cacheProvider, cfg.Redis.StaticCacheTTLSeconds, metrics)
	}

	router := routes.NewRouter(
		handlers.NewHealthHandler(upstream.NewClient(&cfg.Upstream), pgPinger, redisPinger),
		handlers.NewResolveHandler(portalRouter, cfg.Portal.DefaultScheme, cfg.Portal.RedirectStatus),
		handlers.NewAnalyticsHandler(stats),
		middleware.NewSubdomainRouting(portalRouter, cfg.Portal, routeMetrics, tracker),
		staticCache,
		publicFiles(cfg.Portal.PublicPaths),
		proxy,
		metrics,
		routeMetrics,
	)

	serverAddr := cfg.Server.ServerAddr()
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("upstream", cfg.Upstream.URL).Msg("gateway starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("gateway shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if analyticsService != nil {
		analyticsService.Stop()
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}

	log.Info().Msg("gateway stopped")
}

// publicFiles returns the root-level public files that get asset cache headers
func publicFiles(extra []string) []string {
	var files []string
	for _, p := range append(append([]string{}, services.DefaultPublicPaths...), extra...) {
		if strings.Contains(p, ".") {
			files = append(files, p)
		}
	}
	return files
}
