package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopflow/internal/core/domain"
	"shopflow/internal/core/services"
	httphandlers "shopflow/internal/handlers/http"
	"shopflow/internal/infrastructure/backend"
	"shopflow/internal/infrastructure/channels"
	"shopflow/internal/infrastructure/middleware"
	"shopflow/internal/infrastructure/monitoring"
	"shopflow/internal/infrastructure/poll"
	"shopflow/internal/infrastructure/realtime"
	"shopflow/pkg/backoff"
	"shopflow/pkg/cache"
	"shopflow/pkg/config"
	"shopflow/pkg/logger"
	"shopflow/pkg/retry"
	"shopflow/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/shopflow/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	collector := monitoring.NewCollector()

	// Backend REST client
	backendCfg := backend.DefaultClientConfig(cfg.Backend.BaseURL)
	backendCfg.RequestTimeout = cfg.Backend.RequestTimeout
	if cfg.Backend.RetryAttempts > 0 {
		backendCfg.Retry = retry.DefaultConfig()
		backendCfg.Retry.MaxAttempts = cfg.Backend.RetryAttempts
	}
	backendClient := backend.NewClient(backendCfg, collector, logger.Named(zapLogger, "backend"))

	// Core services
	metricsService := services.NewMetricsService(backendClient, logger.Named(zapLogger, "metrics"))
	defer metricsService.Close()

	entityCache := cache.New(cfg.Backend.EntityCacheTTL)
	defer entityCache.Stop()
	directoryService := services.NewDirectoryService(backendClient, entityCache, logger.Named(zapLogger, "directory"))

	// Hosted realtime channels over redis pub/sub
	var presence *channels.PresenceManager
	if cfg.Redis.Enabled && cfg.Channels.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		bus := channels.NewRedisBus(redisClient, logger.Named(zapLogger, "bus"))

		registry := channels.NewRegistry(bus, func() domain.Status {
			if presence == nil {
				return domain.StatusDisconnected
			}
			return presence.State().Status
		}, collector, logger.Named(zapLogger, "channels"), true)
		defer registry.Close()

		presenceCfg := channels.DefaultPresenceConfig(uuid.NewString())
		presenceCfg.HeartbeatInterval = cfg.Channels.HeartbeatInterval
		presenceCfg.Backoff = backoff.Exponential{
			Base:        cfg.Channels.ReconnectBaseDelay,
			Max:         cfg.Channels.ReconnectMaxDelay,
			MaxAttempts: cfg.Channels.MaxReconnectAttempts,
		}
		presenceCfg.SettleDelay = cfg.Channels.SettleDelay
		presence = channels.NewPresenceManager(presenceCfg, registry, logger.Named(zapLogger, "presence"))
		presence.OnStateChange(metricsService.SetConnectionState)
		defer presence.Disconnect()

		if err := presence.Connect(rootCtx); err != nil {
			log.Warnw("presence connect failed", "error", err)
		}

		// Row-change invalidation of the entity cache
		invalidate := directoryService.RowChangeInvalidator()
		_, err = registry.Subscribe(rootCtx, "employees", channels.ChannelConfig{
			RowChanges: []channels.RowChangeConfig{{
				Event:  "*",
				Schema: "public",
				Table:  "employees",
				Handler: func(c channels.RowChange) {
					invalidate(c.Event)
				},
			}},
			OnError: func(err error) {
				log.Warnw("employees channel error", "error", err)
			},
		})
		if err != nil {
			log.Warnw("employees channel subscribe failed", "error", err)
		}
	}

	// Application-level metrics WebSocket
	if cfg.WebSocket.Enabled {
		wsCfg := realtime.DefaultConfig(cfg.WebSocket.URL)
		wsCfg.PingInterval = cfg.WebSocket.PingInterval
		wsCfg.HandshakeTimeout = cfg.WebSocket.HandshakeTimeout
		wsCfg.Backoff = backoff.Linear{
			Step:        cfg.WebSocket.ReconnectStep,
			MaxAttempts: cfg.WebSocket.MaxReconnects,
		}

		wsClient := realtime.NewWSClient(wsCfg, realtime.Handlers{
			OnMetrics: metricsService.ApplyMetricsUpdate,
			OnAlert: func(n domain.Notification) {
				metricsService.AddAlert(n.Severity, n.Title, n.Message)
			},
			OnEvent: metricsService.HandleCameraEvent,
			OnState: metricsService.SetConnectionState,
		}, collector, logger.Named(zapLogger, "websocket"))
		defer wsClient.Disconnect()

		if err := wsClient.Connect(rootCtx); err != nil {
			log.Warnw("websocket connect failed, reconnect scheduled", "error", err)
		}
	}

	// Camera event stream (SSE)
	if cfg.Stream.Enabled {
		sse := realtime.NewSSEClient(cfg.Backend.BaseURL+cfg.Stream.Path, logger.Named(zapLogger, "stream"))
		go func() {
			if err := sse.Run(rootCtx, metricsService.HandleCameraEvent); err != nil && rootCtx.Err() == nil {
				log.Errorw("event stream stopped", "error", err)
			}
		}()
	}

	// Initial load, then the polling fallback
	metricsService.Bootstrap(rootCtx)

	poller := poll.New(poll.Config{
		Enabled:  cfg.Polling.Enabled,
		Interval: cfg.Polling.Interval,
	}, metricsService, collector, logger.Named(zapLogger, "poll"))
	go poller.Run(rootCtx)

	// HTTP API
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger.Named(zapLogger, "http")))
	router.Use(middleware.ErrorHandlerMiddleware(logger.Named(zapLogger, "http")))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewRateLimitMiddleware(cfg))

	httphandlers.NewDashboardHandler(metricsService, directoryService).SetupRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
			"live":      metricsService.IsLive(),
		})
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting ShopFlow dashboard server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}
}
