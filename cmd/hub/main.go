package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"

	"wavelink/internal/core/ports"
	"wavelink/internal/core/services"
	httphandlers "wavelink/internal/handlers/http"
	"wavelink/internal/infrastructure/middleware"
	"wavelink/internal/infrastructure/monitoring"
	"wavelink/internal/infrastructure/signal"
	"wavelink/pkg/config"
	"wavelink/pkg/logger"
	"wavelink/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Try multiple config paths
	cfg, err := config.LoadFirst(
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/wavelink/config.yaml",
		"config.yaml",
	)
	if err != nil {
		stdlog.Fatalf("invalid configuration: %v", err)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	var metrics ports.Metrics
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)
	}

	coordinator := services.NewCoordinator(cfg.Hub.RingTimeout, metrics, log)

	var authService services.AuthService
	if cfg.Auth.Enabled {
		authService = services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}

	wsServer := signal.NewWebSocketServer(coordinator, authService, cfg, log)
	statusHandler := httphandlers.NewStatusHandler(coordinator, cfg)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	// The upgrade endpoint gets its own connection budget; HTTP rate
	// limiting would cut off long-lived websockets.
	router.GET("/ws", middleware.NewWSConnectRateLimitMiddleware(cfg), gin.WrapF(wsServer.HandleWebSocket))

	api := router.Group("/")
	api.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	// The token-mint route and the health probe stay open; everything else
	// under /api/v1 requires a token when auth is on.
	var protected []gin.HandlerFunc
	if cfg.Auth.Enabled {
		protected = append(protected, middleware.AuthMiddleware(authService))
	}
	statusHandler.SetupRoutes(api, protected...)
	if cfg.Auth.Enabled {
		httphandlers.NewAuthHandler(authService).SetupRoutes(api)
	}

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
		log.Infof("Starting wavelink hub on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	ossignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down wavelink hub...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	coordinator.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("tracer shutdown failed", "error", err)
	}

	log.Info("Shutdown complete")
}
