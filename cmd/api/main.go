package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smiledental/reception-agent/internal/api/router"
	"github.com/smiledental/reception-agent/internal/app/bootstrap"
	"github.com/smiledental/reception-agent/internal/chat"
	appconfig "github.com/smiledental/reception-agent/internal/config"
	"github.com/smiledental/reception-agent/internal/observability/metrics"
	"github.com/smiledental/reception-agent/pkg/logging"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reception-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	convMetrics := metrics.NewConversation(registry)

	ctx := context.Background()

	engine, cleanup, err := bootstrap.BuildEngine(ctx, cfg, logger, convMetrics)
	if err != nil {
		logger.Error("failed to build conversation engine", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	states := bootstrap.BuildStateStore(redisClient, logger)

	db, err := bootstrap.BuildPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}
	transcripts := bootstrap.BuildTranscriptStore(db)

	chatHandler := chat.NewHandler(engine, states, transcripts, logger)

	routerCfg := &router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
		RateLimitPerSecond: float64(cfg.RateLimitPerSec),
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
