// Command agent runs the reception agent interactively on the console.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/smiledental/reception-agent/internal/app/bootstrap"
	appconfig "github.com/smiledental/reception-agent/internal/config"
	"github.com/smiledental/reception-agent/internal/observability/metrics"
	"github.com/smiledental/reception-agent/internal/voice"
	"github.com/smiledental/reception-agent/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reception-agent console", "clinic", cfg.ClinicName)

	var convMetrics *metrics.Conversation

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := bootstrap.BuildEngine(ctx, cfg, logger, convMetrics)
	if err != nil {
		logger.Error("failed to build conversation engine", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	console := voice.NewConsole(os.Stdin, os.Stdout)
	agent := voice.NewAgent(console, engine, logger)

	if err := agent.Run(ctx); err != nil {
		logger.Error("agent stopped with error", "error", err)
		os.Exit(1)
	}
}
