package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"franchisee-hub/internal/common/config"
	"franchisee-hub/internal/common/logger"

	"go.uber.org/zap"
)

func main() {
	boot := logger.New("info", "console", "stderr")

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zapLog.Info("starting franchisee-hub",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	a, err := build(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer a.close()

	if err := a.run(ctx); err != nil {
		zapLog.Error("server stopped with error", zap.Error(err))
		a.close()
		os.Exit(1)
	}
	zapLog.Info("franchisee-hub stopped")
}
