package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/config"
	"github.com/lattice-iot/gpio-bridge/internal/controller"
	"github.com/lattice-iot/gpio-bridge/internal/logger"
)

var Version = "0.1.0"

func main() {
	fmt.Printf("gpio-bridge v%s starting\n", Version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logger.Level
	logCfg.Format = cfg.Logger.Format
	logCfg.LogDir = cfg.Logger.LogDir
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	zapLogger := logger.Get()
	gpio := initHAL(cfg.SimulateHardware, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl, err := controller.New(ctx, cfg, gpio, zapLogger)
	if err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}

	if err := ctrl.Start(ctx); err != nil {
		logger.Fatal("failed to start bridge", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping")
	cancel()
	ctrl.Stop()
	logger.Info("gpio-bridge stopped")
}
