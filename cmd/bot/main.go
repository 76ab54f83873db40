package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/xaenox/mindmesh-bot/internal/app"
	"github.com/xaenox/mindmesh-bot/internal/bot"
	"github.com/xaenox/mindmesh-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	// Initialize logger
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		zap.NewExample().Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()

	if cfg.Telegram.Token == "" {
		logger.Fatal("Telegram token is not configured; set TELEGRAM_TOKEN")
	}

	// Storage, gateway and sessions
	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize assistant", zap.Error(err))
	}
	defer a.Close()

	if err := a.ChatReady(); err != nil {
		logger.Fatal("Chat model is not configured", zap.Error(err))
	}

	b, err := bot.New(cfg.Telegram.Token, a.Service, a.Store, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		logger.Error("Bot error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}
