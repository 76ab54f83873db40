// Package app assembles storage, the completion gateway, the session
// registry and the assistant service from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/xaenox/mindmesh-bot/internal/assistant"
	"github.com/xaenox/mindmesh-bot/internal/llm"
	"github.com/xaenox/mindmesh-bot/internal/session"
	"github.com/xaenox/mindmesh-bot/internal/storage"
	"github.com/xaenox/mindmesh-bot/pkg/config"
	"go.uber.org/zap"
)

type App struct {
	Store    storage.Storage
	Sessions *session.Registry
	Service  *assistant.Service

	gatewayErr error
}

// Build wires every component. The caller owns the result and must Close it.
//
// A misconfigured provider does not fail Build: user and profile operations
// keep working and the error is returned when a session is opened. Front
// ends that only chat call ChatReady to fail at startup instead.
func Build(cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := OpenStorage(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	gateway, gatewayErr := llm.NewGateway(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if gatewayErr != nil {
		logger.Warn("Chat is unavailable", zap.Error(gatewayErr))
	}

	opts := session.Options{
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	}
	sessions := session.NewRegistry(func(ctx context.Context, username string) (*session.Session, error) {
		if gatewayErr != nil {
			return nil, gatewayErr
		}
		return session.Open(ctx, username, store, gateway, opts, logger)
	}, logger)

	logger.Info("Assistant ready",
		zap.String("database", cfg.Database.Driver),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model))

	return &App{
		Store:      store,
		Sessions:   sessions,
		Service:    assistant.NewService(store, sessions, logger),
		gatewayErr: gatewayErr,
	}, nil
}

// ChatReady returns the provider configuration error, if any.
func (a *App) ChatReady() error {
	return a.gatewayErr
}

func (a *App) Close() error {
	return a.Store.Close()
}

// OpenStorage returns the store selected by cfg.Driver.
func OpenStorage(cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	case config.DriverSQLite:
		logger.Info("Using SQLite storage")
		return storage.NewSQLiteStorage(cfg.Path, logger)
	case config.DriverPostgres:
		logger.Info("Using PostgreSQL storage")
		return storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
