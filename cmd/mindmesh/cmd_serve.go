package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/xaenox/mindmesh-bot/internal/api"
	"github.com/xaenox/mindmesh-bot/internal/bot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveNoBot bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and, when a token is configured, the Telegram bot",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoBot, "no-bot", false, "Do not start the Telegram bot even if a token is configured")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := build()
	if err != nil {
		return err
	}
	defer a.Close()

	var telegram *bot.Bot
	if cfg.Telegram.Token != "" && !serveNoBot {
		if telegram, err = bot.New(cfg.Telegram.Token, a.Service, a.Store, logger); err != nil {
			return err
		}
	} else {
		logger.Info("Telegram bot disabled")
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(api.NewHandler(a.Service, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if telegram != nil {
		g.Go(func() error {
			return telegram.Start(ctx)
		})
	}

	return g.Wait()
}
