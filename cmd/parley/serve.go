package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/ardelane/parley/internal/adapters/http"
	"github.com/ardelane/parley/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long:  `Starts the engine in server mode: inbound messages arrive as JSON webhooks, replies come back in the response body.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides the config)")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	bot, err := buildBot(cfg, logger, m.Hooks())
	if err != nil {
		return err
	}

	handler := httpAdapter.NewHandler(bot, bot.Validate, logger)
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handler,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting webhook server", "addr", srv.Addr, "bot", cfg.Bot)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		logger.Info("server stopped")
	}
	return nil
}
