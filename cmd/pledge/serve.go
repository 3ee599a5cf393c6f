package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/aretw0/pledge/internal/adapters/http"
	"github.com/aretw0/pledge/internal/config"
	"github.com/aretw0/pledge/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workflow HTTP server",
	Long: `Starts the proposal workflow engine behind a JSON API, with the
background expiry sweep running alongside it.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadFromEnv()
		logger := newLogger(cfg)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		svc, err := buildService(ctx, cfg, logger)
		if err != nil {
			fmt.Printf("Error initializing pledge: %v\n", err)
			os.Exit(1)
		}

		handler := httpAdapter.NewHandler(svc.Engine(), httpAdapter.WithLogger(logger))
		handler.Method(http.MethodGet, "/metrics", telemetry.MetricsHandler())

		srv := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: handler,
		}

		go svc.RunSweeper(ctx)

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server starting", "addr", cfg.ListenAddr, "store", cfg.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())
			cancel() // stops the sweeper

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("server close failed", "err", err)
				}
			}
			logger.Info("server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
