package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pledge/internal/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single expiry sweep and retention prune",
	Long: `Runs one pass over the proposal store: force-expires proposals past
their deadline and prunes terminal ones past the retention window. Meant for
cron-style deployments that don't keep a server running.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadFromEnv()
		logger := newLogger(cfg)
		ctx := context.Background()

		svc, err := buildService(ctx, cfg, logger)
		if err != nil {
			fmt.Printf("Error initializing pledge: %v\n", err)
			os.Exit(1)
		}

		if err := svc.SweepOnce(ctx); err != nil {
			fmt.Printf("Sweep failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
