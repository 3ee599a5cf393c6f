package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pledge",
	Short: "Pledge is an ephemeral proposal/confirmation workflow engine",
	Long: `Pledge runs propose/accept/reject workflows with deadlines: marriage
proposals, broadcast approvals, and confirmations for destructive actions.
Configuration is read from PLEDGE_* environment variables.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
