package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/pledge"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pledge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pledge version %s\n", pledge.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
