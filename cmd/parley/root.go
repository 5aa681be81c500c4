package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a conversational bot engine",
	Long:  `Parley dispatches inbound messages through a fuzzy-matched transition graph, with one locked register per conversation.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "parley.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().String("bot", "", "Path to the bot definition (overrides the config)")
}
