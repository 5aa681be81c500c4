package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardelane/parley/internal/adapters/console"
	"github.com/ardelane/parley/pkg/domain"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot in the terminal",
	Long:  `Starts an interactive session: each line you type is dispatched as a message, replies render inline.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runChat(cmd); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	bot, err := buildBot(cfg, logger, domain.Hooks{})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	chat := console.NewChat(bot, os.Stdin, os.Stdout, logger)
	return chat.Run(ctx)
}
