package main

import (
	"fmt"
	"os"

	"github.com/ardelane/parley/internal/config"
	"github.com/ardelane/parley/pkg/engine"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [bot.yaml]",
	Short: "Check a bot definition for consistency",
	Long:  `Compiles the bot definition and reports every problem at once: dangling states, missing triggers, weights out of range.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Bot definition is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Bot = args[0]
	}

	def, err := config.LoadBot(cfg.Bot)
	if err != nil {
		return err
	}

	registry := engine.NewRegistry()
	def.RegisterStates(registry)

	manager := engine.NewManager(def.Transitions, def.DefaultState)
	findings := engine.Validate(manager, registry)
	if len(findings) == 0 {
		return nil
	}

	for _, f := range findings {
		fmt.Println(f)
	}
	return fmt.Errorf("%d problem(s) found", len(findings))
}
