package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/config"
	"github.com/jask/teammate/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "teammate",
	Short: "Teammate - a meeting assistant that routes spoken commands",
	Long: `Teammate listens for commands addressed to it by name, works out which
capability is wanted and hands the command to that capability:

  schedule   create a calendar event and queue reminders
  notes      record meeting minutes from the audio bridge
  present    share a slide deck into the meeting chat
  message    tell, send, call, say or remind
  read       read a document or answer a question about it
  suggest    propose a next step from recent discussion`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv("TEAMMATE_CONFIG", configPath); err != nil {
				return err
			}
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger, err = logging.New(cfg.Log)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/teammate/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd.Flags().BoolVar(&demo, "demo", false, "run the scripted meeting walkthrough")
	resetCmd.Flags().BoolVar(&confirmReset, "yes", false, "confirm wiping stored data")

	rootCmd.AddCommand(serveCmd, runCmd, consoleCmd, checkCmd, samplesCmd, resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
