package main

import (
	"fmt"
	"os"

	"github.com/petems/micrecorder/internal/audio"
	"github.com/petems/micrecorder/internal/config"
	"github.com/petems/micrecorder/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	log      zerolog.Logger
	cfgFile  string
	backend  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "micrecorder",
	Short: "Capture microphone audio and stream it to a processor",
	Long: `micrecorder opens an audio capture device, polls it on a fixed
interval and hands the samples to a level meter.

Only one recording can hold a capture device at a time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if backend != "" {
			cfg.Backend = backend
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log = logging.FromConfig(cfg)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, Commit)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", fmt.Sprintf("audio backend: %v (overrides config)", audio.Kinds()))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(availableCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(configCmd)
}

// openBackend initializes the configured capture backend
func openBackend() (audio.Backend, error) {
	b, err := audio.New(cfg.Backend, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio: %w", err)
	}
	return b, nil
}
