// Package commands implements the lecturecast CLI.
package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/lecturecast/internal/app"
	"github.com/spherical/lecturecast/internal/config"
	"github.com/spherical/lecturecast/internal/observability"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "lecturecast",
	Short: "Turn slide decks and PDFs into narrated lectures",
	Long: `lecturecast extracts the text and images of every page of a .pptx or .pdf,
writes lecture narration for each page and synthesizes it to audio.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadApp loads configuration and opens the ledger and cache. Commands that call the
// text and speech APIs pass requireCredentials so a missing key fails before any work.
func loadApp(ctx context.Context, requireCredentials bool) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if requireCredentials {
		if err := cfg.ValidateCredentials(); err != nil {
			return nil, err
		}
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: cfg.Observability.ServiceName,
	})

	return app.New(ctx, cfg, logger)
}
