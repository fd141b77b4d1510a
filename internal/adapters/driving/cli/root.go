// Package cli provides the vecsync command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vecsync/internal/config"
	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services built lazily by ensureServices once flags are parsed.
var (
	pipelineRunner driving.PipelineRunner
	appConfig      *config.Config
	cleanup        func()
)

var (
	verboseFlag    bool
	configPathFlag string
)

var rootCmd = &cobra.Command{
	Use:   "vecsync",
	Short: "Sync documents into a vector index",
	Long: `vecsync incrementally synchronises documents from configured
sources (filesystem, github) into a vector index. Only new and changed
documents are converted, chunked, embedded and upserted; documents that
disappear from their source are removed from the index.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "config file path (default ~/.vecsync/config.toml)")
}

// ConfigPath returns the config file path from the flag or the default
// location.
func ConfigPath() (string, error) {
	if configPathFlag != "" {
		return configPathFlag, nil
	}
	return config.DefaultPath()
}

// Execute runs the root command.
func Execute() {
	defer func() {
		if cleanup != nil {
			cleanup()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}
