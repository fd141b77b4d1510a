package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
	"github.com/custodia-labs/vecsync/internal/core/services"
	"github.com/custodia-labs/vecsync/internal/logger"
)

var watchFlag bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run synchronisation on a fixed interval",
	Long: `Runs one synchronisation pass immediately and then repeats on
the configured interval until interrupted. Runs never overlap.

With --watch, sources that support change notifications (filesystem)
also trigger a run shortly after a change instead of waiting for the
next interval.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVar(&watchFlag, "watch", false, "trigger runs on source change events")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if len(appConfig.Sources) == 0 {
		return fmt.Errorf("no sources configured; add [[sources]] entries to the config file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := appConfig.Daemon.Interval.Std()
	cmd.Printf("Starting daemon (interval %s). Ctrl-C to stop.\n", interval)

	scheduler := services.NewScheduler(interval, pipelineRunner, driving.RunFilter{})

	if watchFlag {
		watcher := services.NewWatcher(
			connectorFactory,
			appConfig.DomainSources(),
			appConfig.Daemon.WatchDebounce.Std(),
			scheduler.Trigger,
		)
		go func() {
			if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("watch mode unavailable: %v", err)
			}
		}()
	}

	if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cmd.Println("Daemon stopped.")
	return nil
}
