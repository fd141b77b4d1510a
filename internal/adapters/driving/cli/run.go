package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
)

var (
	runProjectFlag string
	runSourceFlag  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one synchronisation pass",
	Long: `Fetches documents from all configured sources, classifies them
against the state ledger, and pushes new and changed content through
conversion, chunking, embedding and vector upsert. Documents missing
from their source are tombstoned and removed from the index.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runProjectFlag, "project", "", "restrict the run to one project")
	runCmd.Flags().StringVar(&runSourceFlag, "source", "", "restrict the run to one source type")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if len(appConfig.Sources) == 0 {
		return fmt.Errorf("no sources configured; add [[sources]] entries to the config file")
	}

	// Ctrl-C cancels admission; the pipeline drains in-flight work.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := driving.RunFilter{
		ProjectID:  runProjectFlag,
		SourceType: runSourceFlag,
	}

	cmd.Println("Starting synchronisation...")
	run, err := runWithProgress(ctx, cmd, filter)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printRun(cmd, run)
	if run.Status == domain.RunFailed {
		return fmt.Errorf("run %s failed", run.RunID)
	}
	return nil
}

// runWithProgress executes the pipeline while printing progress updates.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	filter driving.RunFilter,
) (*domain.PipelineRun, error) {
	type result struct {
		run *domain.PipelineRun
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		run, err := pipelineRunner.Run(ctx, filter)
		resCh <- result{run, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastSeen := 0
	for {
		select {
		case res := <-resCh:
			return res.run, res.err
		case <-ticker.C:
			if status := pipelineRunner.Status(); status != nil && status.Seen > lastSeen {
				cmd.Printf("\rProcessing... %d seen, %d committed, %d failed",
					status.Seen, status.Processed, status.Failed)
				lastSeen = status.Seen
			}
		}
	}
}

// printRun renders the run report.
func printRun(cmd *cobra.Command, run *domain.PipelineRun) {
	if run == nil {
		return
	}
	cmd.Printf("\nRun %s: %s\n", run.RunID, run.Status)
	cmd.Printf("  seen %d | new %d | changed %d | unchanged %d | deleted %d | failed %d\n",
		run.Counts.Seen, run.Counts.New, run.Counts.Changed,
		run.Counts.Unchanged, run.Counts.Deleted, run.Counts.Failed)

	if len(run.Failures) > 0 {
		cmd.Println("  failures:")
		for _, f := range run.Failures {
			cmd.Printf("    %s [%s/%s]: %s\n", f.DocumentID, f.Stage, f.Kind, f.Message)
		}
	}
}
