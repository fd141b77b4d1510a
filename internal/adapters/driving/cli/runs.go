package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var runsLimitFlag int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent run history",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimitFlag, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	runs, err := runStore.ListRuns(cmd.Context(), runsLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}

	for _, run := range runs {
		duration := ""
		if !run.FinishedAt.IsZero() {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		cmd.Printf("%s  %-9s  %s  %s\n", run.StartedAt.Format(time.RFC3339), run.Status, run.RunID, duration)
		cmd.Printf("    seen %d | new %d | changed %d | unchanged %d | deleted %d | failed %d\n",
			run.Counts.Seen, run.Counts.New, run.Counts.Changed,
			run.Counts.Unchanged, run.Counts.Deleted, run.Counts.Failed)
	}
	return nil
}
