// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomanizer/markdown-converter/internal/report"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded conversion runs from a report database",
	Long: `Runs reads the SQLite history written by batch --report and lists past
runs newest first. With --id it prints the per-file outcomes of one run.`,
	RunE: runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if path, _ := cmd.Flags().GetString("report"); path != "" {
		cfg.Report.Path = path
	}

	store, err := report.NewStore(cfg.Report)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if runID, _ := cmd.Flags().GetString("id"); runID != "" {
		return printOutcomes(ctx, store, runID)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no recorded runs")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tINPUT\tTOTAL\tOK\tFAILED\tSKIPPED\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.Kind, r.InputDir,
			r.Stats.TotalFiles, r.Stats.ProcessedFiles,
			r.Stats.FailedFiles, r.Stats.SkippedFiles,
			r.Stats.StartTime.Local().Format(time.RFC3339))
	}
	return tw.Flush()
}

func printOutcomes(ctx context.Context, store *report.Store, runID string) error {
	outcomes, err := store.Outcomes(ctx, runID)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Fprintf(os.Stdout, "no outcomes recorded for run %s\n", runID)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tRESULT\tCAPABILITY\tDURATION\tERROR")
	for _, o := range outcomes {
		result := "ok"
		if !o.Success {
			result = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.InputPath, result, o.Capability, o.Duration, o.Error)
	}
	return tw.Flush()
}

func init() {
	runsCmd.Flags().String("report", "", "SQLite report database path")
	runsCmd.Flags().String("id", "", "show per-file outcomes for one run")
	runsCmd.Flags().Int("limit", 0, "maximum runs to list (0 = retention window)")

	rootCmd.AddCommand(runsCmd)
}
