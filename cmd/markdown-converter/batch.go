// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tomanizer/markdown-converter/internal/batch"
	"github.com/tomanizer/markdown-converter/internal/capability"
	"github.com/tomanizer/markdown-converter/internal/report"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch [input-dir]",
	Short: "Convert a directory tree of documents concurrently",
	Long: `Batch discovers every supported document under input-dir, partitions
the files into chunks, and converts them on a bounded worker pool. Failures
are isolated per file; the run always completes and prints a summary. The
exit code is nonzero when any file failed, unless --continue-on-error is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	applyConversionFlags(cmd, &cfg.Conversion)
	applyBatchFlags(cmd, &cfg.Batch)

	outputDir, _ := cmd.Flags().GetString("output-dir")

	runner, err := batch.NewRunner(cfg.Batch, cfg.Conversion, capability.Bootstrap(cfg.Conversion), os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := runner.Run(ctx, args[0], outputDir)
	if err != nil {
		return err
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		cfg.Report.Path = reportPath
		if err := saveRunReport(cfg.Report, "batch", args[0], outputDir, result); err != nil {
			fmt.Fprintf(os.Stderr, "warning: run report not saved: %v\n", err)
		}
	}

	if result.Stats.HasFailures() && !cfg.Batch.ContinueOnError {
		return fmt.Errorf("%d file(s) failed conversion", result.Stats.FailedFiles)
	}
	return nil
}

func applyBatchFlags(cmd *cobra.Command, cfg *types.BatchConfig) {
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.ChunkSize, _ = cmd.Flags().GetInt("chunk-size")
	}
	if cmd.Flags().Changed("file-size-limit") {
		cfg.FileSizeLimitMB, _ = cmd.Flags().GetInt("file-size-limit")
	}
	if cmd.Flags().Changed("max-memory") {
		cfg.MaxMemoryMB, _ = cmd.Flags().GetInt("max-memory")
	}
	if cmd.Flags().Changed("continue-on-error") {
		cfg.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}
	if cmd.Flags().Changed("progress") {
		cfg.Progress, _ = cmd.Flags().GetBool("progress")
	}
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().Int("workers", 0, "worker pool size (default: min(NumCPU, 8))")
	cmd.Flags().Int("chunk-size", 10, "files dispatched to a worker per chunk")
	cmd.Flags().Int("file-size-limit", 70, "skip files larger than this many MB")
	cmd.Flags().Int("max-memory", 2048, "advisory memory ceiling in MB")
	cmd.Flags().Bool("continue-on-error", true, "exit zero even when some files fail")
	cmd.Flags().Bool("progress", true, "print per-chunk progress")
}

// saveRunReport persists a finished run to the SQLite history store.
func saveRunReport(cfg types.ReportConfig, kind, inputDir, outputDir string, result *batch.RunResult) error {
	store, err := report.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.SaveRun(context.Background(), report.Run{
		Kind:      kind,
		InputDir:  inputDir,
		OutputDir: outputDir,
		Stats:     result.Stats,
	}, result.Outcomes)
	return err
}

func init() {
	batchCmd.Flags().String("output-dir", "", "output directory (default: <input-dir>_converted)")
	batchCmd.Flags().String("report", "", "SQLite file to record the run in")
	addBatchFlags(batchCmd)
	addConversionFlags(batchCmd)

	rootCmd.AddCommand(batchCmd)
}
