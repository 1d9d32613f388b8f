// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomanizer/markdown-converter/internal/capability"
	"github.com/tomanizer/markdown-converter/internal/grid"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Run conversions on a worker cluster (run, submit, status, cancel)",
	Long: `Grid distributes directory conversions across a worker pool. The run
subcommand starts a local cluster, converts one directory, and tears the
cluster down. The submit, status, and cancel subcommands talk to a remote
scheduler started with the serve command.`,
}

// --- run subcommand ---

var gridRunCmd = &cobra.Command{
	Use:   "run [input-dir]",
	Short: "Convert a directory on a temporary local cluster",
	Args:  cobra.ExactArgs(1),
	RunE:  runGridRun,
}

func runGridRun(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	applyConversionFlags(cmd, &cfg.Conversion)
	applyBatchFlags(cmd, &cfg.Grid.Batch)
	applyGridFlags(cmd, &cfg.Grid)

	outputDir, _ := cmd.Flags().GetString("output-dir")

	coord, err := grid.NewCoordinator(cfg.Grid, cfg.Conversion, capability.Bootstrap(cfg.Conversion), os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	info, err := coord.StartCluster(ctx)
	if err != nil {
		return err
	}
	defer coord.StopCluster()
	fmt.Fprintf(os.Stdout, "cluster started: %s (%d workers)\n", info.SchedulerAddress, info.Workers)

	job, err := coord.SubmitJob(args[0], outputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "job submitted: %s\n", job.ID)

	final, err := coord.WaitForJob(ctx, job.ID)
	if err != nil {
		return err
	}
	printJob(os.Stdout, final)

	if final.Status != types.JobCompleted {
		return fmt.Errorf("job %s ended %s: %s", final.ID, final.Status, final.Error)
	}
	if final.FailedTasks > 0 {
		return fmt.Errorf("job %s completed with %d failed task(s)", final.ID, final.FailedTasks)
	}
	return nil
}

// --- submit subcommand ---

var gridSubmitCmd = &cobra.Command{
	Use:   "submit [input-dir]",
	Short: "Submit a directory conversion job to a remote scheduler",
	Args:  cobra.ExactArgs(1),
	RunE:  runGridSubmit,
}

func runGridSubmit(cmd *cobra.Command, args []string) error {
	client, err := schedulerClient(cmd)
	if err != nil {
		return err
	}
	outputDir, _ := cmd.Flags().GetString("output-dir")

	job, err := client.SubmitJob(context.Background(), args[0], outputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "job submitted: %s\n", job.ID)
	return nil
}

// --- status subcommand ---

var gridStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show one job, or all jobs when no ID is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGridStatus,
}

func runGridStatus(cmd *cobra.Command, args []string) error {
	client, err := schedulerClient(cmd)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		job, err := client.JobStatus(context.Background(), args[0])
		if err != nil {
			return err
		}
		printJob(os.Stdout, job)
		return nil
	}

	jobs, err := client.Jobs(context.Background())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stdout, "no jobs")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tINPUT\tTASKS\tFAILED")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\n",
			j.ID, j.Status, j.InputDir, j.CompletedTasks, j.TotalTasks, j.FailedTasks)
	}
	return tw.Flush()
}

// --- cancel subcommand ---

var gridCancelCmd = &cobra.Command{
	Use:   "cancel [job-id]",
	Short: "Cancel a submitted or running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runGridCancel,
}

func runGridCancel(cmd *cobra.Command, args []string) error {
	client, err := schedulerClient(cmd)
	if err != nil {
		return err
	}

	ok, err := client.CancelJob(context.Background(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("job %s not cancellable (unknown or already finished)", args[0])
	}
	fmt.Fprintf(os.Stdout, "job cancelled: %s\n", args[0])
	return nil
}

// --- shared helpers ---

func applyGridFlags(cmd *cobra.Command, cfg *types.GridConfig) {
	if cmd.Flags().Changed("grid-workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("grid-workers")
	}
	if cmd.Flags().Changed("job-timeout") {
		cfg.JobTimeout, _ = cmd.Flags().GetDuration("job-timeout")
	}
	if cmd.Flags().Changed("poll-interval") {
		cfg.PollInterval, _ = cmd.Flags().GetDuration("poll-interval")
	}
}

// schedulerClient resolves the remote scheduler address from the --scheduler
// flag or configuration.
func schedulerClient(cmd *cobra.Command) (*grid.Client, error) {
	addr, _ := cmd.Flags().GetString("scheduler")
	if addr == "" {
		addr = loadConfig().Grid.SchedulerAddress
	}
	if addr == "" {
		return nil, fmt.Errorf("%w: scheduler address required (--scheduler or grid.scheduler_address)", types.ErrConfigInvalid)
	}
	return grid.NewClient(addr), nil
}

func printJob(w *os.File, j types.JobRecord) {
	fmt.Fprintf(w, "job %s: %s\n", j.ID, j.Status)
	fmt.Fprintf(w, "  input: %s\n", j.InputDir)
	if j.OutputDir != "" {
		fmt.Fprintf(w, "  output: %s\n", j.OutputDir)
	}
	fmt.Fprintf(w, "  tasks: %d total, %d completed, %d failed\n",
		j.TotalTasks, j.CompletedTasks, j.FailedTasks)
	if j.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", j.Error)
	}
}

func init() {
	gridRunCmd.Flags().String("output-dir", "", "output directory (default: <input-dir>_converted)")
	gridRunCmd.Flags().Int("grid-workers", 4, "concurrent job executors")
	gridRunCmd.Flags().Duration("job-timeout", 0, "abandon jobs that run longer than this")
	gridRunCmd.Flags().Duration("poll-interval", 0, "delay between job status polls")
	addBatchFlags(gridRunCmd)
	addConversionFlags(gridRunCmd)

	for _, c := range []*cobra.Command{gridSubmitCmd, gridStatusCmd, gridCancelCmd} {
		c.Flags().String("scheduler", "", "remote scheduler address (host:port)")
	}
	gridSubmitCmd.Flags().String("output-dir", "", "output directory on the scheduler host")

	gridCmd.AddCommand(gridRunCmd)
	gridCmd.AddCommand(gridSubmitCmd)
	gridCmd.AddCommand(gridStatusCmd)
	gridCmd.AddCommand(gridCancelCmd)

	rootCmd.AddCommand(gridCmd)
}
