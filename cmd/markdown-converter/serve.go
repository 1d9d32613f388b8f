// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomanizer/markdown-converter/internal/capability"
	"github.com/tomanizer/markdown-converter/internal/grid"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the grid scheduler as an HTTP server",
	Long: `Serve starts a local worker cluster and exposes it over HTTP so remote
clients can submit, inspect, and cancel conversion jobs with the grid
subcommands. The server drains in-flight jobs on interrupt.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	applyConversionFlags(cmd, &cfg.Conversion)

	addr, _ := cmd.Flags().GetString("addr")
	if workers, _ := cmd.Flags().GetInt("workers"); cmd.Flags().Changed("workers") {
		cfg.Grid.Workers = workers
	}

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
	fmt.Fprintf(os.Stdout, "cluster started: %d workers\n", info.Workers)

	srv := &http.Server{
		Addr:              addr,
		Handler:           grid.NewServer(coord).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stdout, "scheduler listening on %s\n", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().String("addr", ":8786", "listen address")
	serveCmd.Flags().Int("workers", 4, "concurrent job executors")
	addConversionFlags(serveCmd)

	rootCmd.AddCommand(serveCmd)
}
