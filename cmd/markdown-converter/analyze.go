// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomanizer/markdown-converter/internal/capability"
	"github.com/tomanizer/markdown-converter/internal/registry"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Show how each file would be converted, without converting it",
	Long: `Analyze reports the detected format of each file (content-sniffed when
the extension is missing), its size, and the capabilities that would attempt
it in order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	reg := capability.DefaultRegistry(cfg.Conversion)

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stdout, "%s: not readable (%v)\n", path, err)
			continue
		}

		ext := registry.ExtOf(path)
		var names []string
		for _, c := range reg.Candidates(path) {
			names = append(names, c.Name())
		}

		fmt.Fprintf(os.Stdout, "%s:\n", path)
		fmt.Fprintf(os.Stdout, "  format: %s\n", ext)
		fmt.Fprintf(os.Stdout, "  size: %d bytes\n", info.Size())
		if len(names) == 0 {
			fmt.Fprintln(os.Stdout, "  capabilities: none (unsupported)")
		} else {
			fmt.Fprintf(os.Stdout, "  capabilities: %s\n", strings.Join(names, ", "))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
