// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomanizer/markdown-converter/internal/capability"
	"github.com/tomanizer/markdown-converter/internal/pipeline"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert one or more documents to Markdown",
	Long: `Convert runs each file through the capability chain and writes the
Markdown next to the source (or to --output for a single file). When the
preferred capability fails, the next registered capability for that format
is tried before the file is reported as failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "" && len(args) > 1 {
		return fmt.Errorf("--output is only valid with a single input file")
	}

	cfg := loadConfig()
	applyConversionFlags(cmd, &cfg.Conversion)

	pipe := pipeline.New(capability.DefaultRegistry(cfg.Conversion), os.Stdout)

	failed := 0
	for _, input := range args {
		task := types.NewTask(input)
		task.OutputPath = output
		task.TargetFormat = cfg.Conversion.TargetFormat
		task.PreserveStructure = cfg.Conversion.PreserveStructure
		task.ExtractImages = cfg.Conversion.ExtractImages
		task.IncludeMetadata = cfg.Conversion.IncludeMetadata

		if outcome := pipe.Convert(task); !outcome.Success {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed conversion", failed)
	}
	return nil
}

// applyConversionFlags folds changed conversion flags into cfg.
func applyConversionFlags(cmd *cobra.Command, cfg *types.ConversionConfig) {
	if cmd.Flags().Changed("preserve-structure") {
		cfg.PreserveStructure, _ = cmd.Flags().GetBool("preserve-structure")
	}
	if cmd.Flags().Changed("include-metadata") {
		cfg.IncludeMetadata, _ = cmd.Flags().GetBool("include-metadata")
	}
	if cmd.Flags().Changed("extract-images") {
		cfg.ExtractImages, _ = cmd.Flags().GetBool("extract-images")
	}
	if cmd.Flags().Changed("pandoc") {
		cfg.PandocBinary, _ = cmd.Flags().GetString("pandoc")
	}
}

// addConversionFlags declares the conversion flags shared by convert, batch
// and grid.
func addConversionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("preserve-structure", true, "keep headings, tables and lists in the output")
	cmd.Flags().Bool("include-metadata", true, "prepend YAML frontmatter to converted files")
	cmd.Flags().Bool("extract-images", false, "record image references in the output")
	cmd.Flags().String("pandoc", "pandoc", "pandoc binary for the catch-all capability")
}

func init() {
	convertCmd.Flags().String("output", "", "output path (single input file only)")
	addConversionFlags(convertCmd)

	rootCmd.AddCommand(convertCmd)
}
