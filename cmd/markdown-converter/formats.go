// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomanizer/markdown-converter/internal/capability"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported input formats and the capabilities that handle them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		reg := capability.DefaultRegistry(cfg.Conversion)

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CAPABILITY\tEXTENSIONS")
		for _, d := range reg.Descriptors() {
			fmt.Fprintf(tw, "%s\t%s\n", d.Name, strings.Join(d.Extensions, " "))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "\n%d formats supported\n", len(reg.SupportedFormats()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
