// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the markdown-converter CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the markdown-converter CLI.
var rootCmd = &cobra.Command{
	Use:   "markdown-converter",
	Short: "Convert documents to Markdown, one file or whole directory trees",
	Long: `markdown-converter transforms documents (Word, Excel, PDF, HTML, plain
text, and anything pandoc understands) into Markdown. Single files go through
the convert command; directory trees run as concurrent batches; large corpora
can be distributed across workers with the grid commands.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./markdown-converter.yaml or ~/.config/markdown-converter/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("markdown-converter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "markdown-converter"))
		}
	}

	viper.SetEnvPrefix("MARKDOWN_CONVERTER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
