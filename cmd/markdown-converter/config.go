// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tomanizer/markdown-converter/pkg/types"
)

// loadConfig builds the runtime configuration: documented defaults first,
// then file/env overrides from viper. Flag overrides are applied per
// command after this.
func loadConfig() types.Config {
	cfg := types.DefaultConfig()

	overrideString(&cfg.Conversion.TargetFormat, "conversion.target_format")
	overrideBool(&cfg.Conversion.PreserveStructure, "conversion.preserve_structure")
	overrideBool(&cfg.Conversion.ExtractImages, "conversion.extract_images")
	overrideBool(&cfg.Conversion.IncludeMetadata, "conversion.include_metadata")
	overrideString(&cfg.Conversion.PandocBinary, "conversion.pandoc_binary")

	overrideInt(&cfg.Batch.Workers, "batch.workers")
	overrideInt(&cfg.Batch.ChunkSize, "batch.chunk_size")
	overrideInt(&cfg.Batch.FileSizeLimitMB, "batch.file_size_limit_mb")
	overrideInt(&cfg.Batch.MaxMemoryMB, "batch.max_memory_mb")
	overrideBool(&cfg.Batch.ContinueOnError, "batch.continue_on_error")
	overrideBool(&cfg.Batch.Progress, "batch.progress")

	overrideClusterType(&cfg.Grid.ClusterType, "grid.cluster_type")
	overrideString(&cfg.Grid.SchedulerAddress, "grid.scheduler_address")
	overrideInt(&cfg.Grid.Workers, "grid.workers")
	overrideInt(&cfg.Grid.MemoryLimitMB, "grid.memory_limit_mb")
	overrideDuration(&cfg.Grid.JobTimeout, "grid.job_timeout")
	overrideDuration(&cfg.Grid.PollInterval, "grid.poll_interval")
	cfg.Grid.Batch = cfg.Batch

	overrideString(&cfg.Report.Path, "report.path")
	overrideInt(&cfg.Report.KeepRuns, "report.keep_runs")

	return cfg
}

func overrideString(dst *string, key string) {
	if viper.IsSet(key) {
		*dst = viper.GetString(key)
	}
}

func overrideInt(dst *int, key string) {
	if viper.IsSet(key) {
		*dst = viper.GetInt(key)
	}
}

func overrideBool(dst *bool, key string) {
	if viper.IsSet(key) {
		*dst = viper.GetBool(key)
	}
}

func overrideDuration(dst *time.Duration, key string) {
	if viper.IsSet(key) {
		*dst = viper.GetDuration(key)
	}
}

func overrideClusterType(dst *types.ClusterType, key string) {
	if viper.IsSet(key) {
		*dst = types.ClusterType(viper.GetString(key))
	}
}
