package types

import (
	"fmt"
	"runtime"
	"time"
)

// ConversionConfig holds settings for the single-file conversion pipeline.
type ConversionConfig struct {
	// TargetFormat is the output format (default "markdown").
	TargetFormat string `json:"target_format" yaml:"target_format"`

	// PreserveStructure keeps headings, tables and lists in the output.
	PreserveStructure bool `json:"preserve_structure" yaml:"preserve_structure"`

	// ExtractImages records image references in the output.
	ExtractImages bool `json:"extract_images" yaml:"extract_images"`

	// IncludeMetadata prepends YAML frontmatter to converted files.
	IncludeMetadata bool `json:"include_metadata" yaml:"include_metadata"`

	// PandocBinary is the pandoc executable used by the catch-all
	// capability (default "pandoc").
	PandocBinary string `json:"pandoc_binary" yaml:"pandoc_binary"`
}

// DefaultConversionConfig returns the conversion defaults.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		TargetFormat:      "markdown",
		PreserveStructure: true,
		IncludeMetadata:   true,
		PandocBinary:      "pandoc",
	}
}

// BatchConfig holds settings for the batch coordinator.
type BatchConfig struct {
	// Workers is the worker pool size (default min(NumCPU, 8)).
	Workers int `json:"workers" yaml:"workers"`

	// ChunkSize is the number of files dispatched to a worker as one unit
	// (default 10).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// FileSizeLimitMB skips (not fails) files larger than this (default 70).
	FileSizeLimitMB int `json:"file_size_limit_mb" yaml:"file_size_limit_mb"`

	// MaxMemoryMB is the advisory aggregate memory ceiling (default 2048).
	// Exceeding it is logged, not enforced.
	MaxMemoryMB int `json:"max_memory_mb" yaml:"max_memory_mb"`

	// ContinueOnError controls only the caller's exit-code decision; the
	// coordinator always isolates per-file failures and finishes the run.
	ContinueOnError bool `json:"continue_on_error" yaml:"continue_on_error"`

	// Progress enables per-chunk progress reporting.
	Progress bool `json:"progress" yaml:"progress"`
}

// maxDefaultWorkers caps the default pool size to avoid oversubscription on
// large machines.
const maxDefaultWorkers = 8

// DefaultBatchConfig returns the batch coordinator defaults.
func DefaultBatchConfig() BatchConfig {
	workers := runtime.NumCPU()
	if workers > maxDefaultWorkers {
		workers = maxDefaultWorkers
	}
	return BatchConfig{
		Workers:         workers,
		ChunkSize:       10,
		FileSizeLimitMB: 70,
		MaxMemoryMB:     2048,
		ContinueOnError: true,
		Progress:        true,
	}
}

// Validate reports the first invalid batch setting.
func (c BatchConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrConfigInvalid, c.Workers)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be >= 1, got %d", ErrConfigInvalid, c.ChunkSize)
	}
	if c.FileSizeLimitMB < 1 {
		return fmt.Errorf("%w: file_size_limit_mb must be >= 1, got %d", ErrConfigInvalid, c.FileSizeLimitMB)
	}
	return nil
}

// ClusterType selects where grid jobs execute.
type ClusterType string

const (
	// ClusterLocal runs jobs on an in-process worker pool.
	ClusterLocal ClusterType = "local"
	// ClusterRemote submits jobs to a scheduler over HTTP.
	ClusterRemote ClusterType = "remote"
)

// GridConfig holds settings for the distributed coordinator.
type GridConfig struct {
	// ClusterType is "local" or "remote".
	ClusterType ClusterType `json:"cluster_type" yaml:"cluster_type"`

	// SchedulerAddress is the remote scheduler base URL. Required when
	// ClusterType is remote.
	SchedulerAddress string `json:"scheduler_address,omitempty" yaml:"scheduler_address,omitempty"`

	// Workers is the number of concurrent job executors (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// MemoryLimitMB is the advisory per-worker memory ceiling (default 2048).
	MemoryLimitMB int `json:"memory_limit_mb" yaml:"memory_limit_mb"`

	// JobTimeout bounds how long WaitForJob polls before treating the job
	// as abandoned (default 1h).
	JobTimeout time.Duration `json:"job_timeout" yaml:"job_timeout"`

	// PollInterval is the delay between job status polls (default 2s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// Batch configures the batch run each job executes.
	Batch BatchConfig `json:"batch" yaml:"batch"`
}

// DefaultGridConfig returns the grid coordinator defaults.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		ClusterType:   ClusterLocal,
		Workers:       4,
		MemoryLimitMB: 2048,
		JobTimeout:    time.Hour,
		PollInterval:  2 * time.Second,
		Batch:         DefaultBatchConfig(),
	}
}

// Validate reports the first invalid grid setting.
func (c GridConfig) Validate() error {
	switch c.ClusterType {
	case ClusterLocal:
	case ClusterRemote:
		if c.SchedulerAddress == "" {
			return fmt.Errorf("%w: scheduler_address required for remote cluster", ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown cluster_type %q", ErrConfigInvalid, c.ClusterType)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrConfigInvalid, c.Workers)
	}
	return nil
}

// ReportConfig holds settings for the run-report store.
type ReportConfig struct {
	// Path is the SQLite database file. Empty disables reporting.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// KeepRuns bounds how many historical runs RecentRuns returns by
	// default (default 50).
	KeepRuns int `json:"keep_runs" yaml:"keep_runs"`
}

// DefaultReportConfig returns the report store defaults.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{KeepRuns: 50}
}

// Config groups all component configurations.
type Config struct {
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	Batch      BatchConfig      `json:"batch" yaml:"batch"`
	Grid       GridConfig       `json:"grid" yaml:"grid"`
	Report     ReportConfig     `json:"report" yaml:"report"`
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() Config {
	return Config{
		Conversion: DefaultConversionConfig(),
		Batch:      DefaultBatchConfig(),
		Grid:       DefaultGridConfig(),
		Report:     DefaultReportConfig(),
	}
}
