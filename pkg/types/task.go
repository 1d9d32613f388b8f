// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionTask describes one file conversion request. Tasks are built once
// per file before entering the pipeline and are never mutated afterwards.
type ConversionTask struct {
	// InputPath is the source document path.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputPath is the explicit output path. When empty the pipeline derives
	// "<stem>.md" next to the input (or under the batch output directory).
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// TargetFormat is the output format. Only "markdown" is supported today.
	TargetFormat string `json:"target_format" yaml:"target_format"`

	// PreserveStructure keeps document structure (headings, tables, lists)
	// rather than flattening to plain paragraphs.
	PreserveStructure bool `json:"preserve_structure" yaml:"preserve_structure"`

	// ExtractImages records image references in the output instead of
	// dropping them.
	ExtractImages bool `json:"extract_images" yaml:"extract_images"`

	// IncludeMetadata prepends YAML frontmatter (source path, capability,
	// timestamp) to the converted output.
	IncludeMetadata bool `json:"include_metadata" yaml:"include_metadata"`
}

// NewTask builds a ConversionTask with the default target format and options.
func NewTask(inputPath string) ConversionTask {
	return ConversionTask{
		InputPath:         inputPath,
		TargetFormat:      "markdown",
		PreserveStructure: true,
		IncludeMetadata:   true,
	}
}

// ConversionOutcome is the terminal result of one ConversionTask. Exactly one
// outcome is produced per task; it is immutable after creation and owned by
// the coordinator that ran the pipeline.
type ConversionOutcome struct {
	// InputPath is the source document path from the task.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputPath is the resolved path the Markdown was written to. Set even
	// on failure so callers can report where output would have gone.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// Success reports whether any capability produced usable output.
	Success bool `json:"success" yaml:"success"`

	// Capability names the capability that produced the output, or the last
	// one attempted on failure.
	Capability string `json:"capability,omitempty" yaml:"capability,omitempty"`

	// Error is the human-readable failure reason, empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Duration is the wall-clock time spent converting this file.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// InputBytes is the source file size.
	InputBytes int64 `json:"input_bytes" yaml:"input_bytes"`
}

// BatchStats aggregates the results of one batch run. It is owned and mutated
// exclusively by the coordinator goroutine that dispatched the chunks, and is
// read-only to callers once the run returns.
type BatchStats struct {
	// TotalFiles is the number of files discovered under the input root.
	TotalFiles int `json:"total_files" yaml:"total_files"`

	// ProcessedFiles is the number of files converted successfully.
	ProcessedFiles int `json:"processed_files" yaml:"processed_files"`

	// FailedFiles is the number of files attempted and unsuccessful.
	FailedFiles int `json:"failed_files" yaml:"failed_files"`

	// SkippedFiles counts files deliberately excluded (oversized or
	// unreadable) rather than attempted.
	SkippedFiles int `json:"skipped_files" yaml:"skipped_files"`

	// StartTime and EndTime bracket the run.
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	EndTime   time.Time `json:"end_time" yaml:"end_time"`

	// PeakMemoryMB is the highest process RSS observed during the run.
	PeakMemoryMB float64 `json:"peak_memory_mb" yaml:"peak_memory_mb"`
}

// Duration returns the elapsed wall-clock time of the run.
func (s BatchStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// HasFailures reports whether any files failed conversion.
func (s BatchStats) HasFailures() bool {
	return s.FailedFiles > 0
}

// Consistent reports whether the accounting invariant holds: every discovered
// file is either processed, failed, or skipped.
func (s BatchStats) Consistent() bool {
	return s.TotalFiles == s.ProcessedFiles+s.FailedFiles+s.SkippedFiles
}
