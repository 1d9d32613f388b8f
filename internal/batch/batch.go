// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch converts every eligible file under a directory tree using a
// bounded worker pool. Each worker owns a private pipeline built by a
// bootstrap function, so no registry state crosses the worker boundary.
// Per-file failures are isolated into outcomes; the run always completes and
// reports aggregate statistics.
package batch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomanizer/markdown-converter/internal/pipeline"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

// Bootstrap builds a fresh pipeline for one worker lifetime. It is invoked
// once per worker, not once per file, so capability setup cost is paid once.
type Bootstrap func(w io.Writer) (*pipeline.Pipeline, error)

// fileJob pairs a discovered input with its resolved output path.
type fileJob struct {
	input  string
	output string
}

// RunResult is the product of one batch run: aggregate stats plus every
// per-file outcome in completion order.
type RunResult struct {
	Stats    types.BatchStats
	Outcomes []types.ConversionOutcome
}

// Runner coordinates a batch conversion run.
type Runner struct {
	cfg       types.BatchConfig
	conv      types.ConversionConfig
	bootstrap Bootstrap
	log       *syncWriter
}

// NewRunner validates the configuration and returns a Runner. Progress and
// per-file status lines are written to w.
func NewRunner(cfg types.BatchConfig, conv types.ConversionConfig, bootstrap Bootstrap, w io.Writer) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bootstrap == nil {
		return nil, fmt.Errorf("%w: nil bootstrap", types.ErrConfigInvalid)
	}
	if w == nil {
		w = io.Discard
	}
	return &Runner{cfg: cfg, conv: conv, bootstrap: bootstrap, log: &syncWriter{w: w}}, nil
}

// Run converts every eligible file under inputDir, writing Markdown beneath
// outputDir (default "<inputDir>_converted", mirroring the source layout).
// Cancellation is cooperative: once ctx is done no new chunks are dispatched
// and in-flight chunks finish; files never dispatched are counted as
// skipped. Only setup problems return an error — per-file failures are
// folded into the result.
func (r *Runner) Run(ctx context.Context, inputDir, outputDir string) (*RunResult, error) {
	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: input directory %s", types.ErrInputNotFound, inputDir)
	}
	if outputDir == "" {
		outputDir = strings.TrimRight(inputDir, string(filepath.Separator)) + "_converted"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// A coordinator-side pipeline exists only to answer "which extensions
	// are supported" during discovery; workers build their own.
	discPipe, err := r.bootstrap(io.Discard)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping discovery pipeline: %w", err)
	}

	result := &RunResult{Stats: types.BatchStats{StartTime: time.Now().UTC()}}

	jobs, skipped, failed := r.discover(discPipe, inputDir, outputDir)
	result.Stats.TotalFiles = len(jobs) + skipped + len(failed)
	result.Stats.SkippedFiles = skipped
	result.Stats.FailedFiles = len(failed)
	result.Outcomes = append(result.Outcomes, failed...)

	if len(jobs) == 0 {
		fmt.Fprintf(r.log, "no files to process in %s\n", inputDir)
		result.Stats.EndTime = time.Now().UTC()
		return result, nil
	}
	fmt.Fprintf(r.log, "found %d files to process\n", len(jobs))

	chunks := partition(jobs, r.cfg.ChunkSize)
	workers := r.cfg.Workers
	if workers > len(chunks) {
		workers = len(chunks)
	}

	chunkCh := make(chan []fileJob)
	resultCh := make(chan []types.ConversionOutcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go r.worker(chunkCh, resultCh, &wg)
	}

	// Dispatch until done or cancelled. undispatched is written here and
	// read only after resultCh closes, which the worker shutdown chain
	// orders after this goroutine exits.
	var undispatched int
	go func() {
		defer close(chunkCh)
		for i, chunk := range chunks {
			// Checked before each dispatch so a cancellation that arrived
			// between chunks never races the send below.
			if ctx.Err() != nil {
				for _, rest := range chunks[i:] {
					undispatched += len(rest)
				}
				fmt.Fprintf(r.log, "cancellation requested, %d files not dispatched\n", undispatched)
				return
			}
			select {
			case <-ctx.Done():
				for _, rest := range chunks[i:] {
					undispatched += len(rest)
				}
				fmt.Fprintf(r.log, "cancellation requested, %d files not dispatched\n", undispatched)
				return
			case chunkCh <- chunk:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Single-threaded aggregation: chunk results are folded here and only
	// here, so BatchStats needs no lock. Completion order is not submission
	// order; the fold is commutative so the final stats do not depend on it.
	done := 0
	for outcomes := range resultCh {
		for _, o := range outcomes {
			if o.Success {
				result.Stats.ProcessedFiles++
			} else {
				result.Stats.FailedFiles++
			}
			done++
		}
		result.Outcomes = append(result.Outcomes, outcomes...)
		r.checkMemory(&result.Stats)
		if r.cfg.Progress {
			pct := float64(done) / float64(len(jobs)) * 100
			fmt.Fprintf(r.log, "progress: %.1f%% (%d/%d)\n", pct, done, len(jobs))
		}
	}

	result.Stats.SkippedFiles += undispatched
	result.Stats.EndTime = time.Now().UTC()

	fmt.Fprintf(r.log, "\nBatch summary: %d processed, %d failed, %d skipped (total: %d) in %s\n",
		result.Stats.ProcessedFiles, result.Stats.FailedFiles, result.Stats.SkippedFiles,
		result.Stats.TotalFiles, result.Stats.Duration().Round(time.Millisecond))
	return result, nil
}

// discover walks the input tree and classifies every file. Files with a
// supported extension (or no extension at all, left for content sniffing)
// under the size ceiling become jobs. Oversized or unreadable files count as
// skipped, never failed, and are never dispatched. Files whose extension no
// capability claims fail at discovery; they are part of the run's total.
func (r *Runner) discover(p *pipeline.Pipeline, inputDir, outputDir string) ([]fileJob, int, []types.ConversionOutcome) {
	sizeLimit := int64(r.cfg.FileSizeLimitMB) * 1024 * 1024
	var jobs []fileJob
	var failed []types.ConversionOutcome
	skipped := 0

	filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != "" && !p.Registry().Supports(ext) {
			fmt.Fprintf(r.log, "failed: %s (%v: %s)\n", filepath.Base(path), types.ErrUnsupportedFormat, ext)
			failed = append(failed, types.ConversionOutcome{
				InputPath: path,
				Success:   false,
				Error:     fmt.Sprintf("%v: %s", types.ErrUnsupportedFormat, ext),
			})
			return nil
		}
		info, err := d.Info()
		if err != nil {
			fmt.Fprintf(r.log, "skipped: %s (cannot stat: %v)\n", filepath.Base(path), err)
			skipped++
			return nil
		}
		if info.Size() > sizeLimit {
			fmt.Fprintf(r.log, "skipped: %s (%.1f MB exceeds %d MB limit)\n",
				filepath.Base(path), float64(info.Size())/(1024*1024), r.cfg.FileSizeLimitMB)
			skipped++
			return nil
		}
		jobs = append(jobs, fileJob{input: path, output: outputPathFor(path, inputDir, outputDir)})
		return nil
	})

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].input < jobs[j].input })
	return jobs, skipped, failed
}

// outputPathFor mirrors the input's position under inputDir into outputDir,
// swapping the extension for .md.
func outputPathFor(input, inputDir, outputDir string) string {
	rel, err := filepath.Rel(inputDir, input)
	if err != nil {
		rel = filepath.Base(input)
	}
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(outputDir, stem+".md")
}

// partition splits jobs into fixed-size chunks, each dispatched as one unit
// of work.
func partition(jobs []fileJob, size int) [][]fileJob {
	var chunks [][]fileJob
	for start := 0; start < len(jobs); start += size {
		end := start + size
		if end > len(jobs) {
			end = len(jobs)
		}
		chunks = append(chunks, jobs[start:end])
	}
	return chunks
}

// worker builds its own pipeline once, then processes assigned chunks
// sequentially until the chunk channel closes.
func (r *Runner) worker(chunkCh <-chan []fileJob, resultCh chan<- []types.ConversionOutcome, wg *sync.WaitGroup) {
	defer wg.Done()

	pipe, err := r.bootstrap(r.log)
	if err != nil {
		// The worker cannot convert anything; report every assigned file
		// as failed rather than silently dropping the chunk.
		for chunk := range chunkCh {
			resultCh <- failChunk(chunk, fmt.Errorf("%w: worker bootstrap: %v", types.ErrChunkFailure, err))
		}
		return
	}

	for chunk := range chunkCh {
		resultCh <- r.processChunk(pipe, chunk)
	}
}

// processChunk runs the pipeline over every file in the chunk. A panic
// anywhere in the chunk is recovered and recorded as the whole chunk
// failing, each file carrying the chunk-level error.
func (r *Runner) processChunk(pipe *pipeline.Pipeline, chunk []fileJob) (outcomes []types.ConversionOutcome) {
	defer func() {
		if p := recover(); p != nil {
			outcomes = failChunk(chunk, fmt.Errorf("%w: %v", types.ErrChunkFailure, p))
		}
	}()

	for _, job := range chunk {
		task := types.ConversionTask{
			InputPath:         job.input,
			OutputPath:        job.output,
			TargetFormat:      r.conv.TargetFormat,
			PreserveStructure: r.conv.PreserveStructure,
			ExtractImages:     r.conv.ExtractImages,
			IncludeMetadata:   r.conv.IncludeMetadata,
		}
		outcomes = append(outcomes, pipe.Convert(task))
	}
	return outcomes
}

// failChunk records every file in the chunk as failed with the given error.
func failChunk(chunk []fileJob, err error) []types.ConversionOutcome {
	outcomes := make([]types.ConversionOutcome, 0, len(chunk))
	for _, job := range chunk {
		outcomes = append(outcomes, types.ConversionOutcome{
			InputPath:  job.input,
			OutputPath: job.output,
			Success:    false,
			Error:      err.Error(),
		})
	}
	return outcomes
}

// syncWriter serializes writes from concurrent workers onto one writer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
