// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a single file through format detection, capability
// selection, parse attempts with fallback, and output validation. Exactly one
// ConversionOutcome is produced per ConversionTask; individual capability
// failures fall through to the next candidate and only exhaustion of all
// candidates is terminal.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/tomanizer/markdown-converter/internal/registry"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

// maxCollisionAttempts bounds the numeric-suffix search for a free output
// path so a pathological directory cannot loop forever.
const maxCollisionAttempts = 100

// Pipeline converts one ConversionTask into one ConversionOutcome. It holds
// a registry built for the lifetime of its owning worker and a writer for
// per-file progress lines.
type Pipeline struct {
	reg *registry.Registry
	log io.Writer
}

// New creates a pipeline over the given registry. Progress lines are written
// to w; pass io.Discard to silence them.
func New(reg *registry.Registry, w io.Writer) *Pipeline {
	if w == nil {
		w = io.Discard
	}
	return &Pipeline{reg: reg, log: w}
}

// Registry exposes the pipeline's registry, for format listings.
func (p *Pipeline) Registry() *registry.Registry {
	return p.reg
}

// Convert runs the full pipeline for one task: validate input, collect the
// ordered candidate list, attempt each capability in turn, write the first
// non-empty result, and report the outcome. It never returns an error;
// failures are captured in the outcome.
func (p *Pipeline) Convert(task types.ConversionTask) types.ConversionOutcome {
	start := time.Now()
	outcome := types.ConversionOutcome{InputPath: task.InputPath}

	info, err := validateInput(task.InputPath)
	if err != nil {
		outcome.Error = err.Error()
		outcome.Duration = time.Since(start)
		fmt.Fprintf(p.log, "failed:  %s (%v)\n", filepath.Base(task.InputPath), err)
		return outcome
	}
	outcome.InputBytes = info.Size()

	outPath, err := resolveOutputPath(task)
	if err != nil {
		outcome.Error = err.Error()
		outcome.Duration = time.Since(start)
		fmt.Fprintf(p.log, "failed:  %s (%v)\n", filepath.Base(task.InputPath), err)
		return outcome
	}
	outcome.OutputPath = outPath

	candidates := p.reg.Candidates(task.InputPath)
	if len(candidates) == 0 {
		outcome.Error = fmt.Sprintf("%v: %s", types.ErrUnsupportedFormat, filepath.Ext(task.InputPath))
		outcome.Duration = time.Since(start)
		fmt.Fprintf(p.log, "failed:  %s (%s)\n", filepath.Base(task.InputPath), outcome.Error)
		return outcome
	}

	// Fallback chain: try each candidate in registration order. A candidate
	// that errors or produces empty output hands over to the next one; the
	// last error is carried into the outcome if all are exhausted.
	var lastErr error
	for _, cand := range candidates {
		outcome.Capability = cand.Name()

		result, err := cand.Parse(task.InputPath)
		if err != nil {
			lastErr = fmt.Errorf("%w: %s: %v", types.ErrCapabilityFailure, cand.Name(), err)
			fmt.Fprintf(p.log, "retry:   %s (%s: %v)\n", filepath.Base(task.InputPath), cand.Name(), err)
			continue
		}
		if strings.TrimSpace(result.Markdown) == "" {
			lastErr = fmt.Errorf("%w: %s", types.ErrEmptyOutput, cand.Name())
			fmt.Fprintf(p.log, "retry:   %s (%s produced empty output)\n", filepath.Base(task.InputPath), cand.Name())
			continue
		}

		content := result.Markdown
		if task.IncludeMetadata {
			content = addFrontmatter(task, cand.Name(), result, content)
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			lastErr = fmt.Errorf("creating output directory: %w", err)
			break
		}
		if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
			lastErr = fmt.Errorf("writing output: %w", err)
			break
		}

		outcome.Success = true
		outcome.Duration = time.Since(start)
		fmt.Fprintf(p.log, "converted: %s -> %s (%s)\n", filepath.Base(task.InputPath), filepath.Base(outPath), cand.Name())
		return outcome
	}

	outcome.Error = lastErr.Error()
	outcome.Duration = time.Since(start)
	fmt.Fprintf(p.log, "failed:  %s (%v)\n", filepath.Base(task.InputPath), lastErr)
	return outcome
}

// validateInput checks the source exists, is a regular file, and is
// readable. Errors wrap the input-not-found / unreadable kinds.
func validateInput(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrInputNotFound, path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", types.ErrInputNotFound, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrInputUnreadable, path)
	}
	f.Close()
	return info, nil
}

// resolveOutputPath returns the task's explicit output path or derives
// "<stem>.md" beside the input. On collision a numeric suffix is appended,
// bounded by maxCollisionAttempts.
func resolveOutputPath(task types.ConversionTask) (string, error) {
	if task.OutputPath != "" {
		return task.OutputPath, nil
	}

	base := strings.TrimSuffix(task.InputPath, filepath.Ext(task.InputPath))
	candidate := base + ".md"
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate, nil
	}

	for i := 1; i <= maxCollisionAttempts; i++ {
		candidate = fmt.Sprintf("%s-%d.md", base, i)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free output name for %s after %d attempts", task.InputPath, maxCollisionAttempts)
}

// frontmatter is the YAML header prepended to converted output when the
// task asks for metadata.
type frontmatter struct {
	Source      string            `yaml:"source"`
	Capability  string            `yaml:"capability"`
	Title       string            `yaml:"title,omitempty"`
	ConvertedAt string            `yaml:"converted_at"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
}

// addFrontmatter prepends YAML frontmatter describing the conversion.
func addFrontmatter(task types.ConversionTask, capability string, result registry.Result, body string) string {
	fm := frontmatter{
		Source:      task.InputPath,
		Capability:  capability,
		Title:       result.Title,
		ConvertedAt: time.Now().UTC().Format(time.RFC3339),
		Metadata:    result.Metadata,
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return body
	}
	return "---\n" + string(header) + "---\n\n" + body
}
