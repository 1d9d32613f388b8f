// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomanizer/markdown-converter/internal/registry"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

// fakeCapability claims .txt files and returns canned output or an error.
// calls records every Parse invocation so tests can verify fallback order.
type fakeCapability struct {
	name   string
	output string
	err    error
	calls  *[]string
}

func (f *fakeCapability) Name() string         { return f.name }
func (f *fakeCapability) Extensions() []string { return []string{".txt"} }

func (f *fakeCapability) CanHandle(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".txt"
}

func (f *fakeCapability) Parse(path string) (registry.Result, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	if f.err != nil {
		return registry.Result{}, f.err
	}
	return registry.Result{Markdown: f.output}, nil
}

// setupInput writes a .txt input file in a temp dir.
func setupInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newPipeline(caps ...registry.Capability) *Pipeline {
	reg := registry.New()
	for _, c := range caps {
		reg.Register(c)
	}
	return New(reg, &bytes.Buffer{})
}

func TestConvertSuccess(t *testing.T) {
	input := setupInput(t)
	p := newPipeline(&fakeCapability{name: "text", output: "# Hello"})

	task := types.NewTask(input)
	task.IncludeMetadata = false
	outcome := p.Convert(task)

	if !outcome.Success {
		t.Fatalf("expected success, got error %q", outcome.Error)
	}
	if outcome.Capability != "text" {
		t.Errorf("capability = %q, want text", outcome.Capability)
	}
	if outcome.InputBytes != int64(len("hello")) {
		t.Errorf("input bytes = %d, want %d", outcome.InputBytes, len("hello"))
	}

	want := strings.TrimSuffix(input, ".txt") + ".md"
	if outcome.OutputPath != want {
		t.Errorf("output path = %q, want %q", outcome.OutputPath, want)
	}
	data, err := os.ReadFile(outcome.OutputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != "# Hello" {
		t.Errorf("output content = %q, want %q", data, "# Hello")
	}
}

func TestConvertFrontmatter(t *testing.T) {
	input := setupInput(t)
	p := newPipeline(&fakeCapability{name: "text", output: "# Body"})

	outcome := p.Convert(types.NewTask(input))
	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Error)
	}

	data, err := os.ReadFile(outcome.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		t.Error("output should start with YAML frontmatter delimiter")
	}
	if !strings.Contains(content, "capability: text") {
		t.Error("frontmatter should name the capability")
	}
	if !strings.Contains(content, "# Body") {
		t.Error("output should contain the Markdown body")
	}
}

// sniffedCapability claims .md so extension-less inputs reach it through
// the registry's content-sniffing fallback.
type sniffedCapability struct {
	fakeCapability
}

func (s *sniffedCapability) Extensions() []string { return []string{".md"} }

func (s *sniffedCapability) CanHandle(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".md"
}

func TestConvertExtensionlessInput(t *testing.T) {
	input := filepath.Join(t.TempDir(), "notes")
	if err := os.WriteFile(input, []byte("plain words"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := newPipeline(&sniffedCapability{fakeCapability{name: "text", output: "# Sniffed"}})

	task := types.NewTask(input)
	task.IncludeMetadata = false
	outcome := p.Convert(task)

	if !outcome.Success {
		t.Fatalf("expected success via sniffing, got %q", outcome.Error)
	}
	if outcome.Capability != "text" {
		t.Errorf("capability = %q, want text", outcome.Capability)
	}
	if want := input + ".md"; outcome.OutputPath != want {
		t.Errorf("output path = %q, want %q", outcome.OutputPath, want)
	}
}

func TestConvertInputNotFound(t *testing.T) {
	p := newPipeline(&fakeCapability{name: "text", output: "x"})

	outcome := p.Convert(types.NewTask(filepath.Join(t.TempDir(), "missing.txt")))
	if outcome.Success {
		t.Fatal("expected failure for missing input")
	}
	if !strings.Contains(outcome.Error, types.ErrInputNotFound.Error()) {
		t.Errorf("error %q should mention input not found", outcome.Error)
	}
}

func TestConvertUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "data.xyz")
	if err := os.WriteFile(input, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newPipeline(&fakeCapability{name: "text", output: "x"})
	outcome := p.Convert(types.NewTask(input))

	if outcome.Success {
		t.Fatal("expected failure for unclaimed extension")
	}
	if !strings.Contains(outcome.Error, types.ErrUnsupportedFormat.Error()) {
		t.Errorf("error %q should mention unsupported format", outcome.Error)
	}
}

func TestFallbackOrder(t *testing.T) {
	input := setupInput(t)
	var calls []string
	failing := &fakeCapability{name: "a", err: errors.New("boom"), calls: &calls}
	succeeding := &fakeCapability{name: "b", output: "# From B", calls: &calls}

	p := newPipeline(failing, succeeding)
	task := types.NewTask(input)
	task.IncludeMetadata = false
	outcome := p.Convert(task)

	if !outcome.Success {
		t.Fatalf("expected fallback success, got %q", outcome.Error)
	}
	if outcome.Capability != "b" {
		t.Errorf("capability = %q, want b", outcome.Capability)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("call order = %v, want [a b]", calls)
	}

	data, _ := os.ReadFile(outcome.OutputPath)
	if string(data) != "# From B" {
		t.Errorf("output = %q, want content from b", data)
	}
}

func TestAllCandidatesExhausted(t *testing.T) {
	input := setupInput(t)
	p := newPipeline(
		&fakeCapability{name: "a", err: errors.New("first error")},
		&fakeCapability{name: "b", err: errors.New("last error")},
	)

	outcome := p.Convert(types.NewTask(input))
	if outcome.Success {
		t.Fatal("expected failure when every candidate fails")
	}
	if !strings.Contains(outcome.Error, "last error") {
		t.Errorf("outcome should carry the last error, got %q", outcome.Error)
	}
	if !strings.Contains(outcome.Error, types.ErrCapabilityFailure.Error()) {
		t.Errorf("error %q should be a capability failure", outcome.Error)
	}
}

func TestEmptyOutputRejected(t *testing.T) {
	input := setupInput(t)

	t.Run("single empty candidate fails", func(t *testing.T) {
		p := newPipeline(&fakeCapability{name: "empty", output: "   \n"})
		outcome := p.Convert(types.NewTask(input))
		if outcome.Success {
			t.Fatal("whitespace-only output must not count as success")
		}
		if !strings.Contains(outcome.Error, types.ErrEmptyOutput.Error()) {
			t.Errorf("error %q should mention empty output", outcome.Error)
		}
	})

	t.Run("empty candidate falls through", func(t *testing.T) {
		p := newPipeline(
			&fakeCapability{name: "empty", output: ""},
			&fakeCapability{name: "real", output: "# Content"},
		)
		outcome := p.Convert(types.NewTask(input))
		if !outcome.Success {
			t.Fatalf("expected fallback past empty output, got %q", outcome.Error)
		}
		if outcome.Capability != "real" {
			t.Errorf("capability = %q, want real", outcome.Capability)
		}
	})
}

func TestOutputCollisionSuffix(t *testing.T) {
	input := setupInput(t)
	base := strings.TrimSuffix(input, ".txt")

	// Occupy the derived name and the first suffix.
	for _, name := range []string{base + ".md", base + "-1.md"} {
		if err := os.WriteFile(name, []byte("taken"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p := newPipeline(&fakeCapability{name: "text", output: "# New"})
	task := types.NewTask(input)
	task.IncludeMetadata = false
	outcome := p.Convert(task)

	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Error)
	}
	if outcome.OutputPath != base+"-2.md" {
		t.Errorf("output path = %q, want %q", outcome.OutputPath, base+"-2.md")
	}
}

func TestExplicitOutputPath(t *testing.T) {
	input := setupInput(t)
	out := filepath.Join(t.TempDir(), "sub", "explicit.md")

	p := newPipeline(&fakeCapability{name: "text", output: "# X"})
	task := types.NewTask(input)
	task.OutputPath = out
	outcome := p.Convert(task)

	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Error)
	}
	if outcome.OutputPath != out {
		t.Errorf("output path = %q, want %q", outcome.OutputPath, out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("explicit output should exist: %v", err)
	}
}

func TestConvertIdempotent(t *testing.T) {
	input := setupInput(t)
	out := filepath.Join(t.TempDir(), "same.md")

	p := newPipeline(&fakeCapability{name: "text", output: "# Stable"})
	task := types.NewTask(input)
	task.OutputPath = out
	task.IncludeMetadata = false

	first := p.Convert(task)
	data1, _ := os.ReadFile(out)
	second := p.Convert(task)
	data2, _ := os.ReadFile(out)

	if first.Success != second.Success {
		t.Errorf("success differs across runs: %v vs %v", first.Success, second.Success)
	}
	if !bytes.Equal(data1, data2) {
		t.Errorf("output content differs across runs")
	}
}
