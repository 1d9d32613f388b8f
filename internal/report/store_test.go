// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomanizer/markdown-converter/pkg/types"
)

func newTestStore(t *testing.T, keepRuns int) *Store {
	t.Helper()
	s, err := NewStore(types.ReportConfig{
		Path:     filepath.Join(t.TempDir(), "runs.db"),
		KeepRuns: keepRuns,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(kind string, start time.Time) Run {
	return Run{
		Kind:      kind,
		InputDir:  "/docs",
		OutputDir: "/docs_converted",
		Stats: types.BatchStats{
			TotalFiles:     2,
			ProcessedFiles: 1,
			FailedFiles:    1,
			StartTime:      start,
			EndTime:        start.Add(3 * time.Second),
			PeakMemoryMB:   128.5,
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()

	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	outcomes := []types.ConversionOutcome{
		{InputPath: "/docs/a.docx", OutputPath: "/docs_converted/a.md", Success: true, Capability: "word", Duration: 120 * time.Millisecond, InputBytes: 2048},
		{InputPath: "/docs/b.pdf", Success: false, Capability: "pdf", Error: "no text content", Duration: 40 * time.Millisecond, InputBytes: 512},
	}

	id, err := s.SaveRun(ctx, sampleRun("batch", start), outcomes)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == "" {
		t.Fatal("SaveRun returned empty id")
	}

	runs, err := s.RecentRuns(ctx, 0)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != id || got.Kind != "batch" || got.InputDir != "/docs" {
		t.Errorf("run mismatch: %+v", got)
	}
	if got.Stats.ProcessedFiles != 1 || got.Stats.FailedFiles != 1 {
		t.Errorf("stats mismatch: %+v", got.Stats)
	}
	if !got.Stats.StartTime.Equal(start) {
		t.Errorf("start time = %v, want %v", got.Stats.StartTime, start)
	}

	loaded, err := s.Outcomes(ctx, id)
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(loaded))
	}
	if !loaded[0].Success || loaded[0].Capability != "word" {
		t.Errorf("first outcome mismatch: %+v", loaded[0])
	}
	if loaded[1].Success || loaded[1].Error != "no text content" {
		t.Errorf("second outcome mismatch: %+v", loaded[1])
	}
}

func TestRetentionPrunesOldRuns(t *testing.T) {
	s := newTestStore(t, 3)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.SaveRun(ctx, sampleRun("batch", base.Add(time.Duration(i)*time.Hour)), nil)
		if err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := s.RecentRuns(ctx, 0)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs after pruning, want 3", len(runs))
	}
	// Newest first; the two oldest runs are gone.
	if !runs[0].Stats.StartTime.After(runs[1].Stats.StartTime) {
		t.Error("runs not ordered newest first")
	}
}

func TestNewStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewStore(types.ReportConfig{})
	if !errors.Is(err, types.ErrConfigInvalid) {
		t.Errorf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestOutcomesUnknownRun(t *testing.T) {
	s := newTestStore(t, 5)
	out, err := s.Outcomes(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("got %d outcomes for unknown run", len(out))
	}
}
