// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// fakeCapability claims a fixed set of extensions and returns canned output.
type fakeCapability struct {
	name   string
	exts   []string
	output string
	err    error
}

func (f *fakeCapability) Name() string         { return f.name }
func (f *fakeCapability) Extensions() []string { return f.exts }

func (f *fakeCapability) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range f.exts {
		if e == ext {
			return true
		}
	}
	return false
}

func (f *fakeCapability) Parse(path string) (Result, error) {
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Markdown: f.output}, nil
}

func TestResolveOrder(t *testing.T) {
	first := &fakeCapability{name: "first", exts: []string{".pdf"}}
	second := &fakeCapability{name: "second", exts: []string{".pdf", ".docx"}}

	r := New()
	r.Register(first)
	r.Register(second)

	got := r.Resolve("report.pdf")
	if got == nil || got.Name() != "first" {
		t.Fatalf("Resolve should return the first registered match, got %v", got)
	}

	if got := r.Resolve("notes.docx"); got == nil || got.Name() != "second" {
		t.Errorf("Resolve(.docx) = %v, want second", got)
	}

	if got := r.Resolve("data.xyz"); got != nil {
		t.Errorf("Resolve(.xyz) = %v, want nil", got)
	}
}

func TestCandidatesPreservesRegistrationOrder(t *testing.T) {
	a := &fakeCapability{name: "a", exts: []string{".pdf"}}
	b := &fakeCapability{name: "b", exts: []string{".pdf"}}
	c := &fakeCapability{name: "c", exts: []string{".html"}}

	r := New()
	r.Register(a)
	r.Register(b)
	r.Register(c)

	cands := r.Candidates("x.pdf")
	if len(cands) != 2 {
		t.Fatalf("candidates = %d, want 2", len(cands))
	}
	if cands[0].Name() != "a" || cands[1].Name() != "b" {
		t.Errorf("candidate order = [%s %s], want [a b]", cands[0].Name(), cands[1].Name())
	}

	if got := r.Candidates("x.xyz"); len(got) != 0 {
		t.Errorf("candidates for unclaimed extension = %d, want 0", len(got))
	}
}

func TestCandidatesSniffsExtensionlessFiles(t *testing.T) {
	pdf := &fakeCapability{name: "pdf", exts: []string{".pdf"}}
	text := &fakeCapability{name: "text", exts: []string{".txt", ".md"}}

	r := New()
	r.Register(pdf)
	r.Register(text)

	dir := t.TempDir()

	// A PDF export without a suffix resolves to the pdf capability.
	pdfPath := filepath.Join(dir, "export")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cands := r.Candidates(pdfPath)
	if len(cands) != 1 || cands[0].Name() != "pdf" {
		t.Fatalf("candidates for sniffed pdf = %v, want [pdf]", cands)
	}
	if got := r.Resolve(pdfPath); got == nil || got.Name() != "pdf" {
		t.Errorf("Resolve(sniffed pdf) = %v, want pdf", got)
	}

	// Unknown content sniffs as .md and lands on the text capability.
	notesPath := filepath.Join(dir, "notes")
	if err := os.WriteFile(notesPath, []byte("meeting minutes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := r.Resolve(notesPath); got == nil || got.Name() != "text" {
		t.Errorf("Resolve(sniffed text) = %v, want text", got)
	}

	// A present extension never triggers sniffing, even when unclaimed.
	if got := r.Candidates(filepath.Join(dir, "data.xyz")); len(got) != 0 {
		t.Errorf("candidates for .xyz = %d, want 0", len(got))
	}
}

func TestSupportedFormats(t *testing.T) {
	r := New()
	r.Register(&fakeCapability{name: "word", exts: []string{".docx", ".doc"}})
	r.Register(&fakeCapability{name: "pandoc", exts: []string{".docx", ".html", ".rtf"}})

	got := r.SupportedFormats()
	want := []string{".doc", ".docx", ".html", ".rtf"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SupportedFormats = %v, want %v", got, want)
	}

	if !r.Supports(".DOCX") {
		t.Error("Supports should be case-insensitive")
	}
	if r.Supports(".xyz") {
		t.Error("Supports(.xyz) should be false")
	}
}

func TestDuplicateRegistration(t *testing.T) {
	c := &fakeCapability{name: "dup", exts: []string{".txt"}}
	r := New()
	r.Register(c)
	r.Register(c)

	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2 (no de-duplication)", r.Len())
	}
	if got := len(r.Candidates("a.txt")); got != 2 {
		t.Errorf("candidates = %d, want 2", got)
	}
}

func TestSniffFormat(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"zip signature", []byte("PK\x03\x04rest-of-archive"), ".docx"},
		{"pdf signature", []byte("%PDF-1.7\n"), ".pdf"},
		{"html doctype", []byte("<!DOCTYPE html><html>"), ".html"},
		{"html tag", []byte("  <html lang=\"en\">"), ".html"},
		{"plain text", []byte("just some words"), ".md"},
		{"empty file", nil, ".md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sample")
			if err := os.WriteFile(path, tt.content, 0o644); err != nil {
				t.Fatal(err)
			}
			if got := SniffFormat(path); got != tt.want {
				t.Errorf("SniffFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtOf(t *testing.T) {
	if got := ExtOf("Report.DOCX"); got != ".docx" {
		t.Errorf("ExtOf = %q, want .docx", got)
	}

	// No extension: falls back to sniffing.
	path := filepath.Join(t.TempDir(), "noext")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := ExtOf(path); got != ".pdf" {
		t.Errorf("ExtOf(sniffed) = %q, want .pdf", got)
	}
}
