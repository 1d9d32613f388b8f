// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package capability provides the built-in converter capabilities: plain
// text, Word, Excel, PDF, HTML, and a pandoc catch-all. Each implements the
// registry.Capability contract; the conversion core knows nothing about
// their internals.
package capability

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/tomanizer/markdown-converter/internal/registry"
)

// Text converts plain-text and Markdown files. Markdown passes through
// unchanged; raw text gets whitespace normalization and a paragraph per
// blank-line-separated block.
type Text struct{}

// NewText returns the plain-text capability.
func NewText() *Text {
	return &Text{}
}

func (t *Text) Name() string { return "text" }

func (t *Text) Extensions() []string {
	return []string{".txt", ".text", ".md", ".markdown"}
}

func (t *Text) CanHandle(path string) bool {
	return hasExt(path, t.Extensions())
}

func (t *Text) Parse(path string) (registry.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return registry.Result{}, fmt.Errorf("reading %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".md" || ext == ".markdown" {
		content := string(data)
		return registry.Result{
			Markdown: content,
			Title:    markdownTitle(content),
			Metadata: map[string]string{"source_format": "markdown"},
		}, nil
	}

	var b strings.Builder
	for _, para := range splitParagraphs(string(data)) {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(normalizeWhitespace(para))
	}
	content := b.String()

	return registry.Result{
		Markdown: content,
		Title:    firstLine(content),
		Metadata: map[string]string{"source_format": "text"},
	}, nil
}

// markdownTitle returns the first ATX heading, or the first line when the
// document has no headings.
func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return firstLine(content)
}

// splitParagraphs splits text on blank lines, normalizing line endings.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

// firstLine returns the first non-empty line, truncated to 200 runes.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		if len(r) > 200 {
			return string(r[:200])
		}
		return line
	}
	return ""
}

// hasExt reports whether path's lowercase extension is in exts.
func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
