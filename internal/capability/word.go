// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package capability

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomanizer/markdown-converter/internal/registry"
)

// Word converts .docx files by reading word/document.xml straight from the
// ZIP archive. Paragraph styles map to Markdown headings; tables become
// Markdown tables.
type Word struct {
	preserveStructure bool
}

// NewWord returns the Word capability. When preserveStructure is false,
// headings and tables are flattened to plain paragraphs.
func NewWord(preserveStructure bool) *Word {
	return &Word{preserveStructure: preserveStructure}
}

func (w *Word) Name() string         { return "word" }
func (w *Word) Extensions() []string { return []string{".docx"} }

func (w *Word) CanHandle(path string) bool {
	return hasExt(path, w.Extensions())
}

func (w *Word) Parse(path string) (registry.Result, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return registry.Result{}, fmt.Errorf("opening docx archive: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return registry.Result{}, fmt.Errorf("word/document.xml not found in %s", path)
	}

	rc, err := docFile.Open()
	if err != nil {
		return registry.Result{}, fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	blocks, title, err := w.walkDocument(xml.NewDecoder(rc))
	if err != nil {
		return registry.Result{}, fmt.Errorf("parsing document.xml: %w", err)
	}

	return registry.Result{
		Markdown: strings.Join(blocks, "\n\n"),
		Title:    title,
		Metadata: map[string]string{"source_format": "docx"},
	}, nil
}

// walkDocument streams the document XML, emitting one Markdown block per
// paragraph or table.
func (w *Word) walkDocument(decoder *xml.Decoder) (blocks []string, title string, err error) {
	var (
		text       strings.Builder
		inPara     bool
		paraStyle  string
		inTable    bool
		tableRows  [][]string
		currentRow []string
	)

	flushPara := func() {
		t := strings.TrimSpace(text.String())
		text.Reset()
		if t == "" {
			return
		}
		level := headingLevel(paraStyle)
		if level > 0 && title == "" {
			title = t
		}
		if level > 0 && w.preserveStructure {
			blocks = append(blocks, strings.Repeat("#", level)+" "+t)
		} else {
			blocks = append(blocks, t)
		}
	}

	for {
		tok, tokErr := decoder.Token()
		if tokErr != nil {
			break // io.EOF or malformed tail; keep what we have
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				inTable = true
				tableRows = nil
			case "tr":
				currentRow = nil
			case "tc":
				text.Reset()
				inPara = false
			case "p":
				if !inTable {
					inPara = true
					text.Reset()
					paraStyle = ""
				}
			case "pStyle":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						paraStyle = attr.Value
					}
				}
			}

		case xml.CharData:
			if inPara || inTable {
				text.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "tc":
				currentRow = append(currentRow, normalizeWhitespace(text.String()))
				text.Reset()
			case "tr":
				if len(currentRow) > 0 {
					tableRows = append(tableRows, currentRow)
				}
			case "tbl":
				inTable = false
				if block := renderTable(tableRows, w.preserveStructure); block != "" {
					blocks = append(blocks, block)
				}
			case "p":
				if inPara {
					inPara = false
					flushPara()
				}
			}
		}
	}
	return blocks, title, nil
}

// headingLevel maps docx paragraph style names to heading levels:
// "Title" -> 1, "Heading1".."Heading6" -> 1..6, anything else -> 0.
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}
	if strings.HasPrefix(lower, "heading") {
		rest := lower[len("heading"):]
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= 6 {
			return n
		}
	}
	return 0
}

// renderTable renders rows as a Markdown table with the first row as
// header. Flattened mode joins cells with spaces instead.
func renderTable(rows [][]string, structured bool) string {
	if len(rows) == 0 {
		return ""
	}
	if !structured {
		var parts []string
		for _, row := range rows {
			parts = append(parts, strings.Join(row, " "))
		}
		return strings.Join(parts, "\n")
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var b strings.Builder
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
		if i == 0 {
			b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func escapeCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.ReplaceAll(cell, "|", "\\|")
	}
	return out
}
