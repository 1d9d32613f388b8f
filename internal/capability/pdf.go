// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package capability

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/tomanizer/markdown-converter/internal/registry"
)

// PDF extracts text from PDF files with pdfcpu, one Markdown section per
// page. The first non-empty line of the first page doubles as the title.
type PDF struct {
	preserveStructure bool
}

// NewPDF returns the PDF capability.
func NewPDF(preserveStructure bool) *PDF {
	return &PDF{preserveStructure: preserveStructure}
}

func (p *PDF) Name() string         { return "pdf" }
func (p *PDF) Extensions() []string { return []string{".pdf"} }

func (p *PDF) CanHandle(path string) bool {
	return hasExt(path, p.Extensions())
}

func (p *PDF) Parse(path string) (registry.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return registry.Result{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return registry.Result{}, fmt.Errorf("reading PDF structure: %w", err)
	}

	var b strings.Builder
	var title string
	pages := 0

	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageText := extractPageText(ctx, pageNr)
		if pageText == "" {
			continue
		}
		pages++

		if title == "" {
			title = firstLine(pageText)
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if p.preserveStructure {
			fmt.Fprintf(&b, "## Page %d\n\n", pageNr)
		}
		b.WriteString(pageText)
	}

	if pages == 0 {
		return registry.Result{}, fmt.Errorf("no text content found in %s", path)
	}

	return registry.Result{
		Markdown: b.String(),
		Title:    title,
		Metadata: map[string]string{
			"source_format": "pdf",
			"pages":         strconv.Itoa(ctx.PageCount),
		},
	}, nil
}

// extractPageText pulls the content stream for one page and decodes its
// text-showing operators.
func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// pdfStringRe matches PDF string literals in parentheses.
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// textFromContentStream scans content-stream lines for the Tj/TJ/' text
// operators, inserting breaks on the positioning operators.
func textFromContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return normalizeWhitespace(sb.String())
}

// decodePDFString resolves the basic PDF escape sequences, including octal
// escapes.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}
