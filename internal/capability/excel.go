// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package capability

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tomanizer/markdown-converter/internal/registry"
)

// Excel converts spreadsheet workbooks: one Markdown section per sheet,
// with the cell grid rendered as a Markdown table.
type Excel struct {
	preserveStructure bool
}

// NewExcel returns the Excel capability.
func NewExcel(preserveStructure bool) *Excel {
	return &Excel{preserveStructure: preserveStructure}
}

func (e *Excel) Name() string         { return "excel" }
func (e *Excel) Extensions() []string { return []string{".xlsx", ".xlsm", ".xltx"} }

func (e *Excel) CanHandle(path string) bool {
	return hasExt(path, e.Extensions())
}

func (e *Excel) Parse(path string) (registry.Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return registry.Result{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return registry.Result{}, fmt.Errorf("workbook %s has no sheets", path)
	}

	var b strings.Builder
	nonEmpty := 0
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return registry.Result{}, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		rows = trimEmptyRows(rows)
		if len(rows) == 0 {
			continue
		}
		nonEmpty++

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if e.preserveStructure {
			b.WriteString("## " + sheet + "\n\n")
		}
		b.WriteString(renderTable(rows, e.preserveStructure))
	}

	return registry.Result{
		Markdown: b.String(),
		Title:    sheets[0],
		Metadata: map[string]string{
			"source_format": "xlsx",
			"sheets":        strconv.Itoa(nonEmpty),
		},
	}, nil
}

// trimEmptyRows drops rows whose every cell is blank.
func trimEmptyRows(rows [][]string) [][]string {
	var out [][]string
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}
