// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package capability

import (
	"fmt"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/tomanizer/markdown-converter/internal/registry"
)

// HTML converts .html/.htm files: the markup is sanitized first (scripts,
// styles and event handlers stripped), then rendered to Markdown.
type HTML struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
}

// NewHTML returns the HTML capability.
func NewHTML() *HTML {
	return &HTML{
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (h *HTML) Name() string         { return "html" }
func (h *HTML) Extensions() []string { return []string{".html", ".htm"} }

func (h *HTML) CanHandle(path string) bool {
	return hasExt(path, h.Extensions())
}

func (h *HTML) Parse(path string) (registry.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return registry.Result{}, fmt.Errorf("reading %s: %w", path, err)
	}

	title := htmlTitle(string(data))

	markdown, err := h.convert(string(data))
	if err != nil {
		return registry.Result{}, err
	}

	return registry.Result{
		Markdown: markdown,
		Title:    title,
		Metadata: map[string]string{"source_format": "html"},
	}, nil
}

// convert sanitizes markup and renders it to Markdown. Shared with the
// email capability for text/html message parts.
func (h *HTML) convert(src string) (string, error) {
	markdown, err := h.conv.ConvertString(h.policy.Sanitize(src))
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// htmlTitle returns the document <title>, or the first <h1> text when the
// title element is missing or empty.
func htmlTitle(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return ""
	}

	var title, h1 string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" {
					title = nodeText(n)
				}
			case "h1":
				if h1 == "" {
					h1 = nodeText(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title != "" {
		return title
	}
	return h1
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
