// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry implements capability registration and lookup for
// document conversion. A capability declares which file formats it handles;
// the registry answers "which capabilities should attempt this file" in
// registration order, so specialized capabilities registered before the
// generic catch-all are tried first.
package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Result is the product of one successful parse: Markdown text plus
// whatever metadata the capability could recover.
type Result struct {
	// Markdown is the converted document body.
	Markdown string

	// Title is the document title when one could be detected.
	Title string

	// Metadata holds capability-specific key/value pairs (page counts,
	// sheet names, source format).
	Metadata map[string]string
}

// Capability converts one family of document formats to Markdown. Concrete
// implementations (Word, Excel, PDF, HTML, pandoc) live behind this
// interface; the core depends only on the declared contract.
type Capability interface {
	// Name identifies the capability in logs and outcomes.
	Name() string

	// Extensions lists the file extensions this capability claims,
	// lowercase with leading dot (e.g. ".docx").
	Extensions() []string

	// CanHandle reports whether this capability will attempt the file.
	// Usually an extension match; may content-sniff.
	CanHandle(path string) bool

	// Parse converts the file and returns the Markdown result.
	Parse(path string) (Result, error)
}

// Descriptor is a registered capability's identity: its name and the
// extensions it claims. Read-only after registration.
type Descriptor struct {
	Name       string
	Extensions []string
}

// Registry holds an ordered list of capabilities. It is constructed once per
// process or worker and passed by reference; it is not safe for concurrent
// registration, and is treated as read-only after setup.
type Registry struct {
	capabilities []Capability
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register appends a capability. No de-duplication: registering the same
// capability twice simply adds another candidate considered in order.
func (r *Registry) Register(c Capability) {
	r.capabilities = append(r.capabilities, c)
}

// Resolve returns the first capability claiming the file, or nil when none
// does. A nil result is not an error here; the pipeline surfaces it as an
// unsupported format.
func (r *Registry) Resolve(path string) Capability {
	if out := r.Candidates(path); len(out) > 0 {
		return out[0]
	}
	return nil
}

// Candidates returns every capability claiming the file, preserving
// registration order. The pipeline iterates this list as its fallback
// chain. A path with no filename extension is content-sniffed and matched
// against the capabilities claiming the sniffed extension, so raw exports
// without suffixes still convert.
func (r *Registry) Candidates(path string) []Capability {
	var out []Capability
	for _, c := range r.capabilities {
		if c.CanHandle(path) {
			out = append(out, c)
		}
	}
	if len(out) == 0 && filepath.Ext(path) == "" {
		ext := SniffFormat(path)
		for _, c := range r.capabilities {
			if claimsExt(c, ext) {
				out = append(out, c)
			}
		}
	}
	return out
}

// claimsExt reports whether the capability lists the extension.
func claimsExt(c Capability, ext string) bool {
	for _, e := range c.Extensions() {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// SupportedFormats returns the sorted union of extensions claimed by all
// registered capabilities, duplicates collapsed.
func (r *Registry) SupportedFormats() []string {
	seen := make(map[string]bool)
	for _, c := range r.capabilities {
		for _, ext := range c.Extensions() {
			seen[strings.ToLower(ext)] = true
		}
	}
	out := make([]string, 0, len(seen))
	for ext := range seen {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Supports reports whether any capability claims the extension.
func (r *Registry) Supports(ext string) bool {
	ext = strings.ToLower(ext)
	for _, c := range r.capabilities {
		for _, e := range c.Extensions() {
			if strings.ToLower(e) == ext {
				return true
			}
		}
	}
	return false
}

// Descriptors returns the identity of every registered capability in
// registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.capabilities))
	for _, c := range r.capabilities {
		out = append(out, Descriptor{Name: c.Name(), Extensions: c.Extensions()})
	}
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	return len(r.capabilities)
}

// SniffFormat inspects the leading bytes of a file and returns a best-guess
// extension when the filename extension is missing or unrecognized. ZIP
// signature maps to .docx, %PDF to .pdf, an HTML doctype to .html; anything
// else is treated as Markdown/plain text.
func SniffFormat(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ".md"
	}
	defer f.Close()

	header := make([]byte, 16)
	n, _ := f.Read(header)
	header = header[:n]

	switch {
	case len(header) >= 4 && string(header[:4]) == "PK\x03\x04":
		return ".docx"
	case len(header) >= 4 && string(header[:4]) == "%PDF":
		return ".pdf"
	case hasHTMLPrefix(header):
		return ".html"
	default:
		return ".md"
	}
}

func hasHTMLPrefix(header []byte) bool {
	s := strings.ToLower(strings.TrimLeft(string(header), " \t\r\n"))
	return strings.HasPrefix(s, "<!doctype") || strings.HasPrefix(s, "<html")
}

// ExtOf returns the lowercase extension of path, falling back to content
// sniffing when the path has none.
func ExtOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return SniffFormat(path)
	}
	return ext
}
