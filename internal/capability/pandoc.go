// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package capability

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tomanizer/markdown-converter/internal/registry"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunCapture(name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunCapture(name string, args ...string) ([]byte, error) {
	var out, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %s: %w", name, msg, err)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out.Bytes(), nil
}

var defaultExec = &osExecutor{}

// Pandoc shells out to the pandoc binary. It claims a wide set of formats
// and is registered after the native capabilities, so it only runs when a
// native parser has failed or no native parser exists for the input.
type Pandoc struct {
	bin  string
	exec executor
}

// NewPandoc returns the pandoc capability, or ErrDependencyUnavailable
// when the binary cannot be found on PATH.
func NewPandoc(bin string) (*Pandoc, error) {
	return newPandoc(bin, defaultExec)
}

func newPandoc(bin string, exec executor) (*Pandoc, error) {
	if bin == "" {
		bin = "pandoc"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: %s not found on PATH", types.ErrDependencyUnavailable, bin)
	}
	return &Pandoc{bin: bin, exec: exec}, nil
}

func (p *Pandoc) Name() string { return "pandoc" }

func (p *Pandoc) Extensions() []string {
	return []string{
		".docx", ".odt", ".rtf", ".epub", ".html", ".htm",
		".tex", ".rst", ".org", ".textile",
	}
}

func (p *Pandoc) CanHandle(path string) bool {
	return hasExt(path, p.Extensions())
}

func (p *Pandoc) Parse(path string) (registry.Result, error) {
	out, err := p.exec.RunCapture(p.bin, "--to=gfm", "--wrap=none", path)
	if err != nil {
		return registry.Result{}, fmt.Errorf("converting %s: %w", path, err)
	}

	markdown := strings.TrimSpace(string(out))
	return registry.Result{
		Markdown: markdown,
		Title:    markdownTitle(markdown),
		Metadata: map[string]string{"converter": p.bin},
	}, nil
}
