// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package capability

import (
	"fmt"
	"io"

	"github.com/tomanizer/markdown-converter/internal/pipeline"
	"github.com/tomanizer/markdown-converter/internal/registry"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

// DefaultRegistry builds a registry with every built-in capability in
// fallback order. The pandoc catch-all is registered last and silently
// skipped when the binary is not on PATH.
func DefaultRegistry(cfg types.ConversionConfig) *registry.Registry {
	reg := registry.New()
	reg.Register(NewText())
	reg.Register(NewWord(cfg.PreserveStructure))
	reg.Register(NewExcel(cfg.PreserveStructure))
	reg.Register(NewPDF(cfg.PreserveStructure))
	reg.Register(NewHTML())
	reg.Register(NewEmail())

	if pandoc, err := NewPandoc(cfg.PandocBinary); err == nil {
		reg.Register(pandoc)
	}
	return reg
}

// Bootstrap returns a pipeline factory for the batch runner and grid
// coordinator. Each call builds a fresh registry, so concurrent workers
// never share parser state.
func Bootstrap(cfg types.ConversionConfig) func(w io.Writer) (*pipeline.Pipeline, error) {
	return func(w io.Writer) (*pipeline.Pipeline, error) {
		reg := DefaultRegistry(cfg)
		if reg.Len() == 0 {
			return nil, fmt.Errorf("%w: no capabilities registered", types.ErrConfigInvalid)
		}
		return pipeline.New(reg, w), nil
	}
}
