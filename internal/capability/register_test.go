// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package capability

import (
	"bytes"
	"testing"

	"github.com/tomanizer/markdown-converter/pkg/types"
)

func TestDefaultRegistryOrder(t *testing.T) {
	reg := DefaultRegistry(types.ConversionConfig{PreserveStructure: true})

	if reg.Len() < 6 {
		t.Fatalf("registry has %d capabilities, want at least 6", reg.Len())
	}

	// Native capabilities outrank the pandoc catch-all for shared formats.
	if cap := reg.Resolve("report.docx"); cap == nil || cap.Name() != "word" {
		t.Errorf("docx resolved to %v, want word", cap)
	}
	if cap := reg.Resolve("page.html"); cap == nil || cap.Name() != "html" {
		t.Errorf("html resolved to %v, want html", cap)
	}
	if cap := reg.Resolve("message.eml"); cap == nil || cap.Name() != "email" {
		t.Errorf("eml resolved to %v, want email", cap)
	}
}

func TestBootstrapBuildsPipeline(t *testing.T) {
	bootstrap := Bootstrap(types.ConversionConfig{})

	var log bytes.Buffer
	p, err := bootstrap(&log)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if p == nil {
		t.Fatal("bootstrap returned nil pipeline")
	}
}
