// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package capability

import "testing"

func TestTextFromContentStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n(Hello) Tj\n100 0 Td\n(World) Tj\nT*\n(Next line) Tj\nET\n")
	got := textFromContentStream(stream)
	want := "Hello World Next line"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`tab\there`, "tab\there"},
		{`octal\101`, "octalA"},
		{`back\\slash`, `back\slash`},
	}
	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.raw)); got != tt.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestPDFCanHandle(t *testing.T) {
	p := NewPDF(true)
	if !p.CanHandle("file.pdf") || p.CanHandle("file.docx") {
		t.Error("extension matching wrong")
	}
}
