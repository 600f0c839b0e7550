package processing

import (
	"bytes"
	"testing"
)

func TestParseDocumentRequiresTitle(t *testing.T) {
	if _, err := ParseDocument([]byte(`{"lines":["a"]}`)); err == nil {
		t.Fatal("ParseDocument() with no title should fail")
	}
}

func TestParseDocumentExpandsHTML(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"title":"T","html":"<p>hello</p><p>world</p>"}`))
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if len(doc.Lines) != 2 || doc.Lines[0] != "hello" || doc.Lines[1] != "world" {
		t.Fatalf("Lines = %v, want [hello world]", doc.Lines)
	}
}

func TestRenderToPDFProducesNonEmptyOutput(t *testing.T) {
	doc := Document{Title: "Report", Lines: []string{"line one", "line two"}}
	pdf, err := RenderToPDF(doc)
	if err != nil {
		t.Fatalf("RenderToPDF() error: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("RenderToPDF() returned empty output")
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("RenderToPDF() output missing PDF header, got %q", pdf[:minInt(4, len(pdf))])
	}
}

func TestRenderToPNGProducesNonEmptyOutput(t *testing.T) {
	doc := Document{Title: "Report", Lines: []string{"line one"}}
	png, err := RenderToPNG(doc)
	if err != nil {
		t.Fatalf("RenderToPNG() error: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("RenderToPNG() returned empty output")
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("RenderToPNG() output missing PNG signature")
	}
}

func TestRenderToPDFOverflowsToNewPage(t *testing.T) {
	lines := make([]string, 60)
	for i := range lines {
		lines[i] = "a line of body text"
	}
	doc := Document{Title: "Long Report", Lines: lines}
	if _, err := RenderToPDF(doc); err != nil {
		t.Fatalf("RenderToPDF() error with many lines: %v", err)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
