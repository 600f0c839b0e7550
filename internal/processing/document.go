// Package processing is a sample worker.Processor: it renders a small
// document spec to PDF and PNG and uploads both to an object store.
// It exists to exercise the document-rendering and storage dependencies
// carried over from the print pipeline this queue was distilled from;
// embedders are free to register their own processors instead.
package processing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/basicfont"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
)

// Document is the job payload RenderDocument expects as job.Data(),
// JSON-encoded. HTML, when set, is reduced to plain-text Lines by
// extractText instead of being laid out as markup: this processor
// renders text, not DOM.
type Document struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
	HTML  string   `json:"html,omitempty"`
}

// ParseDocument decodes a job's raw data into a Document, expanding
// HTML into Lines when present.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("processing: invalid document payload: %w", err)
	}
	if doc.Title == "" {
		return Document{}, fmt.Errorf("processing: document title is required")
	}
	if doc.HTML != "" {
		extracted, err := extractText(doc.HTML)
		if err != nil {
			return Document{}, fmt.Errorf("processing: extracting text from html: %w", err)
		}
		doc.Lines = append(doc.Lines, extracted...)
	}
	return doc, nil
}

// Rendered holds the two artifacts produced from a Document.
type Rendered struct {
	PDF []byte
	PNG []byte
}

const (
	pageWidthMM  = 210.0 // A4
	pageHeightMM = 297.0
	marginMM     = 20.0
	lineHeightMM = 8.0

	imageWidthPx  = 1240
	imageHeightPx = 1754
	imageScale    = imageWidthPx / pageWidthMM
)

// RenderToPDF lays the document out as a single A4 page of title plus
// body lines, top to bottom.
func RenderToPDF(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, false)
	pdf.SetCreator("enhanced-embedded-queue", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.SetXY(marginMM, marginMM)
	pdf.Cell(pageWidthMM-2*marginMM, lineHeightMM, doc.Title)

	pdf.SetFont("Arial", "", 12)
	y := marginMM + 2*lineHeightMM
	for _, line := range doc.Lines {
		if y > pageHeightMM-marginMM {
			pdf.AddPage()
			y = marginMM
		}
		pdf.SetXY(marginMM, y)
		pdf.Cell(pageWidthMM-2*marginMM, lineHeightMM, line)
		y += lineHeightMM
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("processing: pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderToPNG draws the same document as a raster preview image, for
// callers that want a thumbnail without a PDF reader.
func RenderToPNG(doc Document) ([]byte, error) {
	canvas := gg.NewContext(imageWidthPx, imageHeightPx)
	canvas.SetColor(color.White)
	canvas.Clear()
	canvas.SetColor(color.Black)

	margin := marginMM * imageScale
	lineHeight := lineHeightMM * imageScale

	canvas.SetFontFace(basicfont.Face7x13)
	canvas.DrawString(doc.Title, margin, margin+lineHeight)

	y := margin + 3*lineHeight
	for _, line := range doc.Lines {
		if y > imageHeightPx-margin {
			break
		}
		canvas.DrawString(line, margin, y)
		y += lineHeight
	}

	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("processing: png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Render produces both artifacts for doc.
func Render(doc Document) (Rendered, error) {
	pdfBytes, err := RenderToPDF(doc)
	if err != nil {
		return Rendered{}, err
	}
	pngBytes, err := RenderToPNG(doc)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{PDF: pdfBytes, PNG: pngBytes}, nil
}

// NewProcessor returns a worker.Processor that renders the job's
// Document payload and uploads both artifacts through sink, reporting
// progress at each stage. The returned result is the pair of object
// keys the caller can hand back to clients.
func NewProcessor(sink Sink) func(job *domain.Job) (interface{}, error) {
	return func(job *domain.Job) (interface{}, error) {
		doc, err := ParseDocument(job.Data())
		if err != nil {
			return nil, err
		}

		_ = job.SetProgress(1, 3)
		rendered, err := Render(doc)
		if err != nil {
			return nil, err
		}

		_ = job.SetProgress(2, 3)
		keys, err := sink.Store(job.ID(), rendered)
		if err != nil {
			return nil, err
		}

		_ = job.SetProgress(3, 3)
		return keys, nil
	}
}
