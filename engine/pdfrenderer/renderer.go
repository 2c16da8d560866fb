// Package pdfrenderer provides the server-side rendering engines behind the
// render API.
package pdfrenderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/drummonds/bookview/render"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// ErrPageRange is returned for page numbers outside the document.
var ErrPageRange = errors.New("page out of range")

// Renderer is a render.Engine that owns native resources.
type Renderer interface {
	render.Engine

	// Close cleans up any resources used by the renderer
	Close() error
}

// OutlineEntry is one bookmark of a document outline.
type OutlineEntry struct {
	Level int
	Title string
	Page  int // 1-based
}

// Outliner is implemented by renderers that can read a document's outline.
type Outliner interface {
	Outline(ctx context.Context, source string) ([]OutlineEntry, error)
}

// NewRenderer creates the renderer named by kind: "pdfium" (pure Go, no CGo)
// or "fitz" (MuPDF through CGo).
func NewRenderer(kind string) (Renderer, error) {
	switch kind {
	case "", "pdfium":
		return NewPDFiumRenderer()
	case "fitz":
		return NewFitzRenderer()
	default:
		return nil, fmt.Errorf("unknown renderer %q (supported: pdfium, fitz)", kind)
	}
}

func checkPage(n, total int) error {
	if n < 1 || n > total {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPageRange, n, total)
	}
	return nil
}
