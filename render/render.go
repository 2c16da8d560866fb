// Package render defines the contract between the viewer and a PDF rendering
// engine. Engines live on the server (engine/pdfrenderer); the browser reaches
// them through RemoteEngine.
package render

import (
	"context"
	"errors"
	"sync"
)

// ErrNotPainted is returned by BitmapSurface.Bitmap before the first paint.
var ErrNotPainted = errors.New("surface has not been painted")

// Engine opens documents by source locator (a path or URL understood by the engine).
type Engine interface {
	Open(ctx context.Context, source string) (Document, error)
}

// Document is an opened document.
type Document interface {
	Source() string
	NumPages() int
	// Page returns the 1-based page n.
	Page(ctx context.Context, n int) (Page, error)
	Close() error
}

// Page is a single page of an opened document.
type Page interface {
	Number() int
	// Viewport returns the target dimensions for the page at scale.
	// Width and Height are zero when the engine does not know the page size up front.
	Viewport(scale float64) Viewport
	// Render draws the page onto s and returns once the bitmap has been painted.
	Render(ctx context.Context, s Surface, vp Viewport) error
}

// Viewport is the target scale and dimensions used when drawing a page.
type Viewport struct {
	Scale  float64
	Width  int
	Height int
	// MaxWidth and MaxHeight, when non-zero, bound the painted bitmap.
	MaxWidth  int
	MaxHeight int
}

// Bitmap is an encoded rendered page.
type Bitmap struct {
	Page        int
	Width       int
	Height      int
	ContentType string
	Data        []byte
}

// Surface is the drawing target a page is rendered onto.
type Surface interface {
	Paint(b Bitmap) error
}

// BitmapSurface keeps the last painted bitmap in memory.
type BitmapSurface struct {
	mu      sync.Mutex
	bitmap  Bitmap
	painted bool
}

// Paint implements Surface.
func (s *BitmapSurface) Paint(b Bitmap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitmap = b
	s.painted = true
	return nil
}

// Bitmap returns the last painted bitmap.
func (s *BitmapSurface) Bitmap() (Bitmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.painted {
		return Bitmap{}, ErrNotPainted
	}
	return s.bitmap, nil
}
