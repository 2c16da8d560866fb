// Package presentation builds the page-flip view: every page is rendered up
// front and the finished set is handed to a flip widget.
package presentation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/drummonds/bookview/render"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// Options configures the flip widget.
type Options struct {
	Width            int
	Height           int
	Stretch          bool
	MaxShadowOpacity float64
	ShowCover        bool
	Portrait         bool
	StartPage        int // 0-based
}

// DefaultOptions returns the widget settings used by the book page.
func DefaultOptions() Options {
	return Options{
		Width:            550,
		Height:           733,
		Stretch:          true,
		MaxShadowOpacity: 0.5,
		ShowCover:        true,
	}
}

// Sheet is one rendered page handed to the widget.
type Sheet struct {
	Page   int
	Bitmap render.Bitmap
}

// Widget is the page-flip collaborator.
type Widget interface {
	LoadFromHTML(sheets []Sheet) error
	Flip(index int)
	FlipNext()
	FlipPrev()
	CurrentPageIndex() int
}

// WidgetFactory constructs a widget for the given options.
type WidgetFactory func(opts Options) (Widget, error)

// RenderError reports a page that failed while building the book.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("unable to render page %d for presentation: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// WidgetError reports a widget that could not be set up. The pages it would
// have shown are still available on the Book.
type WidgetError struct {
	Err error
}

func (e *WidgetError) Error() string {
	return fmt.Sprintf("unable to initialise page flip: %v", e.Err)
}

func (e *WidgetError) Unwrap() error { return e.Err }

// Builder renders a whole document for the flip view.
type Builder struct {
	Scale     float64
	Options   Options
	NewWidget WidgetFactory
	// Concurrency bounds in-flight renders; 0 means no limit.
	Concurrency int
}

// Build renders every page of doc, waits for all of them, then loads the
// result into a new widget. A widget failure is returned as *WidgetError
// alongside a usable Book.
func (b *Builder) Build(ctx context.Context, doc render.Document) (*Book, error) {
	sheets, err := b.renderAll(ctx, doc)
	if err != nil {
		return nil, err
	}
	book := &Book{sheets: sheets}

	if b.NewWidget == nil {
		return book, &WidgetError{Err: fmt.Errorf("no widget factory configured")}
	}
	widget, err := b.newWidget()
	if err != nil {
		Logger.Error("Page flip widget failed to initialise", "error", err)
		return book, &WidgetError{Err: err}
	}
	if err := widget.LoadFromHTML(sheets); err != nil {
		Logger.Error("Page flip widget rejected pages", "pages", len(sheets), "error", err)
		return book, &WidgetError{Err: err}
	}
	book.widget = widget
	Logger.Info("Presentation ready", "source", doc.Source(), "pages", len(sheets))
	return book, nil
}

// newWidget runs the factory, turning a panic in the collaborator into an error.
func (b *Builder) newWidget() (w Widget, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.NewWidget(b.Options)
}

func (b *Builder) renderAll(ctx context.Context, doc render.Document) ([]Sheet, error) {
	total := doc.NumPages()
	sheets := make([]Sheet, total)
	scale := b.Scale
	if scale <= 0 {
		scale = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	if b.Concurrency > 0 {
		g.SetLimit(b.Concurrency)
	}
	for n := 1; n <= total; n++ {
		g.Go(func() error {
			page, err := doc.Page(gctx, n)
			if err != nil {
				return &RenderError{Page: n, Err: err}
			}
			vp := page.Viewport(scale)
			vp.MaxWidth = b.Options.Width
			vp.MaxHeight = b.Options.Height
			surface := &render.BitmapSurface{}
			if err := page.Render(gctx, surface, vp); err != nil {
				return &RenderError{Page: n, Err: err}
			}
			bitmap, err := surface.Bitmap()
			if err != nil {
				return &RenderError{Page: n, Err: err}
			}
			sheets[n-1] = Sheet{Page: n, Bitmap: bitmap}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sheets, nil
}

// Book is a rendered document, optionally driven by a flip widget.
type Book struct {
	mu     sync.Mutex
	sheets []Sheet
	widget Widget
}

// Sheets returns the rendered pages in order.
func (b *Book) Sheets() []Sheet {
	return b.sheets
}

// Interactive reports whether a widget is attached.
func (b *Book) Interactive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.widget != nil
}

// Next flips forward.
func (b *Book) Next() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.widget != nil {
		b.widget.FlipNext()
	}
}

// Prev flips back.
func (b *Book) Prev() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.widget != nil {
		b.widget.FlipPrev()
	}
}

// FlipTo flips to the 1-based page. Pages outside the book are ignored.
func (b *Book) FlipTo(page int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.widget == nil || page < 1 || page > len(b.sheets) {
		return
	}
	b.widget.Flip(page - 1)
}

// CurrentPage returns the 1-based page shown by the widget, or 1 without one.
func (b *Book) CurrentPage() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.widget == nil {
		return 1
	}
	return b.widget.CurrentPageIndex() + 1
}
