package pdfrenderer

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"

	"github.com/drummonds/bookview/render"
)

// FitzRenderer implements PDF rendering using go-fitz (requires CGo and MuPDF)
type FitzRenderer struct {
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{}, nil
}

type fitzDocument struct {
	source string
	doc    *fitz.Document
}

type fitzPage struct {
	doc           *fitzDocument
	number        int
	width, height float64
}

// Open opens the PDF file at source. The document stays open until Close.
func (r *FitzRenderer) Open(ctx context.Context, source string) (render.Document, error) {
	doc, err := fitz.New(source)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	Logger.Debug("Opened document with MuPDF", "source", source, "pages", doc.NumPage())
	return &fitzDocument{source: source, doc: doc}, nil
}

// Outline returns the document bookmarks with 1-based pages.
func (r *FitzRenderer) Outline(ctx context.Context, source string) ([]OutlineEntry, error) {
	doc, err := fitz.New(source)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()

	toc, err := doc.ToC()
	if err != nil {
		return nil, fmt.Errorf("unable to read outline: %w", err)
	}
	entries := make([]OutlineEntry, 0, len(toc))
	for _, o := range toc {
		// MuPDF reports 0-based page numbers; -1 for external links.
		if o.Page < 0 {
			continue
		}
		entries = append(entries, OutlineEntry{Level: o.Level, Title: o.Title, Page: o.Page + 1})
	}
	return entries, nil
}

// Close cleans up resources (no-op for Fitz renderer as documents are closed individually)
func (r *FitzRenderer) Close() error {
	return nil
}

func (d *fitzDocument) Source() string { return d.source }
func (d *fitzDocument) NumPages() int  { return d.doc.NumPage() }
func (d *fitzDocument) Close() error   { return d.doc.Close() }

func (d *fitzDocument) Page(ctx context.Context, n int) (render.Page, error) {
	if err := checkPage(n, d.doc.NumPage()); err != nil {
		return nil, err
	}
	bounds, err := d.doc.Bound(n - 1)
	if err != nil {
		return nil, fmt.Errorf("unable to read bounds of page %d: %w", n, err)
	}
	return &fitzPage{
		doc:    d,
		number: n,
		width:  float64(bounds.Dx()),
		height: float64(bounds.Dy()),
	}, nil
}

func (p *fitzPage) Number() int { return p.number }

func (p *fitzPage) Viewport(scale float64) render.Viewport {
	return scaledViewport(p.width, p.height, scale)
}

func (p *fitzPage) Render(ctx context.Context, s render.Surface, vp render.Viewport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := p.doc.doc.ImageDPI(p.number-1, dpiForScale(vp.Scale))
	if err != nil {
		return fmt.Errorf("unable to render page %d: %w", p.number, err)
	}
	bitmap, err := encodeBitmap(p.number, img, vp)
	if err != nil {
		return err
	}
	return s.Paint(bitmap)
}
