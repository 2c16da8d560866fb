package pdfrenderer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"

	"github.com/drummonds/bookview/render"
)

// PDFiumRenderer implements PDF rendering using go-pdfium with WebAssembly (pure Go, no CGo)
type PDFiumRenderer struct {
	// The WebAssembly instance is single threaded.
	mu       sync.Mutex
	pool     pdfium.Pool
	instance pdfium.Pdfium
}

// NewPDFiumRenderer creates a new PDFium-based PDF renderer using WebAssembly
func NewPDFiumRenderer() (*PDFiumRenderer, error) {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	return &PDFiumRenderer{
		pool:     pool,
		instance: instance,
	}, nil
}

type pageSize struct {
	width, height float64
}

type pdfiumDocument struct {
	r      *PDFiumRenderer
	source string
	handle references.FPDF_DOCUMENT
	sizes  []pageSize
}

type pdfiumPage struct {
	doc    *pdfiumDocument
	number int
	size   pageSize
}

// Open loads the PDF file at source and reads every page size.
func (r *PDFiumRenderer) Open(ctx context.Context, source string) (render.Document, error) {
	pdfBytes, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("unable to read PDF file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return nil, fmt.Errorf("renderer is closed")
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}

	pageCountResp, err := r.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		r.closeDocument(doc.Document)
		return nil, fmt.Errorf("unable to get page count: %w", err)
	}

	sizes := make([]pageSize, 0, pageCountResp.PageCount)
	for pageIndex := 0; pageIndex < pageCountResp.PageCount; pageIndex++ {
		size, err := r.instance.GetPageSize(&requests.GetPageSize{
			Page: requests.Page{
				ByIndex: &requests.PageByIndex{
					Document: doc.Document,
					Index:    pageIndex,
				},
			},
		})
		if err != nil {
			r.closeDocument(doc.Document)
			return nil, fmt.Errorf("unable to get size of page %d: %w", pageIndex+1, err)
		}
		sizes = append(sizes, pageSize{width: size.Width, height: size.Height})
	}

	Logger.Debug("Opened document with PDFium", "source", source, "pages", len(sizes))
	return &pdfiumDocument{r: r, source: source, handle: doc.Document, sizes: sizes}, nil
}

func (r *PDFiumRenderer) closeDocument(handle references.FPDF_DOCUMENT) {
	if _, err := r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: handle}); err != nil {
		Logger.Warn("Unable to close PDFium document", "error", err)
	}
}

// Close cleans up resources used by the PDFium renderer
func (r *PDFiumRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.instance = nil
	return nil
}

func (d *pdfiumDocument) Source() string { return d.source }
func (d *pdfiumDocument) NumPages() int  { return len(d.sizes) }

func (d *pdfiumDocument) Page(ctx context.Context, n int) (render.Page, error) {
	if err := checkPage(n, len(d.sizes)); err != nil {
		return nil, err
	}
	return &pdfiumPage{doc: d, number: n, size: d.sizes[n-1]}, nil
}

func (d *pdfiumDocument) Close() error {
	d.r.mu.Lock()
	defer d.r.mu.Unlock()
	if d.r.instance != nil {
		d.r.closeDocument(d.handle)
	}
	return nil
}

func (p *pdfiumPage) Number() int { return p.number }

func (p *pdfiumPage) Viewport(scale float64) render.Viewport {
	return scaledViewport(p.size.width, p.size.height, scale)
}

func (p *pdfiumPage) Render(ctx context.Context, s render.Surface, vp render.Viewport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bitmap, err := p.renderBitmap(vp)
	if err != nil {
		return err
	}
	return s.Paint(bitmap)
}

func (p *pdfiumPage) renderBitmap(vp render.Viewport) (render.Bitmap, error) {
	r := p.doc.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return render.Bitmap{}, fmt.Errorf("renderer is closed")
	}

	pageRender, err := r.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: int(dpiForScale(vp.Scale) + 0.5),
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: p.doc.handle,
				Index:    p.number - 1,
			},
		},
	})
	if err != nil {
		return render.Bitmap{}, fmt.Errorf("unable to render page %d: %w", p.number, err)
	}
	// The image lives in WebAssembly memory until Cleanup.
	defer pageRender.Cleanup()

	return encodeBitmap(p.number, pageRender.Result.Image, vp)
}
