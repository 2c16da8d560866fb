// Package pdftest writes small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/destination"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/font/standard"
	"seehuhn.de/go/pdf/outline"
)

// Letter page size in points.
const (
	PageWidth  = 612
	PageHeight = 792
)

// Bookmark is an outline entry pointing at a 1-based page.
type Bookmark struct {
	Title string
	Page  int
}

// Build returns a PDF with the given number of letter pages. Page n shows the
// text "Page n". Bookmarks become the document outline.
func Build(pages int, bookmarks ...Bookmark) ([]byte, error) {
	buf := &bytes.Buffer{}
	// Plain xref tables keep the file readable by ledongthuc/pdf.
	opt := &pdf.WriterOptions{HumanReadable: true}
	doc, err := document.WriteMultiPage(buf, document.Letter, pdf.V1_7, opt)
	if err != nil {
		return nil, err
	}

	refs := make([]pdf.Reference, pages)
	for i := range refs {
		refs[i] = doc.Out.Alloc()
	}

	font := standard.Helvetica.New()
	for i, ref := range refs {
		page := doc.AddPage()
		page.Ref = ref
		page.TextBegin()
		page.TextSetFont(font, 24)
		page.TextFirstLine(72, 720)
		page.TextShow(fmt.Sprintf("Page %d", i+1))
		page.TextEnd()
		if err := page.Close(); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
	}

	if len(bookmarks) > 0 {
		tree := &outline.Outline{}
		for _, b := range bookmarks {
			if b.Page < 1 || b.Page > pages {
				return nil, fmt.Errorf("bookmark %q points at page %d of %d", b.Title, b.Page, pages)
			}
			item := tree.AddItem(b.Title)
			item.Destination = &destination.Fit{Page: refs[b.Page-1]}
		}
		if err := tree.Write(doc.RM); err != nil {
			return nil, fmt.Errorf("outline: %w", err)
		}
	}

	if err := doc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores a generated PDF as dir/name and returns its path.
func Write(t testing.TB, dir, name string, pages int, bookmarks ...Bookmark) string {
	t.Helper()
	data, err := Build(pages, bookmarks...)
	if err != nil {
		t.Fatalf("unable to build %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("unable to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("unable to write %s: %v", path, err)
	}
	return path
}
