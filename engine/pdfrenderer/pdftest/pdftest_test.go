package pdftest

import (
	"bytes"
	"testing"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/destination"
	"seehuhn.de/go/pdf/outline"
	"seehuhn.de/go/pdf/pagetree"
)

func TestBuildOutline(t *testing.T) {
	titles := []string{"Introduction", `Loads (dead \ live)`, "Bolts)("}
	data, err := Build(4,
		Bookmark{Title: titles[0], Page: 1},
		Bookmark{Title: titles[1], Page: 3},
		Bookmark{Title: titles[2], Page: 4},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("Generated file does not parse: %v", err)
	}
	defer r.Close()

	n, err := pagetree.NumPages(r)
	if err != nil || n != 4 {
		t.Fatalf("NumPages = %d, %v; want 4", n, err)
	}

	tree, err := outline.Read(r)
	if err != nil {
		t.Fatalf("outline.Read: %v", err)
	}
	if tree == nil || len(tree.Items) != len(titles) {
		t.Fatalf("Expected %d outline items, got %+v", len(titles), tree)
	}
	wantPages := []int{1, 3, 4}
	for i, item := range tree.Items {
		if item.Title != titles[i] {
			t.Errorf("Item %d title = %q, want %q", i, item.Title, titles[i])
		}
		fit, ok := item.Destination.(*destination.Fit)
		if !ok {
			t.Errorf("Item %d destination is %T, want *destination.Fit", i, item.Destination)
			continue
		}
		ref, _, err := pagetree.GetPage(r, wantPages[i]-1)
		if err != nil {
			t.Fatalf("GetPage(%d): %v", wantPages[i]-1, err)
		}
		if fit.Page != ref {
			t.Errorf("Item %d points at %v, want page %d (%v)", i, fit.Page, wantPages[i], ref)
		}
	}
}

func TestBuildRejectsBookmarkOutsideDocument(t *testing.T) {
	if _, err := Build(2, Bookmark{Title: "Appendix", Page: 3}); err == nil {
		t.Error("Expected an error for a bookmark past the last page")
	}
}
