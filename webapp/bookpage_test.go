package webapp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/drummonds/bookview/presentation"
)

func TestPageFlipSettings(t *testing.T) {
	got := pageFlipSettings(presentation.DefaultOptions())
	want := map[string]any{
		"width":            550,
		"height":           733,
		"size":             "stretch",
		"maxShadowOpacity": 0.5,
		"showCover":        true,
		"usePortrait":      false,
		"startPage":        0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}

	fixed := presentation.DefaultOptions()
	fixed.Stretch = false
	if size := pageFlipSettings(fixed)["size"]; size != "fixed" {
		t.Errorf("Expected fixed size, got %v", size)
	}
}

// Outside a browser the widget cannot be built, so the book keeps its
// rendered pages and reports the failure inline.
func TestBookPageWithoutWidget(t *testing.T) {
	b := &presentation.Builder{
		Options:   presentation.DefaultOptions(),
		NewWidget: newPageFlip,
	}
	book, err := b.Build(context.Background(), &pagesDocument{total: 2})

	page := &BookPage{title: "Design Aid"}
	page.built(book, err)

	if page.errMsg != "" {
		t.Fatalf("Unexpected error %q", page.errMsg)
	}
	if page.widgetErr == "" {
		t.Error("Expected a widget error to be shown")
	}
	if len(page.sheets) != 2 {
		t.Errorf("Expected 2 rendered sheets, got %d", len(page.sheets))
	}
	if page.Render() == nil {
		t.Error("Render should return a valid UI")
	}
}

func TestBookPageRenderFailure(t *testing.T) {
	b := &presentation.Builder{NewWidget: newPageFlip}
	book, err := b.Build(context.Background(), &pagesDocument{total: 3, failPage: 3})

	page := &BookPage{}
	page.built(book, err)

	if page.errMsg == "" {
		t.Error("Expected the render failure to be shown")
	}
	if page.book != nil {
		t.Error("No book should be kept after a render failure")
	}
}
