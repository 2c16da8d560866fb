package viewer

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/drummonds/bookview/render"
)

type renderCall struct {
	Page  int
	Scale float64
}

// fakeDocument is an in-memory render.Document. When started is non-nil every
// render reports itself there; when release is non-nil every render blocks
// until a value (nil or an error) is received.
type fakeDocument struct {
	source   string
	total    int
	failPage int

	started chan renderCall
	release chan error

	mu    sync.Mutex
	calls []renderCall
}

func newFakeDocument(total int) *fakeDocument {
	return &fakeDocument{source: "DA/DA.pdf", total: total}
}

func (d *fakeDocument) Source() string { return d.source }
func (d *fakeDocument) NumPages() int  { return d.total }
func (d *fakeDocument) Close() error   { return nil }

func (d *fakeDocument) Page(ctx context.Context, n int) (render.Page, error) {
	return &fakePage{doc: d, number: n}, nil
}

func (d *fakeDocument) renderCalls() []renderCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]renderCall(nil), d.calls...)
}

type fakePage struct {
	doc    *fakeDocument
	number int
}

func (p *fakePage) Number() int { return p.number }

func (p *fakePage) Viewport(scale float64) render.Viewport {
	return render.Viewport{Scale: scale, Width: int(600 * scale), Height: int(800 * scale)}
}

func (p *fakePage) Render(ctx context.Context, s render.Surface, vp render.Viewport) error {
	call := renderCall{Page: p.number, Scale: vp.Scale}
	p.doc.mu.Lock()
	p.doc.calls = append(p.doc.calls, call)
	p.doc.mu.Unlock()

	if p.doc.started != nil {
		p.doc.started <- call
	}
	if p.doc.release != nil {
		if err := <-p.doc.release; err != nil {
			return err
		}
	}
	if p.number == p.doc.failPage {
		return errors.New("render task rejected")
	}
	return s.Paint(render.Bitmap{Page: p.number, Width: vp.Width, Height: vp.Height})
}

type renderedPage struct {
	Page, Total, Zoom int
}

type fakeDisplay struct {
	mu       sync.Mutex
	rendered []renderedPage
	failures []error
	busy     int
}

func (d *fakeDisplay) SetRendering(busy bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if busy {
		d.busy++
	} else {
		d.busy--
	}
}

func (d *fakeDisplay) PageRendered(page, total, zoom int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rendered = append(d.rendered, renderedPage{page, total, zoom})
}

func (d *fakeDisplay) RenderFailed(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, err)
}

func newTestCoordinator(doc *fakeDocument) (*Coordinator, *fakeDisplay) {
	display := &fakeDisplay{}
	return NewCoordinator(doc, &render.BitmapSurface{}, display), display
}

func TestNextPageFromMiddle(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument(10)
	c, display := newTestCoordinator(doc)

	if err := c.JumpToPage(ctx, 5); err != nil {
		t.Fatalf("JumpToPage(5): %v", err)
	}
	if err := c.GoToNextPage(ctx); err != nil {
		t.Fatalf("GoToNextPage: %v", err)
	}

	if got := c.Snapshot().Page; got != 6 {
		t.Errorf("Expected current page 6, got %d", got)
	}
	want := []renderCall{{5, 1.0}, {6, 1.0}}
	if diff := cmp.Diff(want, doc.renderCalls()); diff != "" {
		t.Errorf("render calls mismatch (-want +got):\n%s", diff)
	}
	last := display.rendered[len(display.rendered)-1]
	if diff := cmp.Diff(renderedPage{6, 10, 100}, last); diff != "" {
		t.Errorf("display mismatch (-want +got):\n%s", diff)
	}
}

func TestNavigationBounds(t *testing.T) {
	ctx := context.Background()

	t.Run("previous on first page", func(t *testing.T) {
		doc := newFakeDocument(3)
		c, _ := newTestCoordinator(doc)
		if err := c.GoToPreviousPage(ctx); err != nil {
			t.Fatalf("GoToPreviousPage: %v", err)
		}
		if got := c.Snapshot().Page; got != 1 {
			t.Errorf("Expected page 1, got %d", got)
		}
		if calls := doc.renderCalls(); len(calls) != 0 {
			t.Errorf("Expected no renders, got %v", calls)
		}
	})

	t.Run("next on last page", func(t *testing.T) {
		doc := newFakeDocument(3)
		c, _ := newTestCoordinator(doc)
		if err := c.JumpToPage(ctx, 3); err != nil {
			t.Fatalf("JumpToPage(3): %v", err)
		}
		if err := c.GoToNextPage(ctx); err != nil {
			t.Fatalf("GoToNextPage: %v", err)
		}
		if got := c.Snapshot().Page; got != 3 {
			t.Errorf("Expected page 3, got %d", got)
		}
		if calls := doc.renderCalls(); len(calls) != 1 {
			t.Errorf("Expected a single render, got %v", calls)
		}
	})
}

func TestCoalescesPendingRenders(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument(10)
	doc.started = make(chan renderCall, 10)
	doc.release = make(chan error)
	c, display := newTestCoordinator(doc)

	done := make(chan error, 1)
	go func() { done <- c.JumpToPage(ctx, 3) }()

	if got := <-doc.started; got.Page != 3 {
		t.Fatalf("Expected page 3 in flight, got %d", got.Page)
	}

	// Both calls return straight away: the first render is still outstanding.
	if err := c.GoToNextPage(ctx); err != nil {
		t.Fatalf("GoToNextPage: %v", err)
	}
	if err := c.GoToNextPage(ctx); err != nil {
		t.Fatalf("GoToNextPage: %v", err)
	}

	snap := c.Snapshot()
	if snap.State != RenderingPending || snap.Pending != 5 || snap.Page != 5 {
		t.Fatalf("Expected rendering-pending with page 5 queued, got %+v", snap)
	}

	doc.release <- nil
	if got := <-doc.started; got.Page != 5 {
		t.Fatalf("Expected page 5 to be rendered next, got %d", got.Page)
	}
	doc.release <- nil

	if err := <-done; err != nil {
		t.Fatalf("JumpToPage: %v", err)
	}

	want := []renderCall{{3, 1.0}, {5, 1.0}}
	if diff := cmp.Diff(want, doc.renderCalls()); diff != "" {
		t.Errorf("render calls mismatch (-want +got):\n%s", diff)
	}
	if snap := c.Snapshot(); snap.State != Idle || snap.Pending != 0 {
		t.Errorf("Expected idle with empty slot, got %+v", snap)
	}
	if display.busy != 0 {
		t.Errorf("SetRendering calls unbalanced: %d", display.busy)
	}
}

func TestOnlyLastRequestIsRenderedAfterInFlight(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		doc := newFakeDocument(20)
		doc.started = make(chan renderCall, 2)
		doc.release = make(chan error)
		c, _ := newTestCoordinator(doc)

		done := make(chan error, 1)
		go func() { done <- c.Start(ctx) }()
		<-doc.started

		// Simulate the navigation rules to know which request was issued last.
		page, last := 1, 0
		moves := 1 + rng.Intn(8)
		for i := 0; i < moves; i++ {
			switch rng.Intn(3) {
			case 0:
				target := 1 + rng.Intn(20)
				if err := c.JumpToPage(ctx, target); err != nil {
					t.Fatalf("JumpToPage(%d): %v", target, err)
				}
				page, last = target, target
			case 1:
				if err := c.GoToNextPage(ctx); err != nil {
					t.Fatalf("GoToNextPage: %v", err)
				}
				if page < 20 {
					page++
					last = page
				}
			case 2:
				if err := c.GoToPreviousPage(ctx); err != nil {
					t.Fatalf("GoToPreviousPage: %v", err)
				}
				if page > 1 {
					page--
					last = page
				}
			}
		}
		if snap := c.Snapshot(); snap.Pending != last {
			t.Fatalf("trial %d: pending slot holds %d, want %d", trial, snap.Pending, last)
		}

		doc.release <- nil
		if last != 0 {
			got := <-doc.started
			if got.Page != last {
				t.Fatalf("trial %d: expected page %d after in-flight render, got %d", trial, last, got.Page)
			}
			doc.release <- nil
		}
		if err := <-done; err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		calls := doc.renderCalls()
		if last == 0 && len(calls) != 1 {
			t.Fatalf("trial %d: expected 1 render, got %v", trial, calls)
		}
		if last != 0 && len(calls) != 2 {
			t.Fatalf("trial %d: expected 2 renders, got %v", trial, calls)
		}
		if got := c.Snapshot().Page; last != 0 && got != last {
			t.Fatalf("trial %d: current page %d, want %d", trial, got, last)
		}
	}
}

func TestZoom(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument(4)
	c, display := newTestCoordinator(doc)

	for i := 0; i < 3; i++ {
		if err := c.ZoomIn(ctx); err != nil {
			t.Fatalf("ZoomIn: %v", err)
		}
	}
	if got := c.Snapshot().Scale; got != 1.75 {
		t.Errorf("Expected scale 1.75 after three zoom-ins, got %v", got)
	}
	if got := c.ZoomPercent(); got != 175 {
		t.Errorf("Expected 175%%, got %d%%", got)
	}

	for i := 0; i < 5; i++ {
		if err := c.ZoomOut(ctx); err != nil {
			t.Fatalf("ZoomOut: %v", err)
		}
	}
	if got := c.Snapshot().Scale; got != 0.5 {
		t.Errorf("Expected scale 0.5 after five zoom-outs, got %v", got)
	}

	renders := len(doc.renderCalls())
	if err := c.ZoomOut(ctx); err != nil {
		t.Fatalf("ZoomOut: %v", err)
	}
	if got := c.Snapshot().Scale; got != 0.5 {
		t.Errorf("ZoomOut went below the floor: %v", got)
	}
	if got := len(doc.renderCalls()); got != renders {
		t.Errorf("ZoomOut at the floor issued a render")
	}

	calls := doc.renderCalls()
	if calls[2].Scale != 1.75 || calls[len(calls)-1].Scale != 0.5 {
		t.Errorf("renders did not follow the scale: %v", calls)
	}
	if got := display.rendered[2].Zoom; got != 175 {
		t.Errorf("Expected zoom text 175, got %d", got)
	}
}

func TestZoomInHasNoCeiling(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(newFakeDocument(1))
	for i := 0; i < 40; i++ {
		if err := c.ZoomIn(ctx); err != nil {
			t.Fatalf("ZoomIn: %v", err)
		}
	}
	if got := c.Snapshot().Scale; got != 11.0 {
		t.Errorf("Expected scale 11, got %v", got)
	}
}

func TestJumpToPageRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument(10)
	c, _ := newTestCoordinator(doc)

	for _, target := range []int{0, -1, 11, 1000} {
		err := c.JumpToPage(ctx, target)
		if !errors.Is(err, ErrPageOutOfRange) {
			t.Errorf("JumpToPage(%d): expected ErrPageOutOfRange, got %v", target, err)
		}
	}
	if got := c.Snapshot().Page; got != 1 {
		t.Errorf("Rejected jumps changed the page to %d", got)
	}
	if calls := doc.renderCalls(); len(calls) != 0 {
		t.Errorf("Rejected jumps issued renders: %v", calls)
	}
	if err := c.RequestRender(ctx, 11); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("RequestRender(11): expected ErrPageOutOfRange, got %v", err)
	}
}

func TestRenderFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument(5)
	doc.failPage = 2
	c, display := newTestCoordinator(doc)

	err := c.JumpToPage(ctx, 2)
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("Expected *RenderError, got %v", err)
	}
	if renderErr.Page != 2 || renderErr.Source != "DA/DA.pdf" {
		t.Errorf("Unexpected error details: %+v", renderErr)
	}
	if len(display.failures) != 1 {
		t.Fatalf("Expected one failure on the display, got %d", len(display.failures))
	}
	if c.Snapshot().State != Failed {
		t.Errorf("Expected failed state, got %v", c.Snapshot().State)
	}

	if err := c.GoToNextPage(ctx); !errors.As(err, &renderErr) {
		t.Errorf("Expected the terminal error after failure, got %v", err)
	}
	if calls := doc.renderCalls(); len(calls) != 1 {
		t.Errorf("Expected no renders after failure, got %v", calls)
	}
}

func TestNavigationAfterFailureKeepsView(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument(5)
	doc.failPage = 1
	c, _ := newTestCoordinator(doc)

	if err := c.Start(ctx); err == nil {
		t.Fatal("Expected the first render to fail")
	}
	want := c.Snapshot()

	actions := []struct {
		name string
		run  func() error
	}{
		{"next", func() error { return c.GoToNextPage(ctx) }},
		{"next again", func() error { return c.GoToNextPage(ctx) }},
		{"zoom in", func() error { return c.ZoomIn(ctx) }},
		{"zoom out", func() error { return c.ZoomOut(ctx) }},
		{"previous", func() error { return c.GoToPreviousPage(ctx) }},
		{"jump", func() error { return c.JumpToPage(ctx, 4) }},
	}
	for _, a := range actions {
		var renderErr *RenderError
		if err := a.run(); !errors.As(err, &renderErr) || renderErr.Page != 1 {
			t.Errorf("%s: expected the terminal error for page 1, got %v", a.name, err)
		}
	}

	if diff := cmp.Diff(want, c.Snapshot()); diff != "" {
		t.Errorf("View changed after failure (-want +got):\n%s", diff)
	}
	if want.Page != 1 || want.Scale != DefaultScale || want.State != Failed {
		t.Errorf("Unexpected failed view %+v", want)
	}
	if calls := doc.renderCalls(); len(calls) != 1 {
		t.Errorf("Expected a single render, got %v", calls)
	}
}

func TestRenderFailureDropsPendingPage(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDocument(5)
	doc.started = make(chan renderCall, 2)
	doc.release = make(chan error)
	c, display := newTestCoordinator(doc)

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	<-doc.started

	if err := c.JumpToPage(ctx, 4); err != nil {
		t.Fatalf("JumpToPage(4): %v", err)
	}
	doc.release <- errors.New("worker terminated")

	if err := <-done; err == nil {
		t.Fatal("Expected Start to report the failure")
	}
	snap := c.Snapshot()
	if snap.State != Failed || snap.Pending != 0 {
		t.Errorf("Expected failed with empty slot, got %+v", snap)
	}
	if calls := doc.renderCalls(); len(calls) != 1 {
		t.Errorf("Pending page was rendered after failure: %v", calls)
	}
	if len(display.failures) != 1 {
		t.Errorf("Expected one reported failure, got %d", len(display.failures))
	}
}

func TestParsePageInput(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"7", 7, false},
		{" 12 ", 12, false},
		{"", 0, true},
		{"abc", 0, true},
		{"3.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePageInput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePageInput(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePageInput(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRenderStateString(t *testing.T) {
	if Idle.String() != "idle" || RenderingPending.String() != "rendering-pending" {
		t.Errorf("unexpected state names: %s %s", Idle, RenderingPending)
	}
}
