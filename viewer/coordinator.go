// Package viewer holds the page-render coordinator and the document loader
// used by the reader UI.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/drummonds/bookview/render"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

const (
	// ZoomStep is added or removed by ZoomIn and ZoomOut.
	ZoomStep = 0.25
	// ZoomFloor is the scale at which ZoomOut stops.
	ZoomFloor = 0.5
	// DefaultScale is the scale of a freshly loaded document.
	DefaultScale = 1.0
)

// ErrPageOutOfRange is returned for page numbers outside [1, NumPages].
var ErrPageOutOfRange = errors.New("page out of range")

// RenderState is the state of the coordinator's render slot.
type RenderState int

const (
	// Idle means no render is in flight.
	Idle RenderState = iota
	// Rendering means one render is in flight and nothing is queued.
	Rendering
	// RenderingPending means one render is in flight and a page is queued behind it.
	RenderingPending
	// Failed is terminal: a render failed and the viewer needs a reload.
	Failed
)

func (s RenderState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case RenderingPending:
		return "rendering-pending"
	case Failed:
		return "failed"
	default:
		return "RenderState(" + strconv.Itoa(int(s)) + ")"
	}
}

// Display receives the UI side effects of rendering.
type Display interface {
	// SetRendering is called with true before each engine render and false after it.
	SetRendering(busy bool)
	// PageRendered is called after a page has been painted onto the surface.
	PageRendered(page, total, zoomPercent int)
	// RenderFailed is called once, when the coordinator enters the Failed state.
	RenderFailed(err error)
}

// RenderError reports a page that could not be fetched or rendered.
type RenderError struct {
	Source string
	Page   int
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("unable to render page %d of %s: %v", e.Page, e.Source, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Message is the text shown in place of the viewer.
func (e *RenderError) Message() string {
	return fmt.Sprintf("Error rendering page %d of PDF (%s). Please reload the page.", e.Page, e.Source)
}

// ViewState is a snapshot of the coordinator.
type ViewState struct {
	Page       int
	TotalPages int
	Scale      float64
	State      RenderState
	Pending    int // 0 when no page is queued
}

// Coordinator serialises page renders for one document. At most one render
// runs against the engine; requests made meanwhile collapse into a single
// pending slot where the latest request wins.
type Coordinator struct {
	doc     render.Document
	surface render.Surface
	display Display

	mu      sync.Mutex
	state   RenderState
	page    int
	scale   float64
	pending int
	err     error
}

// NewCoordinator creates a coordinator positioned on page 1 at DefaultScale.
func NewCoordinator(doc render.Document, surface render.Surface, display Display) *Coordinator {
	return &Coordinator{
		doc:     doc,
		surface: surface,
		display: display,
		page:    1,
		scale:   DefaultScale,
	}
}

// Snapshot returns the current view state.
func (c *Coordinator) Snapshot() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ViewState{
		Page:       c.page,
		TotalPages: c.doc.NumPages(),
		Scale:      c.scale,
		State:      c.state,
		Pending:    c.pending,
	}
}

// ZoomPercent returns the current scale as a whole percentage.
func (c *Coordinator) ZoomPercent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return zoomPercent(c.scale)
}

func zoomPercent(scale float64) int {
	return int(math.Round(scale * 100))
}

// Start renders the current page. It is called once after the document loads.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()
	return c.RequestRender(ctx, page)
}

// RequestRender renders page, or queues it when a render is already in flight.
// The caller that finds the coordinator idle drives the render and any pages
// queued behind it, and returns once the coordinator is idle again.
func (c *Coordinator) RequestRender(ctx context.Context, page int) error {
	total := c.doc.NumPages()
	if page < 1 || page > total {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, page, total)
	}

	c.mu.Lock()
	switch c.state {
	case Failed:
		err := c.err
		c.mu.Unlock()
		return err
	case Rendering, RenderingPending:
		if c.state == RenderingPending && c.pending != page {
			Logger.Debug("Dropping superseded page", "page", c.pending, "latest", page)
		}
		c.state = RenderingPending
		c.pending = page
		c.mu.Unlock()
		return nil
	}
	c.state = Rendering
	scale := c.scale
	c.mu.Unlock()

	for {
		err := c.renderPage(ctx, page, scale)

		c.mu.Lock()
		if err != nil {
			if c.state == RenderingPending {
				Logger.Warn("Discarding pending page after render failure", "page", c.pending)
			}
			c.state = Failed
			c.pending = 0
			c.err = err
			c.mu.Unlock()
			Logger.Error("Render failed", "source", c.doc.Source(), "page", page, "error", err)
			c.display.RenderFailed(err)
			return err
		}
		if c.state != RenderingPending {
			c.state = Idle
			c.mu.Unlock()
			return nil
		}
		page = c.pending
		c.pending = 0
		c.state = Rendering
		scale = c.scale
		c.mu.Unlock()
	}
}

// renderPage runs one render against the engine. It is only ever called by
// the goroutine that moved the coordinator out of Idle.
func (c *Coordinator) renderPage(ctx context.Context, page int, scale float64) error {
	c.display.SetRendering(true)
	defer c.display.SetRendering(false)

	p, err := c.doc.Page(ctx, page)
	if err != nil {
		return &RenderError{Source: c.doc.Source(), Page: page, Err: err}
	}
	if err := p.Render(ctx, c.surface, p.Viewport(scale)); err != nil {
		return &RenderError{Source: c.doc.Source(), Page: page, Err: err}
	}
	Logger.Debug("Rendered page", "source", c.doc.Source(), "page", page, "scale", scale)
	c.display.PageRendered(page, c.doc.NumPages(), zoomPercent(scale))
	return nil
}

// failedLocked returns the terminal render error once the coordinator has
// failed. Navigation then leaves the view state as it was. Callers hold c.mu.
func (c *Coordinator) failedLocked() error {
	if c.state == Failed {
		return c.err
	}
	return nil
}

// GoToPreviousPage moves back one page. It is a no-op on the first page.
func (c *Coordinator) GoToPreviousPage(ctx context.Context) error {
	c.mu.Lock()
	if err := c.failedLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.page <= 1 {
		c.mu.Unlock()
		return nil
	}
	c.page--
	page := c.page
	c.mu.Unlock()
	return c.RequestRender(ctx, page)
}

// GoToNextPage moves forward one page. It is a no-op on the last page.
func (c *Coordinator) GoToNextPage(ctx context.Context) error {
	c.mu.Lock()
	if err := c.failedLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.page >= c.doc.NumPages() {
		c.mu.Unlock()
		return nil
	}
	c.page++
	page := c.page
	c.mu.Unlock()
	return c.RequestRender(ctx, page)
}

// ZoomIn increases the scale by ZoomStep. There is no ceiling.
func (c *Coordinator) ZoomIn(ctx context.Context) error {
	c.mu.Lock()
	if err := c.failedLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.scale += ZoomStep
	page := c.page
	c.mu.Unlock()
	return c.RequestRender(ctx, page)
}

// ZoomOut decreases the scale by ZoomStep. It is a no-op once the scale is at
// or below ZoomFloor.
func (c *Coordinator) ZoomOut(ctx context.Context) error {
	c.mu.Lock()
	if err := c.failedLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.scale <= ZoomFloor {
		c.mu.Unlock()
		return nil
	}
	c.scale -= ZoomStep
	page := c.page
	c.mu.Unlock()
	return c.RequestRender(ctx, page)
}

// JumpToPage moves to target. Targets outside [1, NumPages] are rejected
// with ErrPageOutOfRange and leave the state untouched.
func (c *Coordinator) JumpToPage(ctx context.Context, target int) error {
	total := c.doc.NumPages()
	if target < 1 || target > total {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, target, total)
	}
	c.mu.Lock()
	if err := c.failedLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.page = target
	c.mu.Unlock()
	return c.RequestRender(ctx, target)
}

// ParsePageInput parses the text of the jump-to-page box.
func ParsePageInput(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("invalid page number %q: %w", input, err)
	}
	return n, nil
}
