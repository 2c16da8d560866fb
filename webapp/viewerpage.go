package webapp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/bookview/render"
	"github.com/drummonds/bookview/viewer"
)

// ViewerPage shows one page of a document at a time
type ViewerPage struct {
	app.Compo

	docID    string
	title    string
	source   string
	chapters []viewer.Chapter
	engine   *render.RemoteEngine
	coord    *viewer.Coordinator

	loading   bool
	rendering bool
	errMsg    string

	page      int
	total     int
	zoom      int
	imageSrc  string
	jumpInput string

	showText bool
	pageText string

	keyHandler app.Func
}

// OnMount loads the document named in the URL and renders its first page
func (v *ViewerPage) OnMount(ctx app.Context) {
	fe := FrontEnd()
	v.docID = viewer.ResolveDocumentID(ctx.Page().URL(), fe.DefaultDocument)
	v.loading = true
	v.engine = render.NewRemoteEngine(apiOrigin())
	loader := &viewer.Loader{
		BaseURL:       apiOrigin(),
		LibraryPrefix: fe.LibraryPrefix,
		Engine:        v.engine,
	}

	ctx.Async(func() {
		loaded, err := loader.Load(ctx, v.docID)
		ctx.Dispatch(func(ctx app.Context) {
			v.loading = false
			if err != nil {
				v.errMsg = loadMessage(err)
				return
			}
			v.opened(ctx, loaded)
		})
	})

	v.keyHandler = app.FuncOf(func(this app.Value, args []app.Value) any {
		if len(args) == 0 {
			return nil
		}
		key := args[0].Get("key").String()
		ctx.Dispatch(func(ctx app.Context) {
			v.onKey(ctx, key)
		})
		return nil
	})
	app.Window().Call("addEventListener", "keydown", v.keyHandler)
}

// OnDismount removes the keyboard listener
func (v *ViewerPage) OnDismount() {
	if v.keyHandler == nil {
		return
	}
	app.Window().Call("removeEventListener", "keydown", v.keyHandler)
	v.keyHandler.Release()
	v.keyHandler = nil
}

func (v *ViewerPage) opened(ctx app.Context, loaded *viewer.Loaded) {
	v.title = loaded.Manifest.Title
	if v.title == "" {
		v.title = loaded.ID
	}
	v.source = loaded.Manifest.PDFURL
	v.chapters = loaded.Manifest.Chapters
	v.page = 1
	v.total = loaded.Document.NumPages()
	v.zoom = int(viewer.DefaultScale * 100)
	ctx.LocalStorage().Set(lastDocumentKey, lastDocument{ID: loaded.ID, Title: v.title})

	dispatch := func(f func()) {
		ctx.Dispatch(func(ctx app.Context) { f() })
	}
	v.coord = viewer.NewCoordinator(
		loaded.Document,
		&imageSurface{dispatch: dispatch, page: v},
		&viewerDisplay{dispatch: dispatch, page: v, onPage: func(page int) {
			if v.showText {
				v.loadText(ctx, page)
			}
		}},
	)
	v.run(ctx, "start", v.coord.Start)
}

// run executes a coordinator operation off the UI goroutine. Render
// failures reach the page through viewerDisplay.
func (v *ViewerPage) run(ctx app.Context, name string, op func(context.Context) error) {
	if v.coord == nil {
		return
	}
	ctx.Async(func() {
		if err := op(ctx); err != nil {
			app.Logf("Viewer %s failed: %v", name, err)
		}
	})
}

func (v *ViewerPage) onPrev(ctx app.Context, e app.Event) {
	v.run(ctx, "previous page", v.coord.GoToPreviousPage)
}

func (v *ViewerPage) onNext(ctx app.Context, e app.Event) {
	v.run(ctx, "next page", v.coord.GoToNextPage)
}

func (v *ViewerPage) onZoomIn(ctx app.Context, e app.Event) {
	v.run(ctx, "zoom in", v.coord.ZoomIn)
}

func (v *ViewerPage) onZoomOut(ctx app.Context, e app.Event) {
	v.run(ctx, "zoom out", v.coord.ZoomOut)
}

func (v *ViewerPage) onKey(ctx app.Context, key string) {
	if v.coord == nil {
		return
	}
	switch key {
	case "ArrowLeft":
		v.run(ctx, "previous page", v.coord.GoToPreviousPage)
	case "ArrowRight":
		v.run(ctx, "next page", v.coord.GoToNextPage)
	}
}

func (v *ViewerPage) onJumpInput(ctx app.Context, e app.Event) {
	v.jumpInput = ctx.JSSrc().Get("value").String()
}

func (v *ViewerPage) onJump(ctx app.Context, e app.Event) {
	target, ok := v.jumpTarget()
	if !ok {
		return
	}
	v.jumpInput = ""
	v.run(ctx, "jump", func(c context.Context) error {
		return v.coord.JumpToPage(c, target)
	})
}

// jumpTarget parses the jump box. Invalid or out-of-range input leaves the
// box as typed.
func (v *ViewerPage) jumpTarget() (int, bool) {
	if v.coord == nil {
		return 0, false
	}
	target, err := viewer.ParsePageInput(v.jumpInput)
	if err != nil || target < 1 || target > v.total {
		return 0, false
	}
	return target, true
}

func (v *ViewerPage) onChapter(ctx app.Context, e app.Event) {
	target, err := strconv.Atoi(ctx.JSSrc().Get("value").String())
	if err != nil || v.coord == nil {
		return
	}
	v.run(ctx, "chapter", func(c context.Context) error {
		return v.coord.JumpToPage(c, target)
	})
}

func (v *ViewerPage) onToggleText(ctx app.Context, e app.Event) {
	v.showText = !v.showText
	if v.showText {
		v.loadText(ctx, v.page)
	}
}

func (v *ViewerPage) loadText(ctx app.Context, page int) {
	if v.engine == nil || v.source == "" {
		return
	}
	engine, source := v.engine, v.source
	ctx.Async(func() {
		text, err := engine.Text(ctx, source, page)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				v.pageText = fmt.Sprintf("Unable to read text of page %d: %v", page, err)
				return
			}
			v.pageText = text
		})
	})
}

// Render renders the viewer
func (v *ViewerPage) Render() app.UI {
	if v.errMsg != "" {
		return app.Div().Class("viewer-page").Body(
			app.Div().Class("error viewer-error").ID("viewer-error").Body(
				app.P().Text(v.errMsg),
			),
		)
	}
	if v.loading {
		return app.Div().Class("viewer-page").Body(
			app.Div().Class("loading").Body(app.Text("Loading document...")),
		)
	}

	wrapperClass := "canvas-wrapper"
	if v.rendering {
		wrapperClass += " rendering"
	}

	return app.Div().Class("viewer-page").Body(
		app.H2().Class("viewer-title").Text(v.title),
		app.Div().Class("viewer-toolbar").Body(
			app.Button().ID("prev-page").Text("◀ Prev").OnClick(v.onPrev),
			app.Span().Class("page-status").Body(
				app.Span().ID("page-num").Text(strconv.Itoa(v.page)),
				app.Text(" / "),
				app.Span().ID("page-count").Text(strconv.Itoa(v.total)),
			),
			app.Button().ID("next-page").Text("Next ▶").OnClick(v.onNext),
			app.Button().ID("zoom-out").Text("−").OnClick(v.onZoomOut),
			app.Span().ID("zoom-percent").Text(zoomText(v.zoom)),
			app.Button().ID("zoom-in").Text("+").OnClick(v.onZoomIn),
			app.Input().
				ID("page-input").
				Type("number").
				Min(1).
				Max(v.total).
				Placeholder("Page").
				Value(v.jumpInput).
				OnInput(v.onJumpInput),
			app.Button().ID("go-to-page").Text("Go").OnClick(v.onJump),
			app.If(len(v.chapters) > 0, func() app.UI {
				return app.Select().ID("chapter-select").OnChange(v.onChapter).Body(
					app.Option().Value("").Text("Chapters"),
					app.Range(v.chapters).Slice(func(i int) app.UI {
						ch := v.chapters[i]
						return app.Option().Value(strconv.Itoa(ch.Page)).Text(ch.Title)
					}),
				)
			}),
			app.Button().ID("toggle-text").Text("Text").OnClick(v.onToggleText),
			app.A().Class("viewer-link").Href("/book?"+viewer.DocumentParam+"="+v.docID).Text("Book view"),
		),
		app.Div().Class(wrapperClass).ID("canvas-wrapper").Body(
			app.If(v.imageSrc != "", func() app.UI {
				return app.Img().ID("pdf-page").Src(v.imageSrc).Alt(fmt.Sprintf("Page %d of %s", v.page, v.title))
			}),
		),
		app.If(v.showText, func() app.UI {
			return app.Pre().Class("page-text").ID("page-text").Text(v.pageText)
		}),
	)
}

// imageSurface paints rendered pages into the viewer's <img>
type imageSurface struct {
	dispatch func(func())
	page     *ViewerPage
}

func (s *imageSurface) Paint(b render.Bitmap) error {
	src := dataURL(b)
	s.dispatch(func() {
		s.page.imageSrc = src
	})
	return nil
}

// viewerDisplay applies coordinator notifications to the viewer
type viewerDisplay struct {
	dispatch func(func())
	page     *ViewerPage
	// onPage runs on the UI goroutine when the shown page changes
	onPage func(page int)
}

func (d *viewerDisplay) SetRendering(busy bool) {
	d.dispatch(func() {
		d.page.rendering = busy
	})
}

func (d *viewerDisplay) PageRendered(page, total, zoomPercent int) {
	d.dispatch(func() {
		changed := d.page.page != page
		d.page.page = page
		d.page.total = total
		d.page.zoom = zoomPercent
		if changed && d.onPage != nil {
			d.onPage(page)
		}
	})
}

func (d *viewerDisplay) RenderFailed(err error) {
	d.dispatch(func() {
		d.page.errMsg = renderMessage(err)
	})
}

func dataURL(b render.Bitmap) string {
	contentType := b.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

func zoomText(percent int) string {
	return strconv.Itoa(percent) + "%"
}

func loadMessage(err error) string {
	var loadErr *viewer.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Message()
	}
	return err.Error()
}

func renderMessage(err error) string {
	var renderErr *viewer.RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Message()
	}
	return err.Error()
}
