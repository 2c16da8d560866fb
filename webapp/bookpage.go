package webapp

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/bookview/presentation"
	"github.com/drummonds/bookview/render"
	"github.com/drummonds/bookview/viewer"
)

// PageFlipScript is the StPageFlip build loaded by the handler
const PageFlipScript = "https://cdn.jsdelivr.net/npm/page-flip@2.0.7/dist/js/page-flip.browser.js"

const bookContainerID = "book"

// BookPage renders every page of a document into a page-flip book
type BookPage struct {
	app.Compo

	docID   string
	title   string
	loading bool
	errMsg  string

	book      *presentation.Book
	sheets    []presentation.Sheet
	widgetErr string
	current   int
}

// OnMount loads the document and builds the presentation
func (b *BookPage) OnMount(ctx app.Context) {
	fe := FrontEnd()
	b.docID = viewer.ResolveDocumentID(ctx.Page().URL(), fe.DefaultDocument)
	b.loading = true

	engine := render.NewRemoteEngine(apiOrigin())
	loader := &viewer.Loader{
		BaseURL:       apiOrigin(),
		LibraryPrefix: fe.LibraryPrefix,
		Engine:        engine,
	}
	builder := &presentation.Builder{
		Scale:       fe.PresentationScale,
		Options:     presentation.DefaultOptions(),
		NewWidget:   newPageFlip,
		Concurrency: 4,
	}

	ctx.Async(func() {
		loaded, err := loader.Load(ctx, b.docID)
		if err != nil {
			ctx.Dispatch(func(ctx app.Context) {
				b.loading = false
				b.errMsg = loadMessage(err)
			})
			return
		}
		book, err := builder.Build(ctx, loaded.Document)
		ctx.Dispatch(func(ctx app.Context) {
			b.loading = false
			b.title = loaded.Manifest.Title
			if b.title == "" {
				b.title = loaded.ID
			}
			b.built(book, err)
		})
	})
}

// built records the outcome of a presentation build
func (b *BookPage) built(book *presentation.Book, err error) {
	var widgetErr *presentation.WidgetError
	switch {
	case err == nil:
	case errors.As(err, &widgetErr):
		b.widgetErr = widgetErr.Error()
	default:
		b.errMsg = err.Error()
		return
	}
	b.book = book
	b.sheets = book.Sheets()
	b.current = book.CurrentPage()
}

func (b *BookPage) onPrev(ctx app.Context, e app.Event) {
	if b.book == nil {
		return
	}
	b.book.Prev()
	b.current = b.book.CurrentPage()
}

func (b *BookPage) onNext(ctx app.Context, e app.Event) {
	if b.book == nil {
		return
	}
	b.book.Next()
	b.current = b.book.CurrentPage()
}

// Render renders the book page
func (b *BookPage) Render() app.UI {
	if b.errMsg != "" {
		return app.Div().Class("book-page").Body(
			app.Div().Class("error").ID("book-error").Body(app.P().Text(b.errMsg)),
		)
	}

	return app.Div().Class("book-page").Body(
		app.H2().Text(b.title),
		app.If(b.loading, func() app.UI {
			return app.Div().Class("loading").Body(app.Text("Rendering pages..."))
		}),
		app.If(b.book != nil && b.book.Interactive(), func() app.UI {
			return app.Div().Class("book-controls").Body(
				app.Button().ID("book-prev").Text("◀").OnClick(b.onPrev),
				app.Span().ID("book-page-num").Text(strconv.Itoa(b.current)+" / "+strconv.Itoa(len(b.sheets))),
				app.Button().ID("book-next").Text("▶").OnClick(b.onNext),
				app.A().Class("viewer-link").Href("/read?"+viewer.DocumentParam+"="+b.docID).Text("Single page view"),
			)
		}),
		// The flip widget owns this element's children once it is built.
		app.Div().ID(bookContainerID).Class("flip-book"),
		app.If(b.widgetErr != "", func() app.UI {
			return app.Div().Class("book-fallback").Body(
				app.Range(b.sheets).Slice(func(i int) app.UI {
					s := b.sheets[i]
					return app.Img().Class("book-sheet").Src(dataURL(s.Bitmap)).Alt(fmt.Sprintf("Page %d", s.Page))
				}),
				app.Div().Class("error widget-error").ID("widget-error").Text(b.widgetErr),
			)
		}),
	)
}

// pageFlip drives an StPageFlip instance
type pageFlip struct {
	container app.Value
	flip      app.Value
}

// newPageFlip constructs an St.PageFlip over the book container
func newPageFlip(opts presentation.Options) (presentation.Widget, error) {
	if !app.IsClient {
		return nil, errors.New("page flip needs a browser")
	}
	st := app.Window().Get("St")
	if !st.Truthy() || !st.Get("PageFlip").Truthy() {
		return nil, errors.New("St.PageFlip is not defined")
	}
	container := app.Window().GetElementByID(bookContainerID)
	if !container.Truthy() {
		return nil, fmt.Errorf("element #%s not found", bookContainerID)
	}
	flip := st.Get("PageFlip").New(container, pageFlipSettings(opts))
	return &pageFlip{container: container, flip: flip}, nil
}

func pageFlipSettings(opts presentation.Options) map[string]any {
	size := "fixed"
	if opts.Stretch {
		size = "stretch"
	}
	return map[string]any{
		"width":            opts.Width,
		"height":           opts.Height,
		"size":             size,
		"maxShadowOpacity": opts.MaxShadowOpacity,
		"showCover":        opts.ShowCover,
		"usePortrait":      opts.Portrait,
		"startPage":        opts.StartPage,
	}
}

// LoadFromHTML adds one page element per sheet and hands them to the widget
func (p *pageFlip) LoadFromHTML(sheets []presentation.Sheet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loadFromHTML: %v", r)
		}
	}()
	doc := app.Window().Get("document")
	for _, s := range sheets {
		page := doc.Call("createElement", "div")
		page.Set("className", "page")
		page.Call("setAttribute", "data-page", s.Page)
		img := doc.Call("createElement", "img")
		img.Set("src", dataURL(s.Bitmap))
		img.Set("alt", fmt.Sprintf("Page %d", s.Page))
		page.Call("appendChild", img)
		p.container.Call("appendChild", page)
	}
	p.flip.Call("loadFromHTML", p.container.Call("querySelectorAll", ".page"))
	return nil
}

func (p *pageFlip) Flip(index int) { p.flip.Call("flip", index) }

func (p *pageFlip) FlipNext() { p.flip.Call("flipNext") }

func (p *pageFlip) FlipPrev() { p.flip.Call("flipPrev") }

func (p *pageFlip) CurrentPageIndex() int {
	return p.flip.Call("getCurrentPageIndex").Int()
}
