package webapp

import (
	"fmt"
	"net/url"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/bookview/viewer"
)

// LibraryEntry is one document of the library registry
type LibraryEntry struct {
	Key      string           `json:"key"`
	Title    string           `json:"title"`
	PDFURL   string           `json:"pdfUrl"`
	Pages    int              `json:"pages"`
	Chapters []viewer.Chapter `json:"chapters"`
}

// ScanSummary is the body returned by a library scan
type ScanSummary struct {
	Registered []string `json:"registered"`
	Generated  []string `json:"generated"`
	Removed    []string `json:"removed"`
	Failed     []string `json:"failed"`
}

// LibraryPage lists the documents available to read
type LibraryPage struct {
	app.Compo
	documents []LibraryEntry
	loading   bool
	error     string
	scanning  bool
	scanInfo  string
}

// OnMount is called when the component is mounted
func (l *LibraryPage) OnMount(ctx app.Context) {
	l.loading = true
	l.fetchDocuments(ctx)
}

// fetchDocuments loads the library registry from the API
func (l *LibraryPage) fetchDocuments(ctx app.Context) {
	var documents []LibraryEntry
	fetchJSON(ctx, BuildAPIURL("/api/documents"), &documents, func(err error) {
		l.loading = false
		if err != nil {
			l.error = err.Error()
			return
		}
		l.error = ""
		l.documents = documents
	})
}

// onScan asks the server to rescan the library folder
func (l *LibraryPage) onScan(ctx app.Context, e app.Event) {
	if l.scanning {
		return
	}
	l.scanning = true
	l.scanInfo = ""

	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/library/scan"), map[string]any{"method": "POST"})

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]
			status := response.Get("status").Int()

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}
				jsonStr := app.Window().Get("JSON").Call("stringify", args[0]).String()

				ctx.Dispatch(func(ctx app.Context) {
					l.scanning = false
					var summary ScanSummary
					if err := decodeResponse(status, jsonStr, &summary); err != nil {
						l.scanInfo = "Scan failed: " + err.Error()
						return
					}
					l.scanInfo = scanText(summary)
					l.fetchDocuments(ctx)
				})
				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				l.scanning = false
				l.scanInfo = "Scan failed: network error"
			})
			return nil
		}))
	})
}

// Render renders the library page
func (l *LibraryPage) Render() app.UI {
	return app.Div().Class("library-page").Body(
		app.Div().Class("library-header").Body(
			app.H2().Text("Library"),
			app.Button().
				ID("scan-library").
				Disabled(l.scanning).
				OnClick(l.onScan).
				Text(scanButtonText(l.scanning)),
		),
		app.If(l.scanInfo != "", func() app.UI {
			return app.Div().Class("scan-info").Text(l.scanInfo)
		}),
		l.renderBody(),
	)
}

func (l *LibraryPage) renderBody() app.UI {
	switch {
	case l.loading:
		return app.Div().Class("loading").Body(app.Text("Loading..."))
	case l.error != "":
		return app.Div().Class("error").Body(app.Text("Error: " + l.error))
	case len(l.documents) == 0:
		return app.Div().Class("empty").Body(
			app.P().Text("No documents yet. Add a folder containing <key>.pdf to the library and scan."),
		)
	}
	return app.Ul().Class("library-list").Body(
		app.Range(l.documents).Slice(func(i int) app.UI {
			return renderEntry(l.documents[i])
		}),
	)
}

func renderEntry(doc LibraryEntry) app.UI {
	return app.Li().Class("library-item").Body(
		app.Div().Class("library-title").Text(displayTitle(doc)),
		app.Div().Class("library-meta").Text(entryMeta(doc)),
		app.Div().Class("library-actions").Body(
			app.A().Href(readerLink("/read", doc.Key)).Text("Read"),
			app.A().Href(readerLink("/book", doc.Key)).Text("Book"),
			app.A().Href(doc.PDFURL).Target("_blank").Text("PDF"),
		),
	)
}

func displayTitle(doc LibraryEntry) string {
	if doc.Title != "" {
		return doc.Title
	}
	return doc.Key
}

func entryMeta(doc LibraryEntry) string {
	pages := "pages"
	if doc.Pages == 1 {
		pages = "page"
	}
	chapters := "chapters"
	if len(doc.Chapters) == 1 {
		chapters = "chapter"
	}
	return fmt.Sprintf("%d %s | %d %s", doc.Pages, pages, len(doc.Chapters), chapters)
}

func readerLink(route, key string) string {
	return route + "?" + url.Values{viewer.DocumentParam: {key}}.Encode()
}

func scanButtonText(scanning bool) string {
	if scanning {
		return "Scanning..."
	}
	return "Scan library"
}

func scanText(s ScanSummary) string {
	text := fmt.Sprintf("%d registered, %d generated, %d removed", len(s.Registered), len(s.Generated), len(s.Removed))
	if len(s.Failed) > 0 {
		text += fmt.Sprintf(", %d failed", len(s.Failed))
	}
	return text
}
