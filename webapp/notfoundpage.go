package webapp

import (
	"net/url"
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/bookview/config"
	"github.com/drummonds/bookview/viewer"
)

// lastDocumentKey holds the document most recently opened in the reader
const lastDocumentKey = "lastDocument"

// lastDocument is what the reader remembers about the open document
type lastDocument struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// pageLink is one suggestion on the 404 page
type pageLink struct {
	Href string
	Text string
}

// NotFoundPage displays a 404 error message with ways back into a document
type NotFoundPage struct {
	app.Compo

	path string
	last lastDocument
}

// OnMount reads the requested path and the last opened document
func (p *NotFoundPage) OnMount(ctx app.Context) {
	p.path = ctx.Page().URL().Path
	ctx.LocalStorage().Get(lastDocumentKey, &p.last)
}

// Render renders the 404 page
func (p *NotFoundPage) Render() app.UI {
	message := "There is nothing to read here."
	if p.path != "" {
		message = "There is nothing to read at " + p.path + "."
	}
	links := p.links()
	return app.Div().
		Class("not-found-page").
		Body(
			app.Div().
				Class("not-found-container").
				Body(
					app.H1().
						Class("not-found-title").
						Text("404"),
					app.H2().
						Class("not-found-subtitle").
						Text("Page Not Found"),
					app.P().
						Class("not-found-message").
						Text(message),
					app.Div().
						Class("not-found-actions").
						Body(
							app.Range(links).Slice(func(i int) app.UI {
								link := links[i]
								return app.A().
									Href(link.Href).
									Class("not-found-link").
									Text(link.Text)
							}),
						),
				),
		)
}

// links suggests the document the path seems to name, the last document read
// and the library listing, in that order.
func (p *NotFoundPage) links() []pageLink {
	var links []pageLink
	route, id := documentFromPath(p.path)
	if id != "" {
		text := "📖 Open " + id
		if route == "/book" {
			text = "📕 Open " + id + " as a book"
		}
		links = append(links, pageLink{Href: readerLink(route, id), Text: text})
	}
	if p.last.ID != "" && p.last.ID != id {
		title := p.last.Title
		if title == "" {
			title = p.last.ID
		}
		links = append(links, pageLink{Href: readerLink("/read", p.last.ID), Text: "↩ Continue reading " + title})
	}
	return append(links, pageLink{Href: "/", Text: "📚 Back to the Library"})
}

// documentFromPath recognises /read/<id>, /book/<id> and library paths
// under /library/<id>/ and returns the route that would open the document.
func documentFromPath(path string) (route, id string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return "", ""
	}
	switch "/" + parts[0] {
	case "/read", "/book":
		route = "/" + parts[0]
	case config.LibraryPrefix:
		route = "/read"
	default:
		return "", ""
	}
	query := &url.URL{RawQuery: url.Values{viewer.DocumentParam: {parts[1]}}.Encode()}
	id = viewer.ResolveDocumentID(query, "")
	if id == "" {
		return "", ""
	}
	return route, id
}
