package webapp

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// AboutInfo represents the about information from the API
type AboutInfo struct {
	Renderer     string `json:"renderer"`
	LibraryPath  string `json:"libraryPath"`
	ScanInterval int    `json:"scanInterval"`
	CacheName    string `json:"cacheName"`
	DatabaseType string `json:"databaseType"`
	DatabaseHost string `json:"databaseHost"`
	DatabaseName string `json:"databaseName"`
}

// AboutPage displays information about the application
type AboutPage struct {
	app.Compo
	aboutInfo AboutInfo
	loading   bool
	error     string
}

// OnMount is called when the component is mounted
func (a *AboutPage) OnMount(ctx app.Context) {
	a.loading = true
	a.fetchAboutInfo(ctx)
}

// fetchAboutInfo fetches the about information from the API
func (a *AboutPage) fetchAboutInfo(ctx app.Context) {
	var info AboutInfo
	fetchJSON(ctx, BuildAPIURL("/api/about"), &info, func(err error) {
		a.loading = false
		if err != nil {
			a.error = err.Error()
			return
		}
		a.aboutInfo = info
	})
}

// Render renders the about page
func (a *AboutPage) Render() app.UI {
	if a.loading {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About bookview"),
			app.Div().Class("loading").Body(app.Text("Loading...")),
		)
	}

	if a.error != "" {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About bookview"),
			app.Div().Class("error").Body(app.Text("Error: "+a.error)),
		)
	}

	return app.Div().Class("about-page").Body(
		app.H2().Text("About bookview"),
		app.Div().Class("about-content").Body(
			app.Div().Class("about-section").Body(
				app.H3().Text("Application Information"),
				app.Div().Class("info-grid").Body(
					a.renderInfoItem("Version", Version),
					a.renderInfoItem("Renderer", a.getRendererDisplay()),
					a.renderInfoItem("Database", a.getDatabaseDisplay()),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Library"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Library Path: "),
						app.Text(a.aboutInfo.LibraryPath),
					),
					app.P().Body(
						app.Strong().Text("Scan Interval: "),
						app.Text(a.getScanInterval()),
					),
					app.P().Body(
						app.Strong().Text("Offline Cache: "),
						app.Text(a.aboutInfo.CacheName),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Database Configuration"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Database Type: "),
						app.Text(a.getDatabaseDisplay()),
					),
					app.If(a.aboutInfo.DatabaseType != "sqlite", func() app.UI {
						return app.P().Body(
							app.Strong().Text("Host: "),
							app.Text(a.aboutInfo.DatabaseHost),
						)
					}),
					app.P().Body(
						app.Strong().Text("Database Name: "),
						app.Text(a.aboutInfo.DatabaseName),
					),
					app.P().Body(
						app.Strong().Text("Connection Type: "),
						app.Text(a.getConnectionType()),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("About bookview"),
				app.P().Text("bookview is a PDF reader built with Go and WebAssembly."),
				app.P().Text("Pages are rendered on the server and read one at a time or flipped through as a book."),
			),
		),
	)
}

// renderInfoItem creates an info item display
func (a *AboutPage) renderInfoItem(label, value string) app.UI {
	return app.Div().Class("info-item").Body(
		app.Div().Class("info-label").Body(app.Text(label)),
		app.Div().Class("info-value").Body(app.Text(value)),
	)
}

// getDatabaseDisplay returns a user-friendly database display name
func (a *AboutPage) getDatabaseDisplay() string {
	switch a.aboutInfo.DatabaseType {
	case "postgres", "ephemeral":
		return "PostgreSQL"
	case "cockroachdb":
		return "CockroachDB"
	case "sqlite":
		return "SQLite"
	default:
		return a.aboutInfo.DatabaseType
	}
}

// getRendererDisplay returns the name of the PDF engine
func (a *AboutPage) getRendererDisplay() string {
	switch a.aboutInfo.Renderer {
	case "pdfium":
		return "PDFium"
	case "fitz":
		return "MuPDF (fitz)"
	default:
		return a.aboutInfo.Renderer
	}
}

// getScanInterval formats the library scan interval
func (a *AboutPage) getScanInterval() string {
	if a.aboutInfo.ScanInterval == 1 {
		return "every minute"
	}
	return fmt.Sprintf("every %d minutes", a.aboutInfo.ScanInterval)
}

// getConnectionType returns the database connection type
func (a *AboutPage) getConnectionType() string {
	switch a.aboutInfo.DatabaseType {
	case "ephemeral":
		return "Ephemeral (Temporary, On-Disk)"
	case "sqlite":
		return "Embedded (File)"
	default:
		return "External (Persistent)"
	}
}
