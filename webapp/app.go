package webapp

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// App is the root component of the application
type App struct {
	app.Compo
}

// Render renders the app
func (a *App) Render() app.UI {
	return app.Div().
		Class("app-container").
		Body(
			app.Header().Body(
				&NavBar{},
			),
			app.Main().Class("main-content").Body(
				app.Div().Class("content").Body(
					pageFor(app.Window().URL().Path),
				),
			),
		)
}

// pageFor returns the page component for a route
func pageFor(path string) app.UI {
	switch path {
	case "/", "/index.html":
		return &LibraryPage{}
	case "/read":
		return &ViewerPage{}
	case "/book":
		return &BookPage{}
	case "/about":
		return &AboutPage{}
	default:
		return &NotFoundPage{}
	}
}
