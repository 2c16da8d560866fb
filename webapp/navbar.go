package webapp

import (
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// Version info - can be set at build time with -ldflags
var (
	Version   = "dev"
	BuildDate = ""
)

// Theme values stored under themeKey
const (
	themeKey   = "theme"
	themeDark  = "dark"
	themeLight = "light"
)

// NavBar is the navigation bar component
type NavBar struct {
	app.Compo
	theme string
}

// OnMount restores the stored theme
func (n *NavBar) OnMount(ctx app.Context) {
	var stored string
	ctx.LocalStorage().Get(themeKey, &stored)
	n.theme = normaliseTheme(stored)
	applyTheme(n.theme)
}

// Render renders the navigation bar
func (n *NavBar) Render() app.UI {
	return app.Nav().
		Class("navbar").
		Body(
			app.Div().Class("navbar-brand").Body(
				app.H1().Text("bookview"),
				app.Span().Class("version-info").Body(
					app.Text(versionInfo()),
				),
			),
			app.Div().Class("navbar-menu").Body(
				app.A().
					Href("/").
					Class("navbar-item").
					Body(app.Text("Library")),
				app.A().
					Href("/read").
					Class("navbar-item").
					Body(app.Text("Read")),
				app.A().
					Href("/book").
					Class("navbar-item").
					Body(app.Text("Book")),
				app.A().
					Href("/about").
					Class("navbar-item").
					Body(app.Text("About")),
				app.Button().
					Class("theme-toggle").
					ID("theme-toggle").
					Title("Toggle theme").
					OnClick(n.onThemeToggle).
					Text(themeIcon(n.theme)),
			),
		)
}

// onThemeToggle flips between light and dark and remembers the choice
func (n *NavBar) onThemeToggle(ctx app.Context, e app.Event) {
	n.theme = nextTheme(n.theme)
	ctx.LocalStorage().Set(themeKey, n.theme)
	applyTheme(n.theme)
}

func applyTheme(theme string) {
	if !app.IsClient {
		return
	}
	app.Window().Get("document").Get("documentElement").Call("setAttribute", "data-theme", theme)
}

func normaliseTheme(theme string) string {
	if theme == themeDark {
		return themeDark
	}
	return themeLight
}

func nextTheme(theme string) string {
	if normaliseTheme(theme) == themeDark {
		return themeLight
	}
	return themeDark
}

func themeIcon(theme string) string {
	if normaliseTheme(theme) == themeDark {
		return "☀️"
	}
	return "🌙"
}

// versionInfo returns formatted version and date information
func versionInfo() string {
	date := BuildDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return fmt.Sprintf("%s | %s", Version, date)
}
