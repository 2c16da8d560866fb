package webapp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/bookview/config"
)

// Routes served by the App component
var Routes = []string{"/", "/index.html", "/read", "/book", "/about"}

// RegisterRoutes registers the client-side routes - all use the App
// component which includes the navbar
func RegisterRoutes() {
	for _, route := range Routes {
		app.Route(route, func() app.Composer { return &App{} })
	}
}

// Handler returns an HTTP handler for the web app
func Handler() http.Handler {
	RegisterRoutes()
	app.RunWhenOnBrowser()

	// app.wasm is served from /web/app.wasm, wasm_exec.js and app.js by the handler itself
	return &app.Handler{
		Name:        "bookview",
		ShortName:   "bookview",
		Title:       "bookview",
		Description: "PDF reader with single page and page-flip views",
		Styles: []string{
			"/webapp/webapp.css",
		},
		Scripts: []string{
			"/config.js", // Load backend API configuration
			PageFlipScript,
		},
		RawHeaders: []string{
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
		},
		CacheableResources: []string{
			"/webapp/webapp.css",
			"/config.js",
		},
	}
}

// ConfigScript renders /config.js, which publishes the frontend settings as
// window.bookviewConfig before the app starts.
func ConfigScript(fe config.FrontEndConfig) (string, error) {
	data, err := json.Marshal(fe)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`// bookview frontend configuration
window.%s = %s;
`, configGlobal, data), nil
}
