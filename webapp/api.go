package webapp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/bookview/config"
	"github.com/drummonds/bookview/viewer"
)

// configGlobal is the window property written by /config.js
const configGlobal = "bookviewConfig"

// GetAPIBaseURL returns the configured API base URL
// It reads from window.bookviewConfig.serverApiUrl if available,
// otherwise falls back to empty string (relative URLs)
func GetAPIBaseURL() string {
	if !app.IsClient {
		return "" // Server-side rendering - use relative URLs
	}

	cfg := app.Window().Get(configGlobal)
	if cfg.Truthy() {
		apiURL := cfg.Get("serverApiUrl")
		if apiURL.Truthy() {
			return strings.TrimSuffix(apiURL.String(), "/")
		}
	}
	return ""
}

// BuildAPIURL constructs a full API URL from a path
// Example: BuildAPIURL("/api/documents") -> "http://backend:8000/api/documents"
// or just "/api/documents" if using relative URLs
func BuildAPIURL(path string) string {
	baseURL := GetAPIBaseURL()
	if baseURL == "" {
		return path // Relative URL
	}
	return baseURL + path
}

// apiOrigin is the absolute origin handed to the Go HTTP clients, which
// cannot resolve relative URLs themselves.
func apiOrigin() string {
	if base := GetAPIBaseURL(); base != "" {
		return base
	}
	if !app.IsClient {
		return ""
	}
	return app.Window().Get("location").Get("origin").String()
}

// FrontEnd returns the page configuration injected by /config.js with
// defaults filled in for anything missing.
func FrontEnd() config.FrontEndConfig {
	fe := config.FrontEndConfig{}
	if app.IsClient {
		if cfg := app.Window().Get(configGlobal); cfg.Truthy() {
			jsonStr := app.Window().Get("JSON").Call("stringify", cfg).String()
			if err := json.Unmarshal([]byte(jsonStr), &fe); err != nil {
				app.Logf("Unable to parse %s: %v", configGlobal, err)
			}
		}
	}
	return withFrontEndDefaults(fe)
}

func withFrontEndDefaults(fe config.FrontEndConfig) config.FrontEndConfig {
	if fe.LibraryPrefix == "" {
		fe.LibraryPrefix = config.LibraryPrefix
	}
	if fe.DefaultDocument == "" {
		fe.DefaultDocument = viewer.DefaultDocumentID
	}
	if fe.PresentationScale <= 0 {
		fe.PresentationScale = 1
	}
	return fe
}

// fetchJSON GETs url with the browser fetch API and decodes the JSON body
// into v. done runs on the UI goroutine.
func fetchJSON(ctx app.Context, url string, v any, done func(err error)) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", url)

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
					done(decodeResponse(status, jsonStr, v))
				})
				return nil
			})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
				ctx.Dispatch(func(ctx app.Context) {
					done(fmt.Errorf("HTTP %d: response is not JSON", status))
				})
				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				done(fmt.Errorf("network error"))
			})
			return nil
		}))
	})
}

// apiErrorBody is the JSON error body returned by the /api/ routes
type apiErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeResponse(status int, jsonStr string, v any) error {
	if status < 200 || status > 299 {
		var body apiErrorBody
		if err := json.Unmarshal([]byte(jsonStr), &body); err == nil && body.Message != "" {
			return fmt.Errorf("HTTP %d: %s", status, body.Message)
		}
		return fmt.Errorf("HTTP %d", status)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
