//go:build js && wasm
// +build js,wasm

package main

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/bookview/webapp"
)

func main() {
	// This main function is for the WASM build only
	// It initializes the go-app when running in the browser
	webapp.RegisterRoutes()
	app.RunWhenOnBrowser()
}
