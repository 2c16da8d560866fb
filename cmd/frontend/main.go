package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/bookview/config"
	database "github.com/drummonds/bookview/database"
	"github.com/drummonds/bookview/offline"
	"github.com/drummonds/bookview/webapp"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

func main() {
	// Parse command-line flags
	port := flag.String("port", "3000", "Port to run frontend server on")
	apiURL := flag.String("api", "", "Backend API URL (overrides config)")
	cacheDB := flag.String("cache-db", "databases/frontend-cache.sqlite", "SQLite file holding the offline cache")
	cacheName := flag.String("cache", offline.DefaultCacheName, "Offline cache name")
	flag.Parse()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🎨  bookview Frontend Server")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("• WASM application server")
	fmt.Println("• Proxies API and library calls to backend")
	fmt.Println("• Serves documents and rendered pages from the offline cache")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	frontendConfig, logger := config.SetupFrontend()
	Logger = logger
	config.Logger = logger
	database.Logger = logger
	offline.Logger = logger

	// Override API URL if provided via flag
	if *apiURL != "" {
		frontendConfig.ServerAPIURL = *apiURL
	}
	backendURL, err := url.Parse(frontendConfig.ServerAPIURL)
	if err != nil || backendURL.Host == "" {
		Logger.Error("Invalid backend API URL", "url", frontendConfig.ServerAPIURL, "error", err)
		os.Exit(1)
	}

	Logger.Info("Frontend server starting",
		"backendAPI", frontendConfig.ServerAPIURL,
		"port", *port)

	// The browser talks to this server only; API calls are proxied.
	pageConfig := frontendConfig
	pageConfig.ServerAPIURL = ""
	configJS, err := webapp.ConfigScript(pageConfig)
	if err != nil {
		Logger.Error("Unable to render config.js", "error", err)
		os.Exit(1)
	}

	cache, err := database.NewRepository(config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: *cacheDB})
	if err != nil {
		Logger.Error("Unable to open offline cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()
	worker := offline.NewWorker(cache, *cacheName)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// CORS - allow requests from anywhere (since we're just serving static content)
	e.Use(middleware.CORS())

	// Request logging
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))
	e.Use(worker.Middleware())

	// Serve the go-app WASM handler
	Logger.Info("Setting up WASM application...")
	appHandler := webapp.Handler()

	// Serve static assets
	e.File("/webapp/webapp.css", "webapp/webapp.css")

	// Inject frontend configuration into the page
	e.GET("/config.js", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/javascript", []byte(configJS))
	})

	// Proxy middleware - forward /api/* and the library to backend
	balancer := middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{
		{
			URL: backendURL,
		},
	})
	e.Group("/api", middleware.ProxyWithConfig(middleware.ProxyConfig{Balancer: balancer}))
	e.Group(frontendConfig.LibraryPrefix, middleware.ProxyWithConfig(middleware.ProxyConfig{Balancer: balancer}))

	// Serve go-app handler for all other routes (must be last)
	e.Any("/*", echo.WrapHandler(appHandler))

	if err := worker.Install(context.Background(), e); err != nil {
		Logger.Warn("Offline cache not installed", "cache", worker.CacheName, "error", err)
	} else {
		worker.Activate()
	}

	// Start server
	addr := fmt.Sprintf(":%s", *port)
	Logger.Info("Starting Frontend Server", "address", addr, "backendAPI", frontendConfig.ServerAPIURL)
	fmt.Printf("\n✅  Frontend Server running on %s\n", addr)
	fmt.Printf("🎨  Open http://localhost:%s in your browser\n", *port)
	fmt.Printf("📡  API proxied to: %s\n\n", frontendConfig.ServerAPIURL)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
	}
}
