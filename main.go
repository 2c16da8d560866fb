package main

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"

	config "github.com/drummonds/bookview/config"
	database "github.com/drummonds/bookview/database"
	engine "github.com/drummonds/bookview/engine"
	"github.com/drummonds/bookview/engine/pdfrenderer"
	"github.com/drummonds/bookview/offline"
	"github.com/drummonds/bookview/presentation"
	"github.com/drummonds/bookview/viewer"
	"github.com/drummonds/bookview/webapp"
)

//go:embed webapp/webapp.css
var webappFS embed.FS

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
	pdfrenderer.Logger = Logger
	offline.Logger = Logger
	viewer.Logger = Logger
	presentation.Logger = Logger
}

// server is the assembled all-in-one application
type server struct {
	echo      *echo.Echo
	handler   *engine.ServerHandler
	worker    *offline.Worker
	scheduler *cron.Cron
}

// Close stops the scheduler and releases the renderers
func (s *server) Close() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
	if err := s.handler.Close(); err != nil {
		Logger.Warn("Unable to close renderers", "error", err)
	}
}

// newServer wires the API, the web app and the offline cache onto one echo instance
func newServer(serverConfig config.ServerConfig, db database.Repository) (*server, error) {
	e := echo.New()
	e.HideBanner = true
	Logger.Info("Echo created")

	// Custom 404 handler
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if strings.HasPrefix(c.Request().URL.Path, "/api/") {
			// Return JSON for API endpoints
			message := http.StatusText(code)
			if code == http.StatusNotFound {
				message = "The requested API endpoint does not exist"
			} else if he, ok := err.(*echo.HTTPError); ok {
				message = fmt.Sprint(he.Message)
			}
			c.JSON(code, map[string]string{
				"error":   http.StatusText(code),
				"message": message,
				"path":    c.Request().URL.Path,
			})
			return
		}

		if code == http.StatusNotFound {
			c.HTML(http.StatusNotFound, `<!DOCTYPE html>
<html>
<head><title>404 - Not Found</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
	<h1>404 - Page Not Found</h1>
	<p>There is nothing to read here.</p>
	<a href="/" style="color: #2f6f9f; text-decoration: none; font-size: 18px;">← Back to the Library</a>
</body>
</html>`)
			return
		}

		// For other errors, use default handler
		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler, err := engine.NewServerHandler(db, e, serverConfig)
	if err != nil {
		return nil, err
	}
	Logger.Info("About to run startup checks")
	if err := serverHandler.StartupChecks(); err != nil {
		serverHandler.Close()
		return nil, err
	}
	Logger.Info("Startup checks complete")

	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))

	worker := offline.NewWorker(db, serverConfig.CacheName)
	e.Use(worker.Middleware())

	serverHandler.RegisterRoutes()

	Logger.Info("Setting up go-app WASM UI")
	appHandler := webapp.Handler()

	// Serve CSS from embedded filesystem
	e.GET("/webapp/webapp.css", func(c echo.Context) error {
		data, err := webappFS.ReadFile("webapp/webapp.css")
		if err != nil {
			return c.String(http.StatusNotFound, "webapp.css not found")
		}
		return c.Blob(http.StatusOK, "text/css", data)
	})

	// Inject frontend configuration into the page
	configJS, err := webapp.ConfigScript(serverConfig.FrontEndConfig)
	if err != nil {
		serverHandler.Close()
		return nil, fmt.Errorf("unable to render config.js: %w", err)
	}
	e.GET("/config.js", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/javascript", []byte(configJS))
	})

	// Serve go-app handler for all other routes (must be last)
	// go-app serves app.js, app.css, wasm_exec.js, the manifest and /web/app.wasm itself
	e.Any("/*", echo.WrapHandler(appHandler))

	return &server{echo: e, handler: serverHandler, worker: worker}, nil
}

// startSchedules scans the library now and then every SCAN_INTERVAL minutes
func (s *server) startSchedules() error {
	scheduler, err := s.handler.InitializeSchedules()
	if err != nil {
		return err
	}
	s.scheduler = scheduler
	return nil
}

// installOfflineCache precaches the application shell and hands fetches to
// the worker. A failed install leaves every request on the network.
func (s *server) installOfflineCache(ctx context.Context) {
	if err := s.worker.Install(ctx, s.echo); err != nil {
		Logger.Warn("Offline cache not installed", "cache", s.worker.CacheName, "error", err)
		return
	}
	s.worker.Activate()
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Show info banner if using ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("• Database will be destroyed on exit")
		fmt.Println("• Library registry and offline cache are rebuilt on start")
		fmt.Println(strings.Repeat("=", 50) + "\n")
	}

	// Setup database (handles ephemeral, postgres, cockroachdb, sqlite)
	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db, err := database.NewRepository(serverConfig)
	if err != nil {
		Logger.Error("Unable to set up database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	Logger.Info("Database setup complete")

	srv, err := newServer(serverConfig, db)
	if err != nil {
		Logger.Error("Unable to start server", "error", err)
		db.Close()
		os.Exit(1)
	}
	defer srv.Close()
	if err := srv.startSchedules(); err != nil {
		Logger.Error("Unable to initialize schedules", "error", err)
		return
	}
	srv.installOfflineCache(context.Background())

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = srv.echo.Start(addr)

		// Check if error is "address already in use"
		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			// Increment port for next attempt
			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				return
			}
		} else if startErr != nil && startErr != http.ErrServerClosed {
			// Some other error occurred
			Logger.Error("Failed to start server", "error", startErr)
			return
		} else {
			break
		}
	}

	if serverConfig.ListenAddrPort != startPort {
		Logger.Warn("Server ran on alternative port due to conflicts",
			"requested_port", startPort,
			"actual_port", serverConfig.ListenAddrPort)
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "address already in use")
}
