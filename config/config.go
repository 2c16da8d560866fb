package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Supported renderer names for RENDERER.
const (
	RendererPDFium = "pdfium"
	RendererFitz   = "fitz"
)

// LibraryPrefix is the URL path the document library is served under.
const LibraryPrefix = "/library"

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP     string
	ListenAddrPort   string
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string
	LibraryPath      string // absolute path of the document library
	Renderer         string
	ScanInterval     int // minutes between library scans
	CacheName        string
	FrontEndConfig
}

// FrontEndConfig stores all of the frontend settings
type FrontEndConfig struct {
	ServerAPIURL      string  `json:"serverApiUrl"`
	LibraryPrefix     string  `json:"libraryPrefix"`
	DefaultDocument   string  `json:"defaultDocument"`
	PresentationScale float64 `json:"presentationScale"`
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvFloat gets a positive float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil || floatVal <= 0 {
		return defaultValue
	}
	return floatVal
}

// loadFrontEnd reads the settings shared with the browser
func loadFrontEnd(defaultAPIURL string) FrontEndConfig {
	return FrontEndConfig{
		ServerAPIURL:      getEnv("SERVER_API_URL", defaultAPIURL),
		LibraryPrefix:     LibraryPrefix,
		DefaultDocument:   getEnv("DEFAULT_DOCUMENT", "DA"),
		PresentationScale: getEnvFloat("PRESENTATION_SCALE", 1.0),
	}
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "bookview")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "databases/bookview.sqlite")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)

	libraryDir := filepath.ToSlash(getEnv("LIBRARY_PATH", "library"))
	libraryDirAbs, err := filepath.Abs(libraryDir)
	if err != nil {
		logger.Error("Failed creating absolute path for library directory", "error", err)
		libraryDirAbs = libraryDir
	}
	serverConfigLive.LibraryPath = libraryDirAbs
	if err := checkLibrary(libraryDirAbs, logger); err != nil {
		logger.Warn("Document library is not available", "path", libraryDirAbs, "error", err)
	}

	serverConfigLive.Renderer = getEnv("RENDERER", RendererPDFium)
	if serverConfigLive.Renderer != RendererPDFium && serverConfigLive.Renderer != RendererFitz {
		logger.Warn("Unknown renderer, using pdfium", "renderer", serverConfigLive.Renderer)
		serverConfigLive.Renderer = RendererPDFium
	}
	serverConfigLive.ScanInterval = getEnvInt("SCAN_INTERVAL", 10)
	serverConfigLive.CacheName = getEnv("CACHE_NAME", "design-aid-v1")

	// Relative API URLs unless told otherwise: the frontend talks to the host it came from
	serverConfigLive.FrontEndConfig = loadFrontEnd("")

	fmt.Println("\n========================================")
	fmt.Println("   bookview - PDF Reader")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Library: %s\n", serverConfigLive.LibraryPath)
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "bookview.log"))
	fmt.Println("Initializing...")

	logger.Info("Server configuration loaded",
		"library", serverConfigLive.LibraryPath,
		"renderer", serverConfigLive.Renderer,
		"scanInterval", serverConfigLive.ScanInterval,
		"cache", serverConfigLive.CacheName)

	return serverConfigLive, logger
}

// SetupFrontend loads configuration for frontend-only server
func SetupFrontend() (FrontEndConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")
	_ = godotenv.Load("frontend.env")

	logger := setupLogging()
	Logger = logger

	frontendConfig := loadFrontEnd("http://localhost:8000")

	logger.Info("Frontend configuration loaded",
		"apiURL", frontendConfig.ServerAPIURL,
		"defaultDocument", frontendConfig.DefaultDocument,
		"presentationScale", frontendConfig.PresentationScale)

	return frontendConfig, logger
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "bookview.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// checkLibrary verifies that the library path is a directory
func checkLibrary(libraryPath string, logger *slog.Logger) error {
	info, err := os.Stat(libraryPath)
	if err != nil {
		logger.Error("Cannot find document library at location specified", "path", libraryPath)
		return err
	}
	if !info.IsDir() {
		logger.Error("Document library is not a directory", "path", libraryPath)
		return fmt.Errorf("%s is not a directory", libraryPath)
	}
	logger.Debug("Document library found", "path", libraryPath)
	return nil
}
