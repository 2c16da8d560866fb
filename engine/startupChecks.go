package engine

import (
	"fmt"
	"os"

	"github.com/drummonds/bookview/config"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := libraryDirectoryChecks(serverHandler.ServerConfig); err != nil {
		return err
	}
	rendererChecks(serverHandler.ServerConfig)
	return nil
}

func rendererChecks(serverConfig config.ServerConfig) {
	switch serverConfig.Renderer {
	case config.RendererFitz:
		Logger.Info("Rendering with MuPDF (CGo)")
	default:
		Logger.Info("Rendering with PDFium WebAssembly")
	}
}

// libraryDirectoryChecks ensures the library directory exists
func libraryDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.LibraryPath == "" {
		Logger.Warn("Library path not configured")
		return fmt.Errorf("library path not configured")
	}

	libraryInfo, err := os.Stat(serverConfig.LibraryPath)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating library directory", "path", serverConfig.LibraryPath)
			err = os.MkdirAll(serverConfig.LibraryPath, 0755)
			if err != nil {
				Logger.Error("Failed to create library directory", "path", serverConfig.LibraryPath, "error", err)
				return err
			}
			Logger.Info("Library directory created successfully", "path", serverConfig.LibraryPath)
			return nil
		}
		Logger.Error("Error checking library directory", "path", serverConfig.LibraryPath, "error", err)
		return err
	}

	if !libraryInfo.IsDir() {
		Logger.Error("Library path exists but is not a directory", "path", serverConfig.LibraryPath)
		return fmt.Errorf("library path is not a directory: %s", serverConfig.LibraryPath)
	}

	Logger.Info("Library directory exists", "path", serverConfig.LibraryPath)
	return nil
}
