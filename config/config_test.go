package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCheckLibrary_ValidPath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	err := checkLibrary(t.TempDir(), logger)
	if err != nil {
		t.Errorf("Expected no error with valid path, got: %v", err)
	}
}

func TestCheckLibrary_InvalidPath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	invalidPath := "/nonexistent/path/to/library"
	err := checkLibrary(invalidPath, logger)
	if err == nil {
		t.Error("Expected error with invalid path, got nil")
	}
	t.Logf("Correctly returned error for invalid path: %v", err)
}

func TestCheckLibrary_File(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	file := filepath.Join(t.TempDir(), "DA.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := checkLibrary(file, logger); err == nil {
		t.Error("Expected error when the library is a file")
	}
}

func TestSetupServerDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("LOG_LEVEL", "error")

	cfg, logger := SetupServer()
	if logger == nil {
		t.Fatal("Expected a logger")
	}

	if cfg.ListenAddrPort != "8000" {
		t.Errorf("Expected port 8000, got %s", cfg.ListenAddrPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("Expected sqlite database, got %s", cfg.DatabaseType)
	}
	if cfg.Renderer != RendererPDFium {
		t.Errorf("Expected pdfium renderer, got %s", cfg.Renderer)
	}
	if cfg.ScanInterval != 10 || cfg.CacheName != "design-aid-v1" {
		t.Errorf("Unexpected scan settings: %d %s", cfg.ScanInterval, cfg.CacheName)
	}
	if !filepath.IsAbs(cfg.LibraryPath) || filepath.Base(cfg.LibraryPath) != "library" {
		t.Errorf("Expected absolute library path, got %s", cfg.LibraryPath)
	}

	want := FrontEndConfig{LibraryPrefix: "/library", DefaultDocument: "DA", PresentationScale: 1.0}
	if diff := cmp.Diff(want, cfg.FrontEndConfig); diff != "" {
		t.Errorf("frontend config mismatch (-want +got):\n%s", diff)
	}
}

func TestSetupServerOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("RENDERER", "fitz")
	t.Setenv("PRESENTATION_SCALE", "1.5")
	t.Setenv("DEFAULT_DOCUMENT", "HB")
	t.Setenv("SCAN_INTERVAL", "not-a-number")

	cfg, _ := SetupServer()
	if cfg.Renderer != RendererFitz {
		t.Errorf("Expected fitz renderer, got %s", cfg.Renderer)
	}
	if cfg.PresentationScale != 1.5 {
		t.Errorf("Expected presentation scale 1.5, got %v", cfg.PresentationScale)
	}
	if cfg.DefaultDocument != "HB" {
		t.Errorf("Expected default document HB, got %s", cfg.DefaultDocument)
	}
	if cfg.ScanInterval != 10 {
		t.Errorf("Invalid SCAN_INTERVAL should fall back to 10, got %d", cfg.ScanInterval)
	}

	t.Setenv("RENDERER", "ghostscript")
	cfg, _ = SetupServer()
	if cfg.Renderer != RendererPDFium {
		t.Errorf("Unknown renderer should fall back to pdfium, got %s", cfg.Renderer)
	}
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		value string
		want  float64
	}{
		{"", 1.0},
		{"2.25", 2.25},
		{"zero", 1.0},
		{"-1", 1.0},
		{"0", 1.0},
	}
	for _, tt := range tests {
		t.Setenv("BOOKVIEW_TEST_FLOAT", tt.value)
		if got := getEnvFloat("BOOKVIEW_TEST_FLOAT", 1.0); got != tt.want {
			t.Errorf("getEnvFloat(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSetupFrontend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("SERVER_API_URL", "")

	cfg, _ := SetupFrontend()
	if cfg.ServerAPIURL != "http://localhost:8000" {
		t.Errorf("Expected default API URL, got %s", cfg.ServerAPIURL)
	}
}
