package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/drummonds/bookview/config"
	"github.com/drummonds/bookview/database"
	"github.com/drummonds/bookview/viewer"
)

var (
	documentKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	urlPattern         = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
)

// errNoDocument marks a library folder holding neither a manifest nor a PDF.
var errNoDocument = errors.New("no document in folder")

// ScanResult summarises one library scan
type ScanResult struct {
	Registered []string `json:"registered"`
	Generated  []string `json:"generated"` // keys whose manifest was written by the scan
	Removed    []string `json:"removed"`
	Failed     []string `json:"failed"`
}

// ScanLibrary registers every <key>/<key>.json manifest under the library root.
// A folder with <key>.pdf but no manifest gets one generated from the PDF
// outline. Registry entries whose folder has gone are removed.
func (serverHandler *ServerHandler) ScanLibrary(ctx context.Context) (ScanResult, error) {
	serverHandler.scanMu.Lock()
	defer serverHandler.scanMu.Unlock()

	result := ScanResult{Registered: []string{}, Generated: []string{}, Removed: []string{}, Failed: []string{}}
	root := serverHandler.ServerConfig.LibraryPath
	entries, err := os.ReadDir(root)
	if err != nil {
		return result, fmt.Errorf("unable to read library %s: %w", root, err)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		key := entry.Name()
		if !entry.IsDir() || !documentKeyPattern.MatchString(key) {
			continue
		}
		generated, err := serverHandler.registerDocument(ctx, key)
		if errors.Is(err, errNoDocument) {
			Logger.Debug("Skipping library folder without document", "key", key)
			continue
		}
		seen[key] = true
		if err != nil {
			Logger.Error("Unable to register document", "key", key, "error", err)
			result.Failed = append(result.Failed, key)
			continue
		}
		result.Registered = append(result.Registered, key)
		if generated {
			result.Generated = append(result.Generated, key)
		}
	}

	registered, err := serverHandler.DB.ListDocuments(ctx)
	if err != nil {
		return result, err
	}
	for _, doc := range registered {
		if seen[doc.Key] {
			continue
		}
		if err := serverHandler.DB.DeleteDocument(ctx, doc.Key); err != nil {
			Logger.Warn("Unable to remove stale document", "key", doc.Key, "error", err)
			continue
		}
		result.Removed = append(result.Removed, doc.Key)
	}

	Logger.Info("Library scan complete",
		"registered", len(result.Registered),
		"generated", len(result.Generated),
		"removed", len(result.Removed),
		"failed", len(result.Failed))
	return result, nil
}

// registerDocument reads or generates the manifest for key and saves it to the registry.
func (serverHandler *ServerHandler) registerDocument(ctx context.Context, key string) (generated bool, err error) {
	dir := filepath.Join(serverHandler.ServerConfig.LibraryPath, key)
	manifestPath := filepath.Join(dir, key+".json")

	manifest, err := readManifest(manifestPath)
	if errors.Is(err, os.ErrNotExist) {
		pdfPath := filepath.Join(dir, key+".pdf")
		if _, statErr := os.Stat(pdfPath); statErr != nil {
			return false, errNoDocument
		}
		manifest, err = serverHandler.generateManifest(ctx, key, pdfPath, manifestPath)
		generated = err == nil
	}
	if err != nil {
		return false, err
	}

	pdfURL := manifest.PDFURL
	if !strings.HasPrefix(pdfURL, "/") && !urlPattern.MatchString(pdfURL) {
		pdfURL = fmt.Sprintf("%s/%s/%s", config.LibraryPrefix, key, pdfURL)
	}
	path, err := serverHandler.resolveSource(pdfURL)
	if err != nil {
		return false, err
	}
	doc, release, err := serverHandler.openDocument(ctx, path)
	if err != nil {
		return false, fmt.Errorf("unable to open %s: %w", pdfURL, err)
	}
	defer release()

	chapters := make([]database.Chapter, 0, len(manifest.Chapters))
	for _, ch := range manifest.Chapters {
		if ch.Page < 1 || ch.Page > doc.NumPages() {
			Logger.Warn("Dropping chapter outside document", "key", key, "title", ch.Title, "page", ch.Page)
			continue
		}
		chapters = append(chapters, database.Chapter{Title: ch.Title, Page: ch.Page})
	}
	title := manifest.Title
	if title == "" {
		title = key
	}

	err = serverHandler.DB.SaveDocument(ctx, &database.Document{
		Key:       key,
		Title:     title,
		PDFURL:    pdfURL,
		Pages:     doc.NumPages(),
		Chapters:  chapters,
		UpdatedAt: time.Now().UTC(),
	})
	return generated, err
}

func readManifest(path string) (viewer.Manifest, error) {
	var manifest viewer.Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest, err
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("malformed manifest %s: %w", path, err)
	}
	if manifest.PDFURL == "" {
		return manifest, fmt.Errorf("manifest %s has no pdfUrl", path)
	}
	return manifest, nil
}

// generateManifest writes a manifest for a bare PDF, with top level bookmarks as chapters.
func (serverHandler *ServerHandler) generateManifest(ctx context.Context, key, pdfPath, manifestPath string) (viewer.Manifest, error) {
	manifest := viewer.Manifest{Title: key, PDFURL: key + ".pdf", Chapters: []viewer.Chapter{}}
	if serverHandler.Outliner != nil {
		outline, err := serverHandler.Outliner.Outline(ctx, pdfPath)
		if err != nil {
			Logger.Warn("Unable to read outline, generating manifest without chapters", "key", key, "error", err)
		}
		top := -1
		for _, entry := range outline {
			if top == -1 {
				top = entry.Level
			}
			if entry.Level != top {
				continue
			}
			manifest.Chapters = append(manifest.Chapters, viewer.Chapter{Title: entry.Title, Page: entry.Page})
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return manifest, err
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return manifest, fmt.Errorf("unable to write manifest %s: %w", manifestPath, err)
	}
	Logger.Info("Generated manifest", "key", key, "chapters", len(manifest.Chapters))
	return manifest, nil
}
