package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/drummonds/bookview/config"
	"github.com/drummonds/bookview/database"
	"github.com/drummonds/bookview/engine/pdfrenderer"
	"github.com/drummonds/bookview/render"
)

// ErrOutsideLibrary is returned for sources that do not resolve inside the library root.
var ErrOutsideLibrary = errors.New("source is outside the document library")

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Renderer     pdfrenderer.Renderer
	// Outliner reads bookmarks for generated manifests; nil disables chapters.
	Outliner pdfrenderer.Outliner

	mu   sync.Mutex
	docs map[string]*openDocument

	scanMu sync.Mutex
}

// openDocument is a memoised document. A document replaced on disk is
// retired and closed once its last user releases it.
type openDocument struct {
	path    string
	doc     render.Document
	modTime time.Time
	users   int
	retired bool
}

// NewServerHandler wires the handler with the configured renderer. Bookmarks
// are always read with MuPDF, whichever renderer draws the pages.
func NewServerHandler(db database.Repository, e *echo.Echo, serverConfig config.ServerConfig) (*ServerHandler, error) {
	renderer, err := pdfrenderer.NewRenderer(serverConfig.Renderer)
	if err != nil {
		return nil, fmt.Errorf("unable to start renderer: %w", err)
	}
	outliner, err := pdfrenderer.NewFitzRenderer()
	if err != nil {
		renderer.Close()
		return nil, fmt.Errorf("unable to start outline reader: %w", err)
	}
	Logger.Info("Renderer ready", "renderer", serverConfig.Renderer)
	return &ServerHandler{
		DB:           db,
		Echo:         e,
		ServerConfig: serverConfig,
		Renderer:     renderer,
		Outliner:     outliner,
	}, nil
}

// Close releases every open document and the renderer
func (serverHandler *ServerHandler) Close() error {
	serverHandler.retireAll()
	if serverHandler.Renderer != nil {
		return serverHandler.Renderer.Close()
	}
	return nil
}

// resolveSource maps a document locator to a file inside the library root.
// Accepted forms: a library URL path (/library/DA/DA.pdf), the same as an
// absolute URL, or a path relative to the library root (DA/DA.pdf).
func (serverHandler *ServerHandler) resolveSource(src string) (string, error) {
	if src == "" {
		return "", fmt.Errorf("%w: empty source", ErrOutsideLibrary)
	}
	if u, err := url.Parse(src); err == nil && u.IsAbs() {
		src = u.Path
	}

	rel := src
	if strings.HasPrefix(src, "/") {
		prefix := config.LibraryPrefix + "/"
		if !strings.HasPrefix(src, prefix) {
			return "", fmt.Errorf("%w: %s", ErrOutsideLibrary, src)
		}
		rel = strings.TrimPrefix(src, prefix)
	}
	// Reject traversal before cleaning so "a/../../x" cannot collapse into the root
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %s", ErrOutsideLibrary, src)
		}
	}
	rel = path.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %s", ErrOutsideLibrary, src)
	}

	root := serverHandler.ServerConfig.LibraryPath
	full := filepath.Join(root, filepath.FromSlash(rel))
	inside, err := filepath.Rel(root, full)
	if err != nil || strings.HasPrefix(inside, "..") {
		return "", fmt.Errorf("%w: %s", ErrOutsideLibrary, src)
	}
	return full, nil
}

// openDocument returns the memoised document for path, reopening it when the
// file changed on disk. The caller must call release once it has finished
// with the document and its pages.
func (serverHandler *ServerHandler) openDocument(ctx context.Context, path string) (doc render.Document, release func(), err error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	serverHandler.mu.Lock()
	defer serverHandler.mu.Unlock()
	if serverHandler.docs == nil {
		serverHandler.docs = make(map[string]*openDocument)
	}
	if open, ok := serverHandler.docs[path]; ok {
		if open.modTime.Equal(info.ModTime()) {
			open.users++
			return open.doc, serverHandler.releaser(open), nil
		}
		Logger.Info("Document changed on disk, reopening", "path", path, "users", open.users)
		delete(serverHandler.docs, path)
		serverHandler.retire(open)
	}

	doc, err = serverHandler.Renderer.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	open := &openDocument{path: path, doc: doc, modTime: info.ModTime(), users: 1}
	serverHandler.docs[path] = open
	return doc, serverHandler.releaser(open), nil
}

// releaser returns the release func handed out with open. Calling it more
// than once has no further effect.
func (serverHandler *ServerHandler) releaser(open *openDocument) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			serverHandler.mu.Lock()
			defer serverHandler.mu.Unlock()
			open.users--
			if open.retired && open.users == 0 {
				serverHandler.closeDocument(open)
			}
		})
	}
}

// retire stops handing out open and closes it when nobody is using it.
// Callers hold serverHandler.mu.
func (serverHandler *ServerHandler) retire(open *openDocument) {
	open.retired = true
	if open.users == 0 {
		serverHandler.closeDocument(open)
	}
}

// retireAll empties the memo. Documents still in use are closed by their
// last release.
func (serverHandler *ServerHandler) retireAll() {
	serverHandler.mu.Lock()
	defer serverHandler.mu.Unlock()
	for _, open := range serverHandler.docs {
		serverHandler.retire(open)
	}
	serverHandler.docs = nil
}

func (serverHandler *ServerHandler) closeDocument(open *openDocument) {
	if err := open.doc.Close(); err != nil {
		Logger.Warn("Unable to close document", "path", open.path, "error", err)
	}
}
