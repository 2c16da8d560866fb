// Package offline serves previously fetched resources from a persistent cache,
// following the install / activate / fetch lifecycle of a service worker.
package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/drummonds/bookview/database"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// DefaultCacheName is the cache used when none is configured.
const DefaultCacheName = "design-aid-v1"

// HeaderCache reports HIT or MISS on responses seen by the worker.
const HeaderCache = "X-Cache"

// DefaultPrecache is the application shell fetched at install time.
var DefaultPrecache = []string{
	"/",
	"/index.html",
	"/app.js",
	"/app.css",
	"/manifest.webmanifest",
}

// Store is the part of the repository the worker needs.
type Store interface {
	PutCacheEntry(ctx context.Context, entry *database.CacheEntry) error
	GetCacheEntry(ctx context.Context, cacheName, key string) (*database.CacheEntry, error)
	ListCacheKeys(ctx context.Context, cacheName string) ([]string, error)
}

// Worker is a cache-first fetch handler backed by a Store.
type Worker struct {
	CacheName string
	Precache  []string

	store  Store
	active atomic.Bool
}

// NewWorker creates an inactive worker over store.
func NewWorker(store Store, cacheName string) *Worker {
	if cacheName == "" {
		cacheName = DefaultCacheName
	}
	return &Worker{CacheName: cacheName, Precache: DefaultPrecache, store: store}
}

// Cacheable reports whether a response for uri is stored on the fly: documents,
// manifests and rendered pages.
func Cacheable(uri string) bool {
	path := uri
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return strings.Contains(uri, ".pdf") ||
		strings.Contains(uri, ".json") ||
		strings.HasPrefix(path, "/api/render/")
}

// Install fetches every precache path through origin and stores the results.
// Nothing is stored unless every path answers 2xx.
func (w *Worker) Install(ctx context.Context, origin http.Handler) error {
	entries := make([]*database.CacheEntry, 0, len(w.Precache))
	for _, path := range w.Precache {
		req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		origin.ServeHTTP(rec, req)
		if rec.Code < 200 || rec.Code > 299 {
			return fmt.Errorf("unable to precache %s: status %d", path, rec.Code)
		}
		entries = append(entries, &database.CacheEntry{
			CacheName:   w.CacheName,
			Key:         path,
			Status:      rec.Code,
			ContentType: rec.Header().Get(echo.HeaderContentType),
			Body:        rec.Body.Bytes(),
		})
	}
	for _, entry := range entries {
		if err := w.store.PutCacheEntry(ctx, entry); err != nil {
			return fmt.Errorf("unable to store %s: %w", entry.Key, err)
		}
	}
	Logger.Info("Offline cache installed", "cache", w.CacheName, "resources", len(entries))
	return nil
}

// Activate puts the worker in control of fetches.
func (w *Worker) Activate() {
	w.active.Store(true)
	Logger.Info("Offline cache activated", "cache", w.CacheName)
}

// Active reports whether the worker is handling fetches.
func (w *Worker) Active() bool {
	return w.active.Load()
}

// Keys lists the stored request keys.
func (w *Worker) Keys(ctx context.Context) ([]string, error) {
	return w.store.ListCacheKeys(ctx, w.CacheName)
}

// Middleware serves GET requests from the cache first and falls back to the
// next handler, storing cacheable 2xx responses on the way out.
func (w *Worker) Middleware() echo.MiddlewareFunc {
	dump := middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Handler: w.store2xx,
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		network := dump(next)
		return func(c echo.Context) error {
			req := c.Request()
			if !w.Active() || req.Method != http.MethodGet {
				return next(c)
			}

			key := req.URL.RequestURI()
			entry, err := w.store.GetCacheEntry(req.Context(), w.CacheName, key)
			if err == nil {
				c.Response().Header().Set(HeaderCache, "HIT")
				return c.Blob(entry.Status, entry.ContentType, entry.Body)
			}
			if !errors.Is(err, database.ErrNotFound) {
				Logger.Warn("Offline cache lookup failed, using network", "key", key, "error", err)
			}

			c.Response().Header().Set(HeaderCache, "MISS")
			if !Cacheable(key) {
				return next(c)
			}
			return network(c)
		}
	}
}

func (w *Worker) store2xx(c echo.Context, _, resBody []byte) {
	status := c.Response().Status
	if status < 200 || status > 299 {
		return
	}
	key := c.Request().URL.RequestURI()
	entry := &database.CacheEntry{
		CacheName:   w.CacheName,
		Key:         key,
		Status:      status,
		ContentType: c.Response().Header().Get(echo.HeaderContentType),
		Body:        append([]byte(nil), resBody...),
	}
	if err := w.store.PutCacheEntry(c.Request().Context(), entry); err != nil {
		Logger.Warn("Unable to cache response", "key", key, "error", err)
		return
	}
	Logger.Debug("Cached response", "key", key, "bytes", len(resBody))
}
