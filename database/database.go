package database

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Chapter is a table-of-contents entry of a library document.
type Chapter struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// Document is a registered entry of the document library
type Document struct {
	ULID      ulid.ULID `json:"ulid"`
	Key       string    `json:"key"` // document id used in ?doc=
	Title     string    `json:"title"`
	PDFURL    string    `json:"pdfUrl"`
	Pages     int       `json:"pages"`
	Chapters  []Chapter `json:"chapters"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CacheEntry is one stored response of the offline cache
type CacheEntry struct {
	ULID        ulid.ULID
	CacheName   string
	Key         string // request URI
	Status      int
	ContentType string
	Body        []byte
	StoredAt    time.Time
}

// Repository defines database operations
type Repository interface {
	Close() error
	// Library registry
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, key string) (*Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	DeleteDocument(ctx context.Context, key string) error
	// Offline cache
	PutCacheEntry(ctx context.Context, entry *CacheEntry) error
	GetCacheEntry(ctx context.Context, cacheName, key string) (*CacheEntry, error)
	ListCacheKeys(ctx context.Context, cacheName string) ([]string, error)
	DeleteCache(ctx context.Context, cacheName string) (int, error)
}

// CalculateUUID generates a ULID for the given time
func CalculateUUID(t time.Time) (ulid.ULID, error) {
	return ulid.New(ulid.Timestamp(t), ulid.DefaultEntropy())
}
