package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunDocument is the Bun model for library documents
type BunDocument struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID        int64     `bun:"id,pk,autoincrement"`
	ULID      string    `bun:"ulid,notnull,unique"`
	Key       string    `bun:"doc_key,notnull,unique"`
	Title     string    `bun:"title,notnull"`
	PDFURL    string    `bun:"pdf_url,notnull"`
	Pages     int       `bun:"pages,notnull"`
	Chapters  string    `bun:"chapters,notnull"` // JSON array
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ToDocument converts a BunDocument to a Document
func (b *BunDocument) ToDocument() (*Document, error) {
	id, err := ulid.Parse(b.ULID)
	if err != nil {
		return nil, fmt.Errorf("invalid ulid %q for %s: %w", b.ULID, b.Key, err)
	}
	var chapters []Chapter
	if b.Chapters != "" {
		if err := json.Unmarshal([]byte(b.Chapters), &chapters); err != nil {
			return nil, fmt.Errorf("invalid chapters for %s: %w", b.Key, err)
		}
	}
	return &Document{
		ULID:      id,
		Key:       b.Key,
		Title:     b.Title,
		PDFURL:    b.PDFURL,
		Pages:     b.Pages,
		Chapters:  chapters,
		UpdatedAt: b.UpdatedAt,
	}, nil
}

// FromDocument converts a Document to a BunDocument
func FromDocument(doc *Document) (*BunDocument, error) {
	chapters := doc.Chapters
	if chapters == nil {
		chapters = []Chapter{}
	}
	encoded, err := json.Marshal(chapters)
	if err != nil {
		return nil, fmt.Errorf("unable to encode chapters for %s: %w", doc.Key, err)
	}
	return &BunDocument{
		ULID:      doc.ULID.String(),
		Key:       doc.Key,
		Title:     doc.Title,
		PDFURL:    doc.PDFURL,
		Pages:     doc.Pages,
		Chapters:  string(encoded),
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// BunCacheEntry is the Bun model for offline cache entries
type BunCacheEntry struct {
	bun.BaseModel `bun:"table:cache_entries,alias:c"`

	ID          int64     `bun:"id,pk,autoincrement"`
	ULID        string    `bun:"ulid,notnull,unique"`
	CacheName   string    `bun:"cache_name,notnull"`
	Key         string    `bun:"request_key,notnull"`
	Status      int       `bun:"status,notnull"`
	ContentType string    `bun:"content_type,notnull"`
	Body        []byte    `bun:"body"`
	StoredAt    time.Time `bun:"stored_at,nullzero,notnull,default:current_timestamp"`
}

// ToCacheEntry converts a BunCacheEntry to a CacheEntry
func (b *BunCacheEntry) ToCacheEntry() (*CacheEntry, error) {
	id, err := ulid.Parse(b.ULID)
	if err != nil {
		return nil, fmt.Errorf("invalid ulid %q for cache entry %s: %w", b.ULID, b.Key, err)
	}
	return &CacheEntry{
		ULID:        id,
		CacheName:   b.CacheName,
		Key:         b.Key,
		Status:      b.Status,
		ContentType: b.ContentType,
		Body:        b.Body,
		StoredAt:    b.StoredAt,
	}, nil
}

// FromCacheEntry converts a CacheEntry to a BunCacheEntry
func FromCacheEntry(entry *CacheEntry) *BunCacheEntry {
	return &BunCacheEntry{
		ULID:        entry.ULID.String(),
		CacheName:   entry.CacheName,
		Key:         entry.Key,
		Status:      entry.Status,
		ContentType: entry.ContentType,
		Body:        entry.Body,
		StoredAt:    entry.StoredAt,
	}
}
