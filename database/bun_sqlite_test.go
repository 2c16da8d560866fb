package database

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/drummonds/bookview/config"
)

func setupTestLogger() {
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
}

func TestBunSQLiteDatabase(t *testing.T) {
	setupTestLogger()

	dbFile := filepath.Join(t.TempDir(), "bookview.sqlite")
	db, err := NewRepository(config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: dbFile})
	if err != nil {
		t.Fatalf("Failed to setup sqlite repository: %v", err)
	}
	defer db.Close()

	t.Log("Bun SQLite database setup successfully")
	exerciseRepository(t, db)
}

func TestBunSQLiteMigrationsAreIdempotent(t *testing.T) {
	setupTestLogger()

	dbFile := filepath.Join(t.TempDir(), "bookview.sqlite")
	cfg := config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: dbFile}

	first, err := NewRepository(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.SaveDocument(context.Background(), &Document{Key: "DA", Title: "Design Aid", PDFURL: "/library/DA/DA.pdf", Pages: 3}); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	first.Close()

	second, err := NewRepository(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if _, err := second.GetDocument(context.Background(), "DA"); err != nil {
		t.Errorf("Document lost across reopen: %v", err)
	}
}

func TestUnknownDatabaseType(t *testing.T) {
	setupTestLogger()
	if _, err := NewRepository(config.ServerConfig{DatabaseType: "mongodb"}); err == nil {
		t.Error("Expected an error for an unknown database type")
	}
}

// exerciseRepository runs the same checks against any backend
func exerciseRepository(t *testing.T, db Repository) {
	ctx := context.Background()

	t.Run("Save and retrieve document", func(t *testing.T) {
		doc := &Document{
			Key:    "DA",
			Title:  "Design Aid",
			PDFURL: "/library/DA/DA.pdf",
			Pages:  12,
			Chapters: []Chapter{
				{Title: "Introduction", Page: 1},
				{Title: "Beams", Page: 4},
			},
		}
		if err := db.SaveDocument(ctx, doc); err != nil {
			t.Fatalf("Failed to save document: %v", err)
		}
		if doc.ULID.IsZero() {
			t.Error("Document ULID was not set after save")
		}

		retrieved, err := db.GetDocument(ctx, "DA")
		if err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}
		if retrieved.ULID != doc.ULID {
			t.Errorf("Expected ULID %s, got %s", doc.ULID, retrieved.ULID)
		}
		if diff := cmp.Diff(doc.Chapters, retrieved.Chapters); diff != "" {
			t.Errorf("chapters mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Upsert keeps identity", func(t *testing.T) {
		before, err := db.GetDocument(ctx, "DA")
		if err != nil {
			t.Fatal(err)
		}
		update := &Document{Key: "DA", Title: "Design Aid 2nd ed.", PDFURL: "/library/DA/DA.pdf", Pages: 14}
		if err := db.SaveDocument(ctx, update); err != nil {
			t.Fatalf("Failed to update document: %v", err)
		}
		if update.ULID != before.ULID {
			t.Errorf("Upsert changed ULID from %s to %s", before.ULID, update.ULID)
		}
		after, _ := db.GetDocument(ctx, "DA")
		if after.Title != "Design Aid 2nd ed." || after.Pages != 14 || len(after.Chapters) != 0 {
			t.Errorf("Update not applied: %+v", after)
		}
	})

	t.Run("List documents", func(t *testing.T) {
		if err := db.SaveDocument(ctx, &Document{Key: "AB", Title: "Abutments", PDFURL: "/library/AB/AB.pdf", Pages: 2}); err != nil {
			t.Fatal(err)
		}
		docs, err := db.ListDocuments(ctx)
		if err != nil {
			t.Fatalf("Failed to list documents: %v", err)
		}
		var keys []string
		for _, d := range docs {
			keys = append(keys, d.Key)
		}
		if diff := cmp.Diff([]string{"AB", "DA"}, keys); diff != "" {
			t.Errorf("keys mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Delete document", func(t *testing.T) {
		if err := db.DeleteDocument(ctx, "AB"); err != nil {
			t.Fatalf("Failed to delete document: %v", err)
		}
		if _, err := db.GetDocument(ctx, "AB"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := db.DeleteDocument(ctx, "AB"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("Cache entries", func(t *testing.T) {
		entry := &CacheEntry{
			CacheName:   "design-aid-v1",
			Key:         "/library/DA/DA.json",
			Status:      200,
			ContentType: "application/json",
			Body:        []byte(`{"pdfUrl":"DA.pdf"}`),
		}
		if err := db.PutCacheEntry(ctx, entry); err != nil {
			t.Fatalf("Failed to store cache entry: %v", err)
		}

		got, err := db.GetCacheEntry(ctx, "design-aid-v1", "/library/DA/DA.json")
		if err != nil {
			t.Fatalf("Failed to get cache entry: %v", err)
		}
		if string(got.Body) != `{"pdfUrl":"DA.pdf"}` || got.ContentType != "application/json" {
			t.Errorf("Unexpected cache entry: %+v", got)
		}

		if _, err := db.GetCacheEntry(ctx, "design-aid-v2", "/library/DA/DA.json"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Cache names must not share entries, got %v", err)
		}

		entry.Body = []byte(`{"pdfUrl":"DA-2.pdf"}`)
		if err := db.PutCacheEntry(ctx, entry); err != nil {
			t.Fatalf("Failed to replace cache entry: %v", err)
		}
		if err := db.PutCacheEntry(ctx, &CacheEntry{CacheName: "design-aid-v1", Key: "/", Status: 200, ContentType: "text/html"}); err != nil {
			t.Fatal(err)
		}

		keys, err := db.ListCacheKeys(ctx, "design-aid-v1")
		if err != nil {
			t.Fatalf("Failed to list cache keys: %v", err)
		}
		if diff := cmp.Diff([]string{"/", "/library/DA/DA.json"}, keys); diff != "" {
			t.Errorf("cache keys mismatch (-want +got):\n%s", diff)
		}

		n, err := db.DeleteCache(ctx, "design-aid-v1")
		if err != nil {
			t.Fatalf("Failed to delete cache: %v", err)
		}
		if n != 2 {
			t.Errorf("Expected 2 entries removed, got %d", n)
		}
	})
}
