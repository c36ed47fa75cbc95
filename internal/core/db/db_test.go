package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// newTestDB creates a new in-memory SQLite database for testing.
// It runs migrations and returns the DB instance.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// testBookmark returns a valid bookmark for insertion in tests.
func testBookmark(tweetID, username string, savedAt time.Time) Bookmark {
	return Bookmark{
		TweetID:        tweetID,
		AuthorID:       "author-" + username,
		AuthorUsername: username,
		AuthorName:     "Name " + username,
		Text:           "text of " + tweetID,
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SavedAt:        savedAt,
		RawJSON:        `{"rest_id":"` + tweetID + `"}`,
	}
}

// TestNewSQLiteDB tests database creation.
func TestNewSQLiteDB(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		db, err := NewSQLiteDB(":memory:")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		if db.db == nil {
			t.Error("expected db.db to be non-nil")
		}
		if db.eventListeners == nil {
			t.Error("expected eventListeners to be initialized")
		}
	})

	t.Run("file database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "xmarkd-test.db")
		db, err := NewSQLiteDB(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

// TestMigrate tests the migration system.
func TestMigrate(t *testing.T) {
	t.Run("creates schema", func(t *testing.T) {
		db := newTestDB(t)
		defer db.Close()

		cols, err := db.tableColumns("bookmarks")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{
			"tweet_id", "author_id", "author_username", "author_name", "text",
			"created_at", "saved_at", "raw_json", "media_urls", "urls",
			"processed", "processed_at", "enrichment",
		} {
			if !cols[want] {
				t.Errorf("expected column %q to exist", want)
			}
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := newTestDB(t)
		defer db.Close()

		if err := db.Migrate(); err != nil {
			t.Fatalf("expected second migrate to succeed, got %v", err)
		}
		if err := db.Migrate(); err != nil {
			t.Fatalf("expected third migrate to succeed, got %v", err)
		}
	})
}

// TestMigrationError tests the build-tag hint on FTS5 failures.
func TestMigrationError(t *testing.T) {
	base := errors.New("no such module: fts5")
	err := migrationError("0002_search", base)
	if !errors.Is(err, base) {
		t.Error("expected wrapped error to be preserved")
	}
	if !strings.Contains(err.Error(), "-tags sqlite_fts5") {
		t.Errorf("expected rebuild hint, got %q", err)
	}

	other := errors.New("syntax error")
	err = migrationError("0001_init", other)
	if strings.Contains(err.Error(), "sqlite_fts5") {
		t.Errorf("expected no hint for unrelated errors, got %q", err)
	}
}

// TestEvolveSchema tests that opening a store created before the optional
// columns existed adds them with defaults and preserves existing data.
func TestEvolveSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Build a legacy store by hand: the base columns only, no processed,
	// enrichment, or list columns, and no migration ledger.
	legacy, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open legacy database: %v", err)
	}
	_, err = legacy.Exec(`
		CREATE TABLE bookmarks (
			tweet_id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			author_username TEXT NOT NULL,
			author_name TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			raw_json TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	_, err = legacy.Exec(`
		INSERT INTO bookmarks VALUES
		('111', 'a1', 'alice', 'Alice', 'old row',
		 '2024-01-01T00:00:00Z', '2024-01-02T00:00:00Z', '{}')
	`)
	if err != nil {
		t.Fatalf("failed to insert legacy row: %v", err)
	}
	if err := legacy.Close(); err != nil {
		t.Fatalf("failed to close legacy database: %v", err)
	}

	db, err := NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate legacy database: %v", err)
	}

	t.Run("adds missing columns with defaults", func(t *testing.T) {
		b, err := db.GetBookmark("111")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if b.Processed {
			t.Error("expected processed to default to false")
		}
		if b.ProcessedAt != nil {
			t.Error("expected processed_at to default to NULL")
		}
		if b.MediaURLs != nil || b.URLs != nil || b.Enrichment != nil {
			t.Error("expected list columns to default to empty")
		}
	})

	t.Run("preserves existing row data", func(t *testing.T) {
		b, err := db.GetBookmark("111")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if b.AuthorUsername != "alice" || b.Text != "old row" {
			t.Errorf("expected legacy values to survive, got %+v", b)
		}
		if !b.SavedAt.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected saved_at unchanged, got %v", b.SavedAt)
		}
	})

	t.Run("legacy rows become searchable", func(t *testing.T) {
		results, err := db.Search("old", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 1 || results[0].TweetID != "111" {
			t.Errorf("expected legacy row in search results, got %v", results)
		}
	})

	t.Run("reopen is a no-op", func(t *testing.T) {
		if err := db.Migrate(); err != nil {
			t.Fatalf("expected repeat migrate to succeed, got %v", err)
		}
	})
}
