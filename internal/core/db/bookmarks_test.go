package db

import (
	"errors"
	"testing"
	"time"
)

// TestInsertBookmark tests idempotent insertion.
func TestInsertBookmark(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	t.Run("inserts then reports already exists", func(t *testing.T) {
		b := testBookmark("100", "alice", time.Now())

		res, err := db.InsertBookmark(b)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res != Inserted {
			t.Errorf("expected Inserted, got %v", res)
		}

		res, err = db.InsertBookmark(b)
		if err != nil {
			t.Fatalf("expected no error on duplicate, got %v", err)
		}
		if res != AlreadyExists {
			t.Errorf("expected AlreadyExists, got %v", res)
		}

		count, err := db.Count()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 1 {
			t.Errorf("expected store size 1 after double insert, got %d", count)
		}
	})

	t.Run("assigns saved_at once", func(t *testing.T) {
		b := testBookmark("101", "alice", time.Time{})
		if _, err := db.InsertBookmark(b); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, err := db.GetBookmark("101")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.SavedAt.IsZero() {
			t.Error("expected saved_at to be assigned on insert")
		}

		// A duplicate insert must not touch the stored timestamp.
		dup := testBookmark("101", "alice", time.Now().Add(time.Hour))
		if _, err := db.InsertBookmark(dup); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		again, err := db.GetBookmark("101")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !again.SavedAt.Equal(got.SavedAt) {
			t.Errorf("expected saved_at unchanged, got %v then %v", got.SavedAt, again.SavedAt)
		}
	})

	t.Run("rejects empty tweet id", func(t *testing.T) {
		_, err := db.InsertBookmark(Bookmark{})
		if err == nil {
			t.Error("expected error for empty tweet id, got nil")
		}
	})

	t.Run("round-trips list fields", func(t *testing.T) {
		b := testBookmark("102", "bob", time.Now())
		b.MediaURLs = []string{"https://pbs.example/1.jpg", "https://video.example/2.mp4"}
		b.URLs = []string{"https://blog.example/post"}
		if _, err := db.InsertBookmark(b); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := db.GetBookmark("102")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got.MediaURLs) != 2 || got.MediaURLs[1] != "https://video.example/2.mp4" {
			t.Errorf("unexpected media urls: %v", got.MediaURLs)
		}
		if len(got.URLs) != 1 || got.URLs[0] != "https://blog.example/post" {
			t.Errorf("unexpected urls: %v", got.URLs)
		}
	})
}

// TestInsertBookmarkOtherConstraint verifies that only duplicate-key
// failures are treated as "already exists"; any other constraint failure
// must surface as an error.
func TestInsertBookmarkOtherConstraint(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	// A trigger failure raises SQLITE_CONSTRAINT without being a
	// duplicate; it stands in for CHECK and NOT NULL violations.
	_, err := db.db.Exec(`
		CREATE TRIGGER reject_flagged_author BEFORE INSERT ON bookmarks
		WHEN NEW.author_username = 'flagged'
		BEGIN
			SELECT RAISE(ABORT, 'author is flagged');
		END`)
	if err != nil {
		t.Fatalf("expected no error creating trigger, got %v", err)
	}

	res, err := db.InsertBookmark(testBookmark("200", "flagged", time.Now()))
	if err == nil {
		t.Fatalf("expected error from trigger abort, got result %v", res)
	}
	if res == AlreadyExists {
		t.Error("trigger abort must not be reported as AlreadyExists")
	}
}

// TestGetBookmarkNotFound tests the missing-bookmark sentinel.
func TestGetBookmarkNotFound(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	_, err := db.GetBookmark("999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestExists tests existence checks.
func TestExists(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	db.InsertBookmark(testBookmark("200", "alice", time.Now()))

	ok, err := db.Exists("200")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Error("expected bookmark 200 to exist")
	}

	ok, err = db.Exists("999")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Error("expected bookmark 999 to not exist")
	}
}

// TestMostRecentTweetID tests the incremental-sync anchor.
func TestMostRecentTweetID(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	t.Run("empty store", func(t *testing.T) {
		id, err := db.MostRecentTweetID()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "" {
			t.Errorf("expected empty id, got %q", id)
		}
	})

	t.Run("returns latest by saved_at", func(t *testing.T) {
		base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		db.InsertBookmark(testBookmark("301", "alice", base))
		db.InsertBookmark(testBookmark("302", "bob", base.Add(2*time.Hour)))
		db.InsertBookmark(testBookmark("303", "carol", base.Add(time.Hour)))

		id, err := db.MostRecentTweetID()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "302" {
			t.Errorf("expected 302, got %q", id)
		}
	})
}

// TestListBookmarks tests filtered, ordered retrieval.
func TestListBookmarks(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	db.InsertBookmark(testBookmark("401", "alice", base))
	db.InsertBookmark(testBookmark("402", "bob", base.Add(1*time.Hour)))
	db.InsertBookmark(testBookmark("403", "alice", base.Add(2*time.Hour)))
	db.InsertBookmark(testBookmark("404", "Carol", base.Add(3*time.Hour)))

	t.Run("orders by saved_at descending", func(t *testing.T) {
		out, err := db.ListBookmarks(ListOptions{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 4 {
			t.Fatalf("expected 4 bookmarks, got %d", len(out))
		}
		for i := 1; i < len(out); i++ {
			if out[i].SavedAt.After(out[i-1].SavedAt) {
				t.Errorf("expected descending order, got %v before %v",
					out[i-1].SavedAt, out[i].SavedAt)
			}
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		out, err := db.ListBookmarks(ListOptions{Limit: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 2 {
			t.Errorf("expected 2 bookmarks, got %d", len(out))
		}
		if out[0].TweetID != "404" {
			t.Errorf("expected newest first, got %s", out[0].TweetID)
		}
	})

	t.Run("filters by since", func(t *testing.T) {
		out, err := db.ListBookmarks(ListOptions{Since: base.Add(90 * time.Minute)})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 2 {
			t.Errorf("expected 2 bookmarks after since, got %d", len(out))
		}
	})

	t.Run("filters by after tweet id", func(t *testing.T) {
		out, err := db.ListBookmarks(ListOptions{AfterTweetID: "402"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 bookmarks after 402, got %d", len(out))
		}
		for _, b := range out {
			if !b.SavedAt.After(base.Add(time.Hour)) {
				t.Errorf("expected saved_at strictly after reference, got %v", b.SavedAt)
			}
		}
	})

	t.Run("unknown after tweet id is a no-op", func(t *testing.T) {
		out, err := db.ListBookmarks(ListOptions{AfterTweetID: "does-not-exist"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 4 {
			t.Errorf("expected filter to be ignored, got %d bookmarks", len(out))
		}
	})

	t.Run("filters by author case-insensitively", func(t *testing.T) {
		out, err := db.ListBookmarks(ListOptions{Author: "carol"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 1 || out[0].TweetID != "404" {
			t.Errorf("expected only Carol's bookmark, got %v", out)
		}
	})

	t.Run("filters unprocessed only", func(t *testing.T) {
		if _, err := db.MarkProcessed("401"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out, err := db.ListBookmarks(ListOptions{UnprocessedOnly: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 3 {
			t.Errorf("expected 3 unprocessed bookmarks, got %d", len(out))
		}
		for _, b := range out {
			if b.Processed {
				t.Errorf("expected unprocessed, got processed bookmark %s", b.TweetID)
			}
		}
	})

	t.Run("combines filters", func(t *testing.T) {
		out, err := db.ListBookmarks(ListOptions{
			Author: "alice",
			Since:  base.Add(30 * time.Minute),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(out) != 1 || out[0].TweetID != "403" {
			t.Errorf("expected only 403, got %v", out)
		}
	})
}

// TestProcessedToggles tests mark-processed and mark-unprocessed.
func TestProcessedToggles(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	db.InsertBookmark(testBookmark("500", "alice", time.Now()))

	t.Run("mark processed sets flag and timestamp", func(t *testing.T) {
		ok, err := db.MarkProcessed("500")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ok {
			t.Fatal("expected true for existing bookmark")
		}

		b, err := db.GetBookmark("500")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !b.Processed {
			t.Error("expected processed to be true")
		}
		if b.ProcessedAt == nil {
			t.Error("expected processed_at to be set")
		}
	})

	t.Run("mark unprocessed clears flag and timestamp", func(t *testing.T) {
		ok, err := db.MarkUnprocessed("500")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ok {
			t.Fatal("expected true for existing bookmark")
		}

		b, err := db.GetBookmark("500")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if b.Processed {
			t.Error("expected processed to be false")
		}
		if b.ProcessedAt != nil {
			t.Error("expected processed_at to be cleared")
		}
	})

	t.Run("returns false for missing bookmark", func(t *testing.T) {
		ok, err := db.MarkProcessed("missing")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ok {
			t.Error("expected false for missing bookmark")
		}

		ok, err = db.MarkUnprocessed("missing")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ok {
			t.Error("expected false for missing bookmark")
		}
	})
}

// TestUpdateEnrichment tests storing fetched URL metadata.
func TestUpdateEnrichment(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	db.InsertBookmark(testBookmark("600", "alice", time.Now()))

	t.Run("stores entries", func(t *testing.T) {
		ok, err := db.UpdateEnrichment("600", []URLMetadata{
			{URL: "https://blog.example", Title: "A Post", Description: "About things"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ok {
			t.Fatal("expected true for existing bookmark")
		}

		b, err := db.GetBookmark("600")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(b.Enrichment) != 1 || b.Enrichment[0].Title != "A Post" {
			t.Errorf("unexpected enrichment: %v", b.Enrichment)
		}
	})

	t.Run("returns false for missing bookmark", func(t *testing.T) {
		ok, err := db.UpdateEnrichment("missing", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ok {
			t.Error("expected false for missing bookmark")
		}
	})
}

// TestStats tests store statistics.
func TestStats(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	t.Run("empty store", func(t *testing.T) {
		s, err := db.Stats()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Total != 0 {
			t.Errorf("expected total 0, got %d", s.Total)
		}
		if !s.Oldest.IsZero() || !s.Newest.IsZero() {
			t.Error("expected zero date range for empty store")
		}
	})

	t.Run("counts and ranks authors", func(t *testing.T) {
		base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		db.InsertBookmark(testBookmark("700", "alice", base))
		db.InsertBookmark(testBookmark("701", "alice", base.Add(time.Hour)))
		db.InsertBookmark(testBookmark("702", "bob", base.Add(2*time.Hour)))

		s, err := db.Stats()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Total != 3 {
			t.Errorf("expected total 3, got %d", s.Total)
		}
		if !s.Oldest.Equal(base) {
			t.Errorf("expected oldest %v, got %v", base, s.Oldest)
		}
		if !s.Newest.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("expected newest %v, got %v", base.Add(2*time.Hour), s.Newest)
		}
		if len(s.TopAuthors) != 2 {
			t.Fatalf("expected 2 authors, got %d", len(s.TopAuthors))
		}
		if s.TopAuthors[0].Username != "alice" || s.TopAuthors[0].Count != 2 {
			t.Errorf("expected alice with 2 bookmarks first, got %+v", s.TopAuthors[0])
		}
	})
}
