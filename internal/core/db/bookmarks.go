package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ------------------------------
// Bookmark methods
// ------------------------------

// ErrNotFound means no bookmark has the requested tweet id.
var ErrNotFound = errors.New("bookmark not found")

// InsertBookmark writes a bookmark to the store. The write is atomic; a
// uniqueness collision on tweet_id returns AlreadyExists and is not an
// error. SavedAt is assigned here if unset and is never overwritten for
// an existing row.
// Emits a BookmarkSavedEvent after a successful insert.
func (db *DB) InsertBookmark(b Bookmark) (InsertResult, error) {
	if b.TweetID == "" {
		return 0, fmt.Errorf("bookmark has no tweet id")
	}
	if b.SavedAt.IsZero() {
		b.SavedAt = time.Now()
	}

	mediaURLs, err := encodeStringList(b.MediaURLs)
	if err != nil {
		return 0, err
	}
	urls, err := encodeStringList(b.URLs)
	if err != nil {
		return 0, err
	}
	enrichment, err := encodeEnrichment(b.Enrichment)
	if err != nil {
		return 0, err
	}
	var processedAt any
	if b.ProcessedAt != nil {
		processedAt = b.ProcessedAt.Format(time.RFC3339)
	}

	_, err = db.db.Exec(`
		INSERT INTO bookmarks (
			tweet_id, author_id, author_username, author_name, text,
			created_at, saved_at, raw_json, media_urls, urls,
			processed, processed_at, enrichment
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.TweetID, b.AuthorID, b.AuthorUsername, b.AuthorName, b.Text,
		b.CreatedAt.Format(time.RFC3339), b.SavedAt.Format(time.RFC3339),
		b.RawJSON, mediaURLs, urls, boolToInt(b.Processed), processedAt, enrichment,
	)
	if err != nil {
		// Only a duplicate tweet_id means "already have it". Other
		// constraint failures (CHECK, NOT NULL, triggers) are real errors.
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return AlreadyExists, nil
		}
		return 0, fmt.Errorf("failed to insert bookmark: %w", err)
	}

	db.emit(BookmarkSavedEvent{Bookmark: b})
	return Inserted, nil
}

// Exists reports whether a bookmark with the given tweet ID is stored.
func (db *DB) Exists(tweetID string) (bool, error) {
	var one int
	err := db.db.QueryRow("SELECT 1 FROM bookmarks WHERE tweet_id = ?", tweetID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark existence: %w", err)
	}
	return true, nil
}

// MostRecentTweetID returns the tweet ID of the most recently saved
// bookmark, or "" when the store is empty.
func (db *DB) MostRecentTweetID() (string, error) {
	var id string
	err := db.db.QueryRow(
		"SELECT tweet_id FROM bookmarks ORDER BY saved_at DESC LIMIT 1",
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get most recent bookmark: %w", err)
	}
	return id, nil
}

func (db *DB) GetBookmark(tweetID string) (Bookmark, error) {
	row := db.db.QueryRow(
		"SELECT "+bookmarkColumns+" FROM bookmarks WHERE tweet_id = ?", tweetID)
	b, err := scanBookmark(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Bookmark{}, fmt.Errorf("%w: %s", ErrNotFound, tweetID)
		}
		return Bookmark{}, fmt.Errorf("failed to get bookmark: %w", err)
	}
	return b, nil
}

// ListBookmarks returns bookmarks matching opts, ordered by save time
// descending.
func (db *DB) ListBookmarks(opts ListOptions) ([]Bookmark, error) {
	var conditions []string
	var params []any

	if !opts.Since.IsZero() {
		conditions = append(conditions, "saved_at > ?")
		params = append(params, opts.Since.Format(time.RFC3339))
	}

	if opts.AfterTweetID != "" {
		var savedAt string
		err := db.db.QueryRow(
			"SELECT saved_at FROM bookmarks WHERE tweet_id = ?", opts.AfterTweetID,
		).Scan(&savedAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Unknown reference: the filter is a no-op.
		case err != nil:
			return nil, fmt.Errorf("failed to resolve after-tweet filter: %w", err)
		default:
			conditions = append(conditions, "saved_at > ?")
			params = append(params, savedAt)
		}
	}

	if opts.Author != "" {
		conditions = append(conditions, "LOWER(author_username) = LOWER(?)")
		params = append(params, opts.Author)
	}

	if opts.UnprocessedOnly {
		conditions = append(conditions, "processed = 0")
	}

	query := "SELECT " + bookmarkColumns + " FROM bookmarks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY saved_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		params = append(params, opts.Limit)
	}

	rows, err := db.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	var out []Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MarkProcessed sets the processed flag and timestamp atomically.
// Returns false when no bookmark has the given tweet ID.
// Emits a BookmarkProcessedEvent after a successful update.
func (db *DB) MarkProcessed(tweetID string) (bool, error) {
	res, err := db.db.Exec(
		"UPDATE bookmarks SET processed = 1, processed_at = ? WHERE tweet_id = ?",
		time.Now().Format(time.RFC3339), tweetID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark bookmark processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to determine rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	db.emit(BookmarkProcessedEvent{TweetID: tweetID, Processed: true})
	return true, nil
}

// MarkUnprocessed clears the processed flag and timestamp atomically.
// Returns false when no bookmark has the given tweet ID.
// Emits a BookmarkProcessedEvent after a successful update.
func (db *DB) MarkUnprocessed(tweetID string) (bool, error) {
	res, err := db.db.Exec(
		"UPDATE bookmarks SET processed = 0, processed_at = NULL WHERE tweet_id = ?",
		tweetID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark bookmark unprocessed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to determine rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	db.emit(BookmarkProcessedEvent{TweetID: tweetID, Processed: false})
	return true, nil
}

// UpdateEnrichment replaces a bookmark's enrichment entries.
// Returns false when no bookmark has the given tweet ID.
// Emits an EnrichmentSavedEvent after a successful update.
func (db *DB) UpdateEnrichment(tweetID string, entries []URLMetadata) (bool, error) {
	enrichment, err := encodeEnrichment(entries)
	if err != nil {
		return false, err
	}
	res, err := db.db.Exec(
		"UPDATE bookmarks SET enrichment = ? WHERE tweet_id = ?", enrichment, tweetID)
	if err != nil {
		return false, fmt.Errorf("failed to update enrichment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to determine rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	db.emit(EnrichmentSavedEvent{TweetID: tweetID, URLCount: len(entries)})
	return true, nil
}

func (db *DB) Count() (int, error) {
	var n int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM bookmarks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return n, nil
}

// Stats returns summary statistics: total count, save-time range, and up
// to ten authors by bookmark count descending.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	if err := db.db.QueryRow("SELECT COUNT(*) FROM bookmarks").Scan(&s.Total); err != nil {
		return Stats{}, fmt.Errorf("failed to count bookmarks: %w", err)
	}

	var oldest, newest sql.NullString
	err := db.db.QueryRow(
		"SELECT MIN(saved_at), MAX(saved_at) FROM bookmarks",
	).Scan(&oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get bookmark date range: %w", err)
	}
	if oldest.Valid {
		if s.Oldest, err = time.Parse(time.RFC3339, oldest.String); err != nil {
			return Stats{}, fmt.Errorf("failed to parse oldest saved_at: %w", err)
		}
	}
	if newest.Valid {
		if s.Newest, err = time.Parse(time.RFC3339, newest.String); err != nil {
			return Stats{}, fmt.Errorf("failed to parse newest saved_at: %w", err)
		}
	}

	rows, err := db.db.Query(`
		SELECT author_username, COUNT(*) as count
		FROM bookmarks
		GROUP BY author_username
		ORDER BY count DESC
		LIMIT 10
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get top authors: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	for rows.Next() {
		var a AuthorCount
		if err := rows.Scan(&a.Username, &a.Count); err != nil {
			return Stats{}, fmt.Errorf("failed to scan author count: %w", err)
		}
		s.TopAuthors = append(s.TopAuthors, a)
	}
	return s, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
