package db

import (
	"fmt"
	"log"
)

// ------------------------------
// Full-text search
// ------------------------------
//
// The bookmarks_fts virtual table is an external-content FTS5 index over
// the text-bearing columns, keyed by the bookmarks table's rowid. Insert,
// update, and delete triggers keep it synchronized with the primary table
// in the same statement, so a write is visible to search as soon as it
// commits.

// Search returns bookmarks matching an FTS5 query, best match first. The
// query string is handed to MATCH untouched, so FTS5 operators (AND, OR,
// NEAR, prefix*) work as documented by SQLite.
func (db *DB) Search(query string, limit int) ([]Bookmark, error) {
	sqlQuery := `
		SELECT b.tweet_id, b.author_id, b.author_username, b.author_name, b.text,
			b.created_at, b.saved_at, b.raw_json, b.media_urls, b.urls,
			b.processed, b.processed_at, b.enrichment
		FROM bookmarks_fts
		JOIN bookmarks b ON b.rowid = bookmarks_fts.rowid
		WHERE bookmarks_fts MATCH ?
		ORDER BY rank
	`
	params := []any{query}
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		params = append(params, limit)
	}

	rows, err := db.db.Query(sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to search bookmarks: %w", err)
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
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RebuildSearchIndex rebuilds the full-text index from the primary table.
// This is the repair path after a bulk load or index corruption; it is
// safe to run at any time.
func (db *DB) RebuildSearchIndex() error {
	if _, err := db.db.Exec("INSERT INTO bookmarks_fts(bookmarks_fts) VALUES ('rebuild')"); err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}
	return nil
}
