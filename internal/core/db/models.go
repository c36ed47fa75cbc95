package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Bookmark is one captured tweet from the bookmarks timeline.
type Bookmark struct {
	TweetID        string
	AuthorID       string
	AuthorUsername string
	AuthorName     string
	Text           string
	// CreatedAt is the tweet's own timestamp. SavedAt is when the row was
	// first written to the store; it is assigned once and never mutated.
	CreatedAt time.Time
	SavedAt   time.Time
	// RawJSON preserves the decoded tweet payload verbatim.
	RawJSON     string
	MediaURLs   []string
	URLs        []string
	Processed   bool
	ProcessedAt *time.Time
	Enrichment  []URLMetadata
}

// URLMetadata is fetched page metadata for one link in a bookmark.
type URLMetadata struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// InsertResult reports the outcome of InsertBookmark. A primary-key
// collision is a normal outcome, not an error; the crawler uses it to
// detect the incremental-sync boundary.
type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadyExists
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// ListOptions filters ListBookmarks. All set filters are AND-combined.
type ListOptions struct {
	// Since keeps only bookmarks saved strictly after this time.
	Since time.Time
	// AfterTweetID keeps only bookmarks saved after the referenced
	// bookmark. If the referenced bookmark does not exist the filter is
	// a no-op, never an error.
	AfterTweetID string
	// Author is a case-insensitive exact username match.
	Author string
	// UnprocessedOnly keeps only bookmarks not yet marked processed.
	UnprocessedOnly bool
	// Limit bounds the result size. <= 0 means no limit.
	Limit int
}

// AuthorCount is one entry of Stats.TopAuthors.
type AuthorCount struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// Stats summarizes the store contents.
type Stats struct {
	Total int
	// Oldest and Newest are by save time; zero when the store is empty.
	Oldest     time.Time
	Newest     time.Time
	TopAuthors []AuthorCount
}

// List-valued attributes are stored as JSON text in nullable columns.

func encodeStringList(v []string) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

func decodeStringList(v sql.NullString) ([]string, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return out, nil
}

func encodeEnrichment(v []URLMetadata) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode enrichment: %w", err)
	}
	return string(b), nil
}

func decodeEnrichment(v sql.NullString) ([]URLMetadata, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var out []URLMetadata
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, fmt.Errorf("failed to decode enrichment: %w", err)
	}
	return out, nil
}

const bookmarkColumns = `tweet_id, author_id, author_username, author_name, text,
	created_at, saved_at, raw_json, media_urls, urls, processed, processed_at, enrichment`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row rowScanner) (Bookmark, error) {
	var (
		b                     Bookmark
		createdAt, savedAt    string
		mediaURLs, urls       sql.NullString
		processed             int
		processedAt, enriched sql.NullString
	)
	err := row.Scan(
		&b.TweetID, &b.AuthorID, &b.AuthorUsername, &b.AuthorName, &b.Text,
		&createdAt, &savedAt, &b.RawJSON, &mediaURLs, &urls,
		&processed, &processedAt, &enriched,
	)
	if err != nil {
		return Bookmark{}, err
	}

	if b.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Bookmark{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if b.SavedAt, err = time.Parse(time.RFC3339, savedAt); err != nil {
		return Bookmark{}, fmt.Errorf("failed to parse saved_at: %w", err)
	}
	if b.MediaURLs, err = decodeStringList(mediaURLs); err != nil {
		return Bookmark{}, err
	}
	if b.URLs, err = decodeStringList(urls); err != nil {
		return Bookmark{}, err
	}
	b.Processed = processed != 0
	if processedAt.Valid && processedAt.String != "" {
		t, err := time.Parse(time.RFC3339, processedAt.String)
		if err != nil {
			return Bookmark{}, fmt.Errorf("failed to parse processed_at: %w", err)
		}
		b.ProcessedAt = &t
	}
	if b.Enrichment, err = decodeEnrichment(enriched); err != nil {
		return Bookmark{}, err
	}
	return b, nil
}
