package web

import (
	"time"

	"github.com/seckatie/xmarkd/internal/core/db"
)

// bookmarkView is the API shape of a stored bookmark.
type bookmarkView struct {
	TweetID        string           `json:"tweet_id"`
	AuthorID       string           `json:"author_id"`
	AuthorUsername string           `json:"author_username"`
	AuthorName     string           `json:"author_name"`
	Text           string           `json:"text"`
	CreatedAt      time.Time        `json:"created_at"`
	SavedAt        time.Time        `json:"bookmark_saved_at"`
	MediaURLs      []string         `json:"media_urls"`
	URLs           []string         `json:"urls"`
	Processed      bool             `json:"processed"`
	ProcessedAt    *time.Time       `json:"processed_at,omitempty"`
	URLMetadata    []db.URLMetadata `json:"url_metadata,omitempty"`
	TweetURL       string           `json:"tweet_url"`
}

type listResponse struct {
	Bookmarks []bookmarkView `json:"bookmarks"`
	Count     int            `json:"count"`
}

type statsView struct {
	Total      int          `json:"total_bookmarks"`
	Oldest     *time.Time   `json:"oldest_bookmark,omitempty"`
	Newest     *time.Time   `json:"newest_bookmark,omitempty"`
	TopAuthors []authorView `json:"top_authors"`
}

type authorView struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

func toView(b db.Bookmark) bookmarkView {
	v := bookmarkView{
		TweetID:        b.TweetID,
		AuthorID:       b.AuthorID,
		AuthorUsername: b.AuthorUsername,
		AuthorName:     b.AuthorName,
		Text:           b.Text,
		CreatedAt:      b.CreatedAt,
		SavedAt:        b.SavedAt,
		MediaURLs:      b.MediaURLs,
		URLs:           b.URLs,
		Processed:      b.Processed,
		ProcessedAt:    b.ProcessedAt,
		URLMetadata:    b.Enrichment,
		TweetURL:       "https://x.com/" + b.AuthorUsername + "/status/" + b.TweetID,
	}
	if v.MediaURLs == nil {
		v.MediaURLs = []string{}
	}
	if v.URLs == nil {
		v.URLs = []string{}
	}
	return v
}

func toViews(bookmarks []db.Bookmark) []bookmarkView {
	out := make([]bookmarkView, 0, len(bookmarks))
	for _, b := range bookmarks {
		out = append(out, toView(b))
	}
	return out
}

func toStatsView(s db.Stats) statsView {
	view := statsView{
		Total:      s.Total,
		TopAuthors: make([]authorView, 0, len(s.TopAuthors)),
	}
	if !s.Oldest.IsZero() {
		oldest := s.Oldest
		view.Oldest = &oldest
	}
	if !s.Newest.IsZero() {
		newest := s.Newest
		view.Newest = &newest
	}
	for _, a := range s.TopAuthors {
		view.TopAuthors = append(view.TopAuthors, authorView{Username: a.Username, Count: a.Count})
	}
	return view
}
