package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/seckatie/xmarkd/internal/core/db"
)

// Export formats.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
)

// bookmarkJSON is the stable export shape; column names, not Go names.
type bookmarkJSON struct {
	TweetID        string           `json:"tweet_id"`
	AuthorID       string           `json:"author_id"`
	AuthorUsername string           `json:"author_username"`
	AuthorName     string           `json:"author_name"`
	Text           string           `json:"text"`
	CreatedAt      string           `json:"created_at"`
	SavedAt        string           `json:"bookmark_saved_at"`
	MediaURLs      []string         `json:"media_urls"`
	URLs           []string         `json:"urls"`
	Processed      bool             `json:"processed"`
	ProcessedAt    *string          `json:"processed_at"`
	URLMetadata    []db.URLMetadata `json:"url_metadata"`
}

func toBookmarkJSON(b db.Bookmark) bookmarkJSON {
	out := bookmarkJSON{
		TweetID:        b.TweetID,
		AuthorID:       b.AuthorID,
		AuthorUsername: b.AuthorUsername,
		AuthorName:     b.AuthorName,
		Text:           b.Text,
		CreatedAt:      b.CreatedAt.Format(time.RFC3339),
		SavedAt:        b.SavedAt.Format(time.RFC3339),
		MediaURLs:      b.MediaURLs,
		URLs:           b.URLs,
		Processed:      b.Processed,
		URLMetadata:    b.Enrichment,
	}
	if b.MediaURLs == nil {
		out.MediaURLs = []string{}
	}
	if b.URLs == nil {
		out.URLs = []string{}
	}
	if b.Enrichment == nil {
		out.URLMetadata = []db.URLMetadata{}
	}
	if b.ProcessedAt != nil {
		s := b.ProcessedAt.Format(time.RFC3339)
		out.ProcessedAt = &s
	}
	return out
}

// FormatBookmarks renders bookmarks in the named format: json, csv, or md.
func FormatBookmarks(bookmarks []db.Bookmark, format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(bookmarks)
	case FormatCSV:
		return formatCSV(bookmarks)
	case FormatMarkdown, "markdown":
		return formatMarkdown(bookmarks), nil
	default:
		return "", NewInvalidInputError(fmt.Sprintf("unknown format: %s", format), nil)
	}
}

func formatJSON(bookmarks []db.Bookmark) (string, error) {
	out := make([]bookmarkJSON, 0, len(bookmarks))
	for _, b := range bookmarks {
		out = append(out, toBookmarkJSON(b))
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode bookmarks: %w", err)
	}
	return string(data), nil
}

func formatCSV(bookmarks []db.Bookmark) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"tweet_id",
		"author_id",
		"author_username",
		"author_name",
		"text",
		"created_at",
		"bookmark_saved_at",
		"media_urls",
		"urls",
		"processed",
		"processed_at",
		"url_metadata",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write csv: %w", err)
	}

	for _, b := range bookmarks {
		enrichment := ""
		if len(b.Enrichment) > 0 {
			data, err := json.Marshal(b.Enrichment)
			if err != nil {
				return "", fmt.Errorf("failed to encode enrichment: %w", err)
			}
			enrichment = string(data)
		}
		processedAt := ""
		if b.ProcessedAt != nil {
			processedAt = b.ProcessedAt.Format(time.RFC3339)
		}
		row := []string{
			b.TweetID,
			b.AuthorID,
			b.AuthorUsername,
			b.AuthorName,
			strings.ReplaceAll(b.Text, "\n", " "),
			b.CreatedAt.Format(time.RFC3339),
			b.SavedAt.Format(time.RFC3339),
			strings.Join(b.MediaURLs, "|"),
			strings.Join(b.URLs, "|"),
			fmt.Sprintf("%t", b.Processed),
			processedAt,
			enrichment,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write csv: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.String(), nil
}

func formatMarkdown(bookmarks []db.Bookmark) string {
	var sb strings.Builder
	sb.WriteString("# X/Twitter Bookmarks\n")

	for _, b := range bookmarks {
		fmt.Fprintf(&sb, "## @%s (%s)\n", b.AuthorUsername, b.AuthorName)
		fmt.Fprintf(&sb, "**Tweet ID:** %s  \n", b.TweetID)
		fmt.Fprintf(&sb, "**Created:** %s  \n", b.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(&sb, "**Bookmarked:** %s  \n", b.SavedAt.Format("2006-01-02 15:04"))

		if b.Processed {
			processedAt := "unknown"
			if b.ProcessedAt != nil {
				processedAt = b.ProcessedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(&sb, "**Status:** Processed (%s)\n", processedAt)
		} else {
			sb.WriteString("**Status:** Unprocessed\n")
		}

		fmt.Fprintf(&sb, "\n%s\n", b.Text)

		if len(b.MediaURLs) > 0 {
			sb.WriteString("\n**Media:**\n")
			for _, url := range b.MediaURLs {
				fmt.Fprintf(&sb, "- %s\n", url)
			}
		}
		if len(b.URLs) > 0 {
			sb.WriteString("\n**Links:**\n")
			for _, url := range b.URLs {
				fmt.Fprintf(&sb, "- %s\n", url)
			}
		}
		if len(b.Enrichment) > 0 {
			sb.WriteString("\n**Enriched URL Data:**\n")
			for _, meta := range b.Enrichment {
				fmt.Fprintf(&sb, "- **%s**\n", meta.URL)
				if meta.Title != "" {
					fmt.Fprintf(&sb, "  - Title: %s\n", meta.Title)
				}
				if meta.Description != "" {
					fmt.Fprintf(&sb, "  - Description: %s\n", meta.Description)
				}
				if meta.Summary != "" {
					fmt.Fprintf(&sb, "  - Summary: %s\n", ellipsize(meta.Summary, 200, 200))
				}
			}
		}

		fmt.Fprintf(&sb, "\n[View on X](https://x.com/%s/status/%s)\n", b.AuthorUsername, b.TweetID)
		sb.WriteString("\n---\n\n")
	}

	return sb.String()
}

// RenderTable prints bookmarks as an aligned summary table for terminals.
func RenderTable(bookmarks []db.Bookmark) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "AUTHOR\tTEXT\tCREATED\tTWEET ID")
	for _, b := range bookmarks {
		text := strings.ReplaceAll(ellipsize(b.Text, 60, 57), "\n", " ")
		fmt.Fprintf(w, "@%s\t%s\t%s\t%s\n",
			b.AuthorUsername, text, b.CreatedAt.Format("2006-01-02"), b.TweetID)
	}
	w.Flush()
	fmt.Fprintf(&buf, "\nShowing %d bookmarks\n", len(bookmarks))
	return buf.String()
}

// ellipsize shortens s to keep runes plus "..." when s is longer than max
// runes. Counting runes instead of bytes keeps multibyte text intact.
func ellipsize(s string, max, keep int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:keep]) + "..."
}

// ExportFileName builds the default timestamped export file name.
func ExportFileName(format string, now time.Time) string {
	return fmt.Sprintf("bookmarks_%s.%s", now.Format("20060102_150405"), format)
}
