package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/seckatie/xmarkd/internal/core/db"
)

// EnrichOptions tune metadata fetching for linked pages.
type EnrichOptions struct {
	Timeout        time.Duration
	UserAgent      string
	IncludeSummary bool
	// Force re-fetches metadata even for bookmarks that already have it.
	Force bool
	// SkipDomains are never fetched, on top of the built-in Twitter
	// hosts which only ever resolve back into the platform.
	SkipDomains []string
}

func DefaultEnrichOptions() EnrichOptions {
	return EnrichOptions{
		Timeout:   DefaultEnrichTimeout,
		UserAgent: UserAgent,
	}
}

// Enricher fetches linked pages and attaches their titles, descriptions,
// and optional text summaries to stored bookmarks.
type Enricher struct {
	store  *db.DB
	client *http.Client
	opts   EnrichOptions
	log    zerolog.Logger
}

func NewEnricher(store *db.DB, opts EnrichOptions, log zerolog.Logger) *Enricher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultEnrichTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	return &Enricher{
		store:  store,
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		log:    log,
	}
}

// Twitter's own hosts never yield useful page metadata.
var skipHosts = map[string]bool{
	"twitter.com":     true,
	"x.com":           true,
	"t.co":            true,
	"pic.twitter.com": true,
}

func (e *Enricher) shouldEnrich(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if skipHosts[host] {
		return false
	}
	for _, d := range e.opts.SkipDomains {
		if host == strings.ToLower(d) {
			return false
		}
	}
	return true
}

// FetchURLMetadata fetches one page and extracts its metadata.
func (e *Enricher) FetchURLMetadata(ctx context.Context, rawURL string) (db.URLMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return db.URLMetadata{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", e.opts.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return db.URLMetadata{}, NewNetworkError(fmt.Sprintf("failed to fetch %s", rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return db.URLMetadata{}, NewNetworkError(fmt.Sprintf("fetch %s returned %d", rawURL, resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, MaxPageSize))
	if err != nil {
		return db.URLMetadata{}, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}

	meta := ExtractMetadata(doc)
	meta.URL = rawURL
	if e.opts.IncludeSummary {
		meta.Summary = capBytes(ExtractPageText(doc), MaxSummaryStoredBytes)
	}
	return meta, nil
}

// ExtractMetadata reads Open Graph tags, falling back to the plain HTML
// equivalents.
func ExtractMetadata(doc *goquery.Document) db.URLMetadata {
	var meta db.URLMetadata

	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && v != "" {
		meta.Title = strings.TrimSpace(v)
	} else {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if v, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok && v != "" {
		meta.Description = strings.TrimSpace(v)
	} else if v, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		meta.Description = strings.TrimSpace(v)
	}

	return meta
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExtractPageText pulls the readable body text out of a page, with the
// chrome stripped and whitespace collapsed.
func ExtractPageText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, aside").Remove()
	text := whitespaceRun.ReplaceAllString(doc.Find("body").Text(), " ")
	return capBytes(strings.TrimSpace(text), MaxSummarySourceBytes)
}

// capBytes trims s to at most max bytes, backing up to the previous rune
// boundary so a multibyte character is never cut in half.
func capBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// EnrichBookmark fetches metadata for every enrichable URL on one
// bookmark and stores whatever it got. A failed URL is logged and
// skipped; one dead link must not lose the rest.
func (e *Enricher) EnrichBookmark(ctx context.Context, b db.Bookmark) (int, error) {
	var entries []db.URLMetadata
	for _, raw := range b.URLs {
		if !e.shouldEnrich(raw) {
			continue
		}
		meta, err := e.FetchURLMetadata(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return len(entries), ctx.Err()
			}
			e.log.Warn().Err(err).Str("tweet_id", b.TweetID).Str("url", raw).Msg("failed to enrich url")
			continue
		}
		entries = append(entries, meta)
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if _, err := e.store.UpdateEnrichment(b.TweetID, entries); err != nil {
		return 0, NewDatabaseError("failed to save enrichment", err)
	}
	return len(entries), nil
}

// EnrichAll walks the stored bookmarks and enriches every one that has
// URLs and no enrichment yet; Force redoes them all. It returns how many
// bookmarks gained metadata.
func (e *Enricher) EnrichAll(ctx context.Context) (int, error) {
	bookmarks, err := e.store.ListBookmarks(db.ListOptions{})
	if err != nil {
		return 0, NewDatabaseError("failed to list bookmarks", err)
	}

	enriched := 0
	for _, b := range bookmarks {
		if len(b.URLs) == 0 {
			continue
		}
		if len(b.Enrichment) > 0 && !e.opts.Force {
			continue
		}
		n, err := e.EnrichBookmark(ctx, b)
		if err != nil {
			return enriched, err
		}
		if n > 0 {
			enriched++
			e.log.Info().Str("tweet_id", b.TweetID).Int("urls", n).Msg("enriched bookmark")
		}
	}
	return enriched, nil
}
