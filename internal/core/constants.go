package core

import "time"

// Remote endpoints for the bookmarks crawl
const (
	// BookmarksURL is the bookmarks timeline page the crawl navigates to.
	BookmarksURL = "https://x.com/i/bookmarks"
	// GraphQLPattern identifies bookmark timeline responses by URL substring.
	GraphQLPattern = "Bookmarks"
)

// Crawl pacing defaults. These are heuristics, not contracts; override via
// CrawlOptions.
const (
	DefaultIdleThreshold   = 2 * time.Second
	DefaultStabilityCycles = 2
	DefaultSettleDelay     = 1500 * time.Millisecond
	DefaultInitialWait     = 3 * time.Second
)

// Enrichment defaults
const (
	DefaultEnrichTimeout = 10 * time.Second
	// MaxSummarySourceBytes bounds how much extracted page text is
	// considered; MaxSummaryStoredBytes bounds what is persisted.
	MaxSummarySourceBytes = 10000
	MaxSummaryStoredBytes = 2000
	// MaxPageSize caps how much of a fetched page body is read.
	MaxPageSize = 5 * 1024 * 1024 // 5MB
)

// UserAgent presented by both the browser session and enrichment fetches.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
