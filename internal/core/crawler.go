package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seckatie/xmarkd/internal/core/browser"
	"github.com/seckatie/xmarkd/internal/core/db"
	"github.com/seckatie/xmarkd/internal/core/session"
)

// CrawlOptions tune the scroll loop and the browser launch.
type CrawlOptions struct {
	// IdleThreshold is how long the page may go without an intercepted
	// bookmark response before a scroll cycle is considered quiet.
	IdleThreshold time.Duration
	// StabilityCycles is how many consecutive no-growth scroll cycles
	// mark the end of the timeline.
	StabilityCycles int
	// SettleDelay is the pause after each scroll before re-measuring.
	SettleDelay time.Duration
	// InitialWait is the pause after navigation for the first page load.
	InitialWait time.Duration

	Headless   bool
	ChromePath string
	UserAgent  string

	// SyncAll disables the stop-on-existing-bookmark shortcut so the
	// whole timeline is walked.
	SyncAll bool
}

func DefaultCrawlOptions() CrawlOptions {
	return CrawlOptions{
		IdleThreshold:   DefaultIdleThreshold,
		StabilityCycles: DefaultStabilityCycles,
		SettleDelay:     DefaultSettleDelay,
		InitialWait:     DefaultInitialWait,
		Headless:        true,
		UserAgent:       UserAgent,
	}
}

// StopReason records why a sync ended.
type StopReason string

const (
	StopDuplicateFound StopReason = "duplicate_found"
	StopHeightStable   StopReason = "height_stable"
	StopIdleTimeout    StopReason = "idle_timeout"
)

// crawlState is the shared scoreboard between the scroll loop and the
// response handler, which runs on the browser's event goroutine.
type crawlState struct {
	mu             sync.Mutex
	newCount       int
	stop           bool
	duplicateFound bool
	lastEventTime  time.Time
	lastHeight     int
}

func newCrawlState() *crawlState {
	return &crawlState{lastEventTime: time.Now()}
}

func (s *crawlState) noteEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEventTime = time.Now()
}

func (s *crawlState) sinceLastEvent() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastEventTime)
}

func (s *crawlState) recordNew() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newCount++
	return s.newCount
}

func (s *crawlState) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newCount
}

func (s *crawlState) requestStop(duplicate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop = true
	if duplicate {
		s.duplicateFound = true
	}
}

func (s *crawlState) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop
}

func (s *crawlState) duplicate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duplicateFound
}

func (s *crawlState) setHeight(h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeight = h
}

// SyncResult summarises one completed sync.
type SyncResult struct {
	NewBookmarks int
	StopReason   StopReason
}

// Crawler drives a logged-in browser through the bookmarks timeline and
// feeds intercepted responses to a Collector.
type Crawler struct {
	store       *db.DB
	sessionPath string
	opts        CrawlOptions
	log         zerolog.Logger

	// connect is swappable for tests.
	connect func(ctx context.Context, state *session.State) (browser.Session, error)
}

func NewCrawler(store *db.DB, sessionPath string, opts CrawlOptions, log zerolog.Logger) *Crawler {
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = DefaultIdleThreshold
	}
	if opts.StabilityCycles <= 0 {
		opts.StabilityCycles = DefaultStabilityCycles
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.InitialWait <= 0 {
		opts.InitialWait = DefaultInitialWait
	}
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	c := &Crawler{
		store:       store,
		sessionPath: sessionPath,
		opts:        opts,
		log:         log,
	}
	c.connect = c.defaultConnect
	return c
}

func (c *Crawler) defaultConnect(ctx context.Context, state *session.State) (browser.Session, error) {
	chrome, err := browser.New(ctx, browser.Options{
		ChromePath: c.opts.ChromePath,
		Headless:   c.opts.Headless,
		UserAgent:  c.opts.UserAgent,
	}, c.log)
	if err != nil {
		return nil, err
	}
	if err := chrome.SetCookies(ctx, state.Cookies); err != nil {
		chrome.Close()
		return nil, err
	}
	return chrome, nil
}

// Sync loads the saved session, opens the bookmarks timeline, and scrolls
// until the timeline is exhausted, an already-stored bookmark appears, or
// the page goes quiet.
func (c *Crawler) Sync(ctx context.Context) (SyncResult, error) {
	state, err := session.Load(c.sessionPath)
	if err != nil {
		return SyncResult{}, NewAuthError(
			fmt.Sprintf("no saved session at %s; log in to x.com in a browser, export the storage state, and run 'xmarkd import-session'", c.sessionPath), err)
	}
	if err := state.Validate(); err != nil {
		return SyncResult{}, NewAuthError(
			"saved session has no auth_token cookie; re-export it and run 'xmarkd import-session'", err)
	}

	if !c.opts.SyncAll {
		latest, err := c.store.MostRecentTweetID()
		if err != nil {
			return SyncResult{}, NewDatabaseError("failed to read sync boundary", err)
		}
		if latest != "" {
			c.log.Debug().Str("tweet_id", latest).Msg("incremental sync, will stop at known bookmark")
		}
	}

	sess, err := c.connect(ctx, state)
	if err != nil {
		return SyncResult{}, NewBrowserError("failed to start browser", err)
	}
	defer sess.Close()

	crawl := newCrawlState()
	collector := newCollector(c.store, crawl, c.opts.SyncAll, c.log)
	sess.OnResponse(collector.MatchResponse, collector.HandleResponse)

	c.log.Info().Str("url", BookmarksURL).Msg("opening bookmarks timeline")
	if err := sess.Navigate(ctx, BookmarksURL); err != nil {
		return SyncResult{}, NewBrowserError("failed to open bookmarks page", err)
	}
	if err := c.wait(ctx, c.opts.InitialWait); err != nil {
		return SyncResult{}, err
	}

	loc, err := sess.Location(ctx)
	if err != nil {
		return SyncResult{}, NewBrowserError("failed to read page location", err)
	}
	if strings.Contains(loc, "login") || strings.Contains(loc, "flow") {
		return SyncResult{}, NewAuthError(
			"session expired, got redirected to login; re-export the session and run 'xmarkd import-session'", nil)
	}
	if err := c.wait(ctx, c.opts.InitialWait); err != nil {
		return SyncResult{}, err
	}

	reason, err := c.scrollLoop(ctx, sess, crawl)
	if err != nil {
		return SyncResult{NewBookmarks: crawl.count()}, err
	}

	result := SyncResult{NewBookmarks: crawl.count(), StopReason: reason}
	c.log.Info().
		Int("new_bookmarks", result.NewBookmarks).
		Str("stop_reason", string(reason)).
		Msg("sync complete")
	return result, nil
}

func (c *Crawler) scrollLoop(ctx context.Context, sess browser.Session, crawl *crawlState) (StopReason, error) {
	noChange := 0
	for {
		if crawl.stopped() {
			return StopDuplicateFound, nil
		}

		grew, err := c.scrollOnce(ctx, sess, crawl)
		if err != nil {
			return "", err
		}

		if crawl.stopped() {
			return StopDuplicateFound, nil
		}

		// Safety net, checked every cycle: a page that keeps growing
		// without ever producing bookmark traffic must still terminate.
		if crawl.sinceLastEvent() > 2*c.opts.IdleThreshold {
			return StopIdleTimeout, nil
		}

		if grew || crawl.sinceLastEvent() < c.opts.IdleThreshold {
			noChange = 0
			continue
		}

		noChange++
		if noChange >= c.opts.StabilityCycles {
			return StopHeightStable, nil
		}
	}
}

// scrollOnce measures the page, scrolls to the bottom, settles, and
// re-measures. It reports whether the page grew.
func (c *Crawler) scrollOnce(ctx context.Context, sess browser.Session, crawl *crawlState) (bool, error) {
	var before int
	if err := sess.Evaluate(ctx, "document.body.scrollHeight", &before); err != nil {
		return false, NewBrowserError("failed to measure page", err)
	}
	if err := sess.Evaluate(ctx, "window.scrollTo(0, document.body.scrollHeight)", nil); err != nil {
		return false, NewBrowserError("failed to scroll page", err)
	}
	if err := c.wait(ctx, c.opts.SettleDelay); err != nil {
		return false, err
	}
	var after int
	if err := sess.Evaluate(ctx, "document.body.scrollHeight", &after); err != nil {
		return false, NewBrowserError("failed to measure page", err)
	}
	crawl.setHeight(after)
	return after > before, nil
}

func (c *Crawler) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
