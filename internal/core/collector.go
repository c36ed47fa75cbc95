package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seckatie/xmarkd/internal/core/browser"
	"github.com/seckatie/xmarkd/internal/core/db"
)

// Collector consumes intercepted timeline responses, decodes bookmark
// records out of them, and offers each record to the store. An
// already-stored record marks the incremental-sync boundary and raises
// the session stop flag.
//
// HandleResponse runs on the browser's event goroutine; all shared crawl
// counters go through crawlState.
type Collector struct {
	store   *db.DB
	state   *crawlState
	log     zerolog.Logger
	pattern string
	syncAll bool
}

func newCollector(store *db.DB, state *crawlState, syncAll bool, log zerolog.Logger) *Collector {
	return &Collector{
		store:   store,
		state:   state,
		log:     log,
		pattern: GraphQLPattern,
		syncAll: syncAll,
	}
}

// MatchResponse filters for successful bookmark timeline responses.
func (c *Collector) MatchResponse(url string, status int) bool {
	return status == http.StatusOK && strings.Contains(url, c.pattern)
}

// HandleResponse decodes one timeline payload and stores its bookmarks.
// A malformed payload is logged and skipped; one bad response must never
// abort the crawl.
func (c *Collector) HandleResponse(resp browser.Response) {
	if c.state.stopped() {
		return
	}
	c.state.noteEvent()

	bookmarks, err := c.decodePayload(resp.Body)
	if err != nil {
		c.log.Warn().Err(err).Str("url", resp.URL).Msg("failed to parse bookmarks response")
		return
	}

	for _, b := range bookmarks {
		if c.state.stopped() {
			return
		}
		res, err := c.store.InsertBookmark(b)
		if err != nil {
			c.log.Warn().Err(err).Str("tweet_id", b.TweetID).Msg("failed to save bookmark")
			continue
		}
		if res == db.AlreadyExists {
			if c.syncAll {
				continue
			}
			c.state.requestStop(true)
			c.log.Info().Str("tweet_id", b.TweetID).Msg("found existing bookmark, stopping sync")
			return
		}
		count := c.state.recordNew()
		c.log.Info().
			Int("count", count).
			Str("author", b.AuthorUsername).
			Str("tweet_id", b.TweetID).
			Msg("saved bookmark")
	}
}

// decodePayload extracts bookmark records from a timeline payload. The
// loosely typed wire shapes below stay confined to this decode boundary;
// everything past it works with db.Bookmark.
func (c *Collector) decodePayload(body []byte) ([]db.Bookmark, error) {
	var payload timelinePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode timeline payload: %w", err)
	}

	var out []db.Bookmark
	for _, instruction := range payload.Data.BookmarkTimelineV2.Timeline.Instructions {
		if instruction.Type != "TimelineAddEntries" {
			continue
		}
		for _, entry := range instruction.Entries {
			b, ok, err := parseEntry(entry)
			if err != nil {
				c.log.Warn().Err(err).Str("entry_id", entry.EntryID).Msg("failed to parse entry")
				continue
			}
			if ok {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// Wire shapes for the nested GraphQL timeline payload.

type timelinePayload struct {
	Data struct {
		BookmarkTimelineV2 struct {
			Timeline struct {
				Instructions []timelineInstruction `json:"instructions"`
			} `json:"timeline"`
		} `json:"bookmark_timeline_v2"`
	} `json:"data"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
}

type timelineEntry struct {
	EntryID string `json:"entryId"`
	Content struct {
		ItemContent struct {
			TweetResults struct {
				Result json.RawMessage `json:"result"`
			} `json:"tweet_results"`
		} `json:"itemContent"`
	} `json:"content"`
}

type tweetResult struct {
	TypeName string          `json:"__typename"`
	RestID   string          `json:"rest_id"`
	Tweet    json.RawMessage `json:"tweet"`
	Core     struct {
		UserResults struct {
			Result userResult `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy tweetLegacy `json:"legacy"`
}

type userResult struct {
	RestID string     `json:"rest_id"`
	Core   userFields `json:"core"`
	Legacy userFields `json:"legacy"`
}

type userFields struct {
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
}

type tweetLegacy struct {
	CreatedAt        string `json:"created_at"`
	FullText         string `json:"full_text"`
	ExtendedEntities struct {
		Media []mediaEntity `json:"media"`
	} `json:"extended_entities"`
	Entities struct {
		URLs []urlEntity `json:"urls"`
	} `json:"entities"`
}

type mediaEntity struct {
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
	VideoInfo     struct {
		Variants []videoVariant `json:"variants"`
	} `json:"video_info"`
}

type videoVariant struct {
	ContentType string `json:"content_type"`
	Bitrate     int64  `json:"bitrate"`
	URL         string `json:"url"`
}

type urlEntity struct {
	ExpandedURL string `json:"expanded_url"`
}

// parseEntry turns one timeline entry into a bookmark. ok=false without an
// error means the entry is legitimately not a bookmark (cursor entries,
// non-tweet items); an error means the entry looked like a bookmark but
// could not be decoded.
func parseEntry(entry timelineEntry) (db.Bookmark, bool, error) {
	// Synthetic pagination entries carry no tweet.
	if strings.HasPrefix(entry.EntryID, "cursor-") {
		return db.Bookmark{}, false, nil
	}

	raw := entry.Content.ItemContent.TweetResults.Result
	if len(raw) == 0 {
		return db.Bookmark{}, false, nil
	}

	var result tweetResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return db.Bookmark{}, false, fmt.Errorf("failed to decode tweet result: %w", err)
	}

	// Visibility-limited tweets wrap the real item one level down.
	if result.TypeName == "TweetWithVisibilityResults" {
		if len(result.Tweet) == 0 {
			return db.Bookmark{}, false, fmt.Errorf("visibility wrapper without inner tweet")
		}
		raw = result.Tweet
		result = tweetResult{}
		if err := json.Unmarshal(raw, &result); err != nil {
			return db.Bookmark{}, false, fmt.Errorf("failed to decode wrapped tweet: %w", err)
		}
	}

	if result.TypeName != "Tweet" {
		return db.Bookmark{}, false, nil
	}

	tweetID := result.RestID
	if tweetID == "" {
		tweetID = strings.TrimPrefix(entry.EntryID, "tweet-")
	}
	if tweetID == "" {
		return db.Bookmark{}, false, fmt.Errorf("entry has no tweet id")
	}

	createdAt := time.Now()
	if result.Legacy.CreatedAt != "" {
		// Twitter format: "Sat Jan 01 00:00:00 +0000 2022"
		t, err := time.Parse(time.RubyDate, result.Legacy.CreatedAt)
		if err != nil {
			return db.Bookmark{}, false, fmt.Errorf("failed to parse created_at: %w", err)
		}
		createdAt = t
	}

	user := result.Core.UserResults.Result

	var mediaURLs []string
	for _, media := range result.Legacy.ExtendedEntities.Media {
		switch media.Type {
		case "photo":
			if media.MediaURLHTTPS != "" {
				mediaURLs = append(mediaURLs, media.MediaURLHTTPS)
			}
		case "video", "animated_gif":
			if url := bestVideoURL(media.VideoInfo.Variants); url != "" {
				mediaURLs = append(mediaURLs, url)
			}
		}
	}

	var urls []string
	for _, u := range result.Legacy.Entities.URLs {
		if u.ExpandedURL != "" {
			urls = append(urls, u.ExpandedURL)
		}
	}

	return db.Bookmark{
		TweetID:        tweetID,
		AuthorID:       user.RestID,
		AuthorUsername: firstNonEmpty(user.Core.ScreenName, user.Legacy.ScreenName),
		AuthorName:     firstNonEmpty(user.Core.Name, user.Legacy.Name),
		Text:           result.Legacy.FullText,
		CreatedAt:      createdAt,
		RawJSON:        string(raw),
		MediaURLs:      mediaURLs,
		URLs:           urls,
	}, true, nil
}

// bestVideoURL picks the highest-bitrate mp4 variant.
func bestVideoURL(variants []videoVariant) string {
	var best videoVariant
	found := false
	for _, v := range variants {
		if v.ContentType != "video/mp4" {
			continue
		}
		if !found || v.Bitrate > best.Bitrate {
			best = v
			found = true
		}
	}
	if !found {
		return ""
	}
	return best.URL
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
