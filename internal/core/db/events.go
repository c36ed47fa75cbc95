package db

import "log"

// ------------------------------
// Event System
// ------------------------------
//
// The DB emits typed events when bookmarks are saved, when their processed
// state changes, or when enrichment data is written. Register listeners to
// react to these changes.
//
// Example usage:
//
//	db.RegisterEventListener(db.OnBookmarkSavedEvent, func(event db.Event) error {
//	    ev := event.(db.BookmarkSavedEvent)
//	    log.Printf("Saved bookmark %s by @%s", ev.Bookmark.TweetID, ev.Bookmark.AuthorUsername)
//	    return nil
//	})
//
// Event is the common interface for all database events.
type Event interface {
	Kind() EventKind
}

// EventKind represents all the kinds of events that can be emitted by the DB.
type EventKind int

const (
	// OnBookmarkSavedEvent is emitted when a new bookmark is inserted.
	OnBookmarkSavedEvent EventKind = iota
	// OnBookmarkProcessedEvent is emitted when a bookmark's processed
	// state is toggled.
	OnBookmarkProcessedEvent
	// OnEnrichmentSavedEvent is emitted when enrichment data is written.
	OnEnrichmentSavedEvent
)

func (k EventKind) String() string {
	switch k {
	case OnBookmarkSavedEvent:
		return "bookmark_saved"
	case OnBookmarkProcessedEvent:
		return "bookmark_processed"
	case OnEnrichmentSavedEvent:
		return "enrichment_saved"
	default:
		return "unknown"
	}
}

// BookmarkSavedEvent is emitted after a new bookmark is successfully inserted.
type BookmarkSavedEvent struct {
	Bookmark Bookmark
}

func (e BookmarkSavedEvent) Kind() EventKind { return OnBookmarkSavedEvent }

// BookmarkProcessedEvent is emitted after a processed-state toggle.
type BookmarkProcessedEvent struct {
	TweetID   string
	Processed bool
}

func (e BookmarkProcessedEvent) Kind() EventKind { return OnBookmarkProcessedEvent }

// EnrichmentSavedEvent is emitted after enrichment entries are stored.
type EnrichmentSavedEvent struct {
	TweetID  string
	URLCount int
}

func (e EnrichmentSavedEvent) Kind() EventKind { return OnEnrichmentSavedEvent }

// EventListener is a callback that handles events of a specific kind.
type EventListener func(event Event) error

// RegisterEventListener adds a listener for a specific event kind.
// Listeners are called synchronously in registration order after the DB operation succeeds.
func (db *DB) RegisterEventListener(eventKind EventKind, listener EventListener) {
	if db.eventListeners == nil {
		db.eventListeners = make(map[EventKind][]EventListener)
	}
	db.eventListeners[eventKind] = append(db.eventListeners[eventKind], listener)
}

// emit dispatches an event to all registered listeners for that event kind.
func (db *DB) emit(event Event) {
	listeners := db.eventListeners[event.Kind()]
	for _, listener := range listeners {
		if err := listener(event); err != nil {
			log.Printf("Event listener error for %s: %v", event.Kind(), err)
		}
	}
}
