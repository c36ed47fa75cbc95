// Package browser provides the browser-control capability the crawl
// drives: navigation, script evaluation, and subscription to intercepted
// network responses.
package browser

import "context"

// Response is one intercepted, fully loaded network response.
type Response struct {
	URL    string
	Status int
	Body   []byte
}

// Session is a live browser page. Response handlers are invoked on the
// browser's event goroutine, concurrently with callers of the other
// methods; implementations deliver each response at most once.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	// Evaluate runs a JavaScript expression in the page. out may be nil
	// when the result is not needed.
	Evaluate(ctx context.Context, expr string, out any) error
	// OnResponse subscribes to responses whose URL and status pass match.
	OnResponse(match func(url string, status int) bool, handler func(Response))
	Close() error
}
