package feed

import (
	"fmt"
	"net/http"
)

// FetchError is returned when a feed cannot be retrieved, either because the
// request failed or because the server did not respond with a 2xx status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed %s cannot be fetched: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("feed %s cannot be fetched: unexpected status %d (%s)", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedFeedError is returned when the document or one of its features
// does not have the expected shape. Index is -1 when the issue concerns the
// whole document.
type MalformedFeedError struct {
	Index  int
	Reason string
}

func (e *MalformedFeedError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed feed: %s", e.Reason)
	}
	return fmt.Sprintf("malformed feed: feature %d: %s", e.Index, e.Reason)
}
