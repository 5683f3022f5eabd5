package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrFrontierClosed is returned by Take once the crawl has completed, and
	// by Submit when called after completion.
	ErrFrontierClosed = errors.New("frontier closed")
	// ErrUnmatchedDone reports a MarkDone without a matching Take.
	ErrUnmatchedDone = errors.New("mark done without matching take")
	// ErrNotText reports a response whose payload is not decodable text.
	ErrNotText = errors.New("response is not text")
	// ErrEmptyBody reports a response without a body.
	ErrEmptyBody = errors.New("empty response body")
	// ErrBodyTooLarge reports a response that reached the body size cap.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// FetchError wraps any failure to retrieve a URL. Workers treat every
// FetchError the same way: the task produces no record.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
