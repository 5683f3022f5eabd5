package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor turns raw markup into a title, body text, and outbound links.
type Extractor interface {
	Extract(body []byte) (Extraction, error)
}

// Store is the key-value persistence backend.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	// Get reports found=false with a nil error when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Close() error
}

// Frontier is the task queue plus the pending-task accounting that signals
// crawl completion.
type Frontier interface {
	Submit(task Task) error
	Take(ctx context.Context) (Task, error)
	MarkDone() error
}

// Publisher pushes completion notices to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl IDs.
type IDGenerator interface {
	NewID() (string, error)
}
