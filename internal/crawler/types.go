package crawler

import (
	"net/http"
	"time"
)

// MissingValue is recorded when a page has no <title> or no <html> element.
const MissingValue = "None"

// Task is one unit of crawl work: an address plus the number of hops that may
// still be expanded from it.
type Task struct {
	URL   string
	Depth int
}

// VisitRecord is produced once per successfully fetched and extracted address.
type VisitRecord struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// NewVisitRecord builds a record from an extraction. Absence is the
// Extractor's call, so empty strings are kept as they are.
func NewVisitRecord(url string, ext Extraction) VisitRecord {
	return VisitRecord{URL: url, Title: ext.Title, HTML: ext.Content}
}

// Extraction is what an Extractor pulls out of a raw page. Extractors set
// Title or Content to MissingValue when the element is absent.
type Extraction struct {
	Title   string
	Content string
	Links   []string
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Timeout time.Duration
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL         string
	StatusCode  int
	ContentType string
	Headers     http.Header
	Body        []byte
	Duration    time.Duration
}

// State is a step in a single crawl invocation's lifecycle.
type State int

// Crawl lifecycle states, in order.
const (
	StateIdle State = iota
	StateSeeded
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeded:
		return "seeded"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// FrontierStats reports the Frontier's submit/done accounting.
type FrontierStats struct {
	Submitted int64
	Completed int64
	Pending   int64
}

// Notice is published after a crawl result has been persisted.
type Notice struct {
	CrawlID    string    `json:"crawl_id"`
	Root       string    `json:"root"`
	Depth      int       `json:"depth"`
	Pages      int       `json:"pages"`
	Submitted  int64     `json:"submitted"`
	DurationMs int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}
