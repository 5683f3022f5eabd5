// Package archive persists crawl results as a JSON array keyed by the root
// URL of the crawl.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JakeFAU/sitesoft/internal/crawler"
)

var (
	// ErrNotFound reports that no crawl has been stored for a root URL.
	ErrNotFound = errors.New("no crawl stored for url")
	// ErrInvalidLimit reports a non-positive record limit.
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// Archive encodes crawl results and delegates storage to a crawler.Store.
type Archive struct {
	store crawler.Store
}

// New wraps a Store.
func New(store crawler.Store) *Archive {
	return &Archive{store: store}
}

// Save stores records under root, replacing any previous crawl of root.
func (a *Archive) Save(ctx context.Context, root string, records []crawler.VisitRecord) error {
	payload, err := Encode(records)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, root, payload); err != nil {
		return fmt.Errorf("store crawl of %s: %w", root, err)
	}
	return nil
}

// Load returns every record stored for root.
func (a *Archive) Load(ctx context.Context, root string) ([]crawler.VisitRecord, error) {
	payload, found, err := a.store.Get(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("load crawl of %s: %w", root, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", root, ErrNotFound)
	}
	return Decode(payload)
}

// Head returns at most n records stored for root.
func (a *Archive) Head(ctx context.Context, root string, n int) ([]crawler.VisitRecord, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%d: %w", n, ErrInvalidLimit)
	}
	records, err := a.Load(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// Encode renders records as a UTF-8 JSON array without HTML escaping. A nil
// slice encodes as an empty array.
func Encode(records []crawler.VisitRecord) ([]byte, error) {
	if records == nil {
		records = []crawler.VisitRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a JSON array produced by Encode.
func Decode(payload []byte) ([]crawler.VisitRecord, error) {
	var records []crawler.VisitRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if records == nil {
		records = []crawler.VisitRecord{}
	}
	return records, nil
}
