package crawler

import "sync"

// Aggregator collects VisitRecords appended by concurrent workers.
type Aggregator struct {
	mu      sync.Mutex
	records []VisitRecord
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Append adds a record.
func (a *Aggregator) Append(record VisitRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
}

// Len returns the number of records collected so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Snapshot returns a copy of the collected records. The result is never nil.
func (a *Aggregator) Snapshot() []VisitRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]VisitRecord, len(a.records))
	copy(out, a.records)
	return out
}
