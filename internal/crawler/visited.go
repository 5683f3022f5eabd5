package crawler

import "sync"

// VisitedSet records the addresses accepted for fetching during one crawl.
type VisitedSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]struct{})}
}

// TryVisit marks rawURL visited and returns true iff it was not already
// visited. Membership test and insert happen under one lock.
func (s *VisitedSet) TryVisit(rawURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urls[rawURL]; ok {
		return false
	}
	s.urls[rawURL] = struct{}{}
	return true
}

// Seen reports whether rawURL has been visited. It is advisory only; use
// TryVisit to claim an address.
func (s *VisitedSet) Seen(rawURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urls[rawURL]
	return ok
}

// Len returns the number of visited addresses.
func (s *VisitedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}
