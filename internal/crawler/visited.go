package crawler

import (
	"sync"

	"github.com/nao1215/sitecrawl/internal/model"
)

// VisitedSet records every URL that was ever pushed onto the frontier.
// Entries are never removed.
type VisitedSet struct {
	mu   sync.Mutex
	urls map[model.NormalizedURL]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[model.NormalizedURL]struct{})}
}

// MarkIfNotVisited inserts u and reports whether it was new.
// The check and the insert happen under one lock, so two callers racing
// on the same URL cannot both see true.
func (v *VisitedSet) MarkIfNotVisited(u model.NormalizedURL) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.urls[u]; ok {
		return false
	}
	v.urls[u] = struct{}{}
	return true
}

// Contains reports whether u was inserted.
func (v *VisitedSet) Contains(u model.NormalizedURL) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok := v.urls[u]
	return ok
}

// Len returns the number of URLs in the set.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.urls)
}
