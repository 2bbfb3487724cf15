package crawler

import (
	"github.com/nao1215/sitecrawl/internal/model"
)

// Frontier is the FIFO queue of URLs waiting to be crawled.
// It is owned by a single Engine goroutine and is not safe for concurrent use.
type Frontier struct {
	items []model.NormalizedURL
	head  int
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{items: make([]model.NormalizedURL, 0)}
}

// Push appends u to the tail.
func (f *Frontier) Push(u model.NormalizedURL) {
	f.items = append(f.items, u)
}

// Pop removes and returns the head. It returns false when empty.
func (f *Frontier) Pop() (model.NormalizedURL, bool) {
	if f.Len() == 0 {
		return "", false
	}
	u := f.items[f.head]
	f.items[f.head] = ""
	f.head++
	f.compact()
	return u, true
}

// PopN removes and returns up to n URLs from the head, in order.
func (f *Frontier) PopN(n int) []model.NormalizedURL {
	if n < 1 {
		n = 1
	}
	n = min(n, f.Len())
	out := make([]model.NormalizedURL, n)
	for i := range n {
		out[i], _ = f.Pop()
	}
	return out
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	return len(f.items) - f.head
}

// compact drops the consumed prefix once it dominates the backing array.
func (f *Frontier) compact() {
	if f.head < 1024 || f.head*2 < len(f.items) {
		return
	}
	n := copy(f.items, f.items[f.head:])
	f.items = f.items[:n]
	f.head = 0
}
