package client

import (
	"sync"

	"github.com/matcha-dev/matcha/pkg/props"
)

// Entry is one history record. Props is nil for entries the router did not
// create, such as the page the browser loaded directly.
type Entry struct {
	Path  string
	Props props.Props
}

// HasProps reports whether the entry carries stored props.
func (e Entry) HasProps() bool {
	return e.Props != nil
}

// History receives the entries of completed navigations.
type History interface {
	Push(Entry)
}

// MemoryHistory is an in-process History with back/forward support.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []Entry
	index   int
}

// NewMemoryHistory starts a history at initial.
func NewMemoryHistory(initial Entry) *MemoryHistory {
	return &MemoryHistory{entries: []Entry{initial}}
}

// Push appends e after the current entry, discarding forward entries.
func (h *MemoryHistory) Push(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], e)
	h.index = len(h.entries) - 1
}

// Back moves one entry back. ok is false at the start of history.
func (h *MemoryHistory) Back() (e Entry, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return Entry{}, false
	}
	h.index--
	return h.entries[h.index], true
}

// Forward moves one entry forward. ok is false at the end of history.
func (h *MemoryHistory) Forward() (e Entry, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return Entry{}, false
	}
	h.index++
	return h.entries[h.index], true
}

// Current returns the entry at the cursor.
func (h *MemoryHistory) Current() Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Entries returns a copy of every entry.
func (h *MemoryHistory) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}
