package audit

import "sync"

// Ring is a thread-safe ring buffer holding the most recent audit
// entries, so a running daemon can report them without re-reading the
// log file.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	full    bool
}

// NewRing creates a ring buffer that keeps the last n entries.
func NewRing(n int) *Ring {
	return &Ring{
		entries: make([]Entry, n),
		size:    n,
	}
}

// Add records an entry, evicting the oldest when full.
func (r *Ring) Add(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.pos] = entry
	r.pos = (r.pos + 1) % r.size
	if r.pos == 0 {
		r.full = true
	}
}

// Entries returns all stored entries in order, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		result := make([]Entry, r.pos)
		copy(result, r.entries[:r.pos])
		return result
	}

	result := make([]Entry, r.size)
	copy(result, r.entries[r.pos:])
	copy(result[r.size-r.pos:], r.entries[:r.pos])
	return result
}

// Last returns the last n entries. If fewer exist, returns all of them.
func (r *Ring) Last(n int) []Entry {
	all := r.Entries()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
