package fetch

import "sync"

// Ref identifies one pinned value in a RefTable.
type Ref uint64

// NoRef is never returned by Pin.
const NoRef Ref = 0

// RefTable keeps values reachable until they are explicitly unpinned.
// Each Pin creates an independent entry, even for the same value.
type RefTable struct {
	mu      sync.Mutex
	next    Ref
	entries map[Ref]any
}

// NewRefTable creates an empty table.
func NewRefTable() *RefTable {
	return &RefTable{entries: make(map[Ref]any)}
}

// Pin stores v and returns its token.
func (t *RefTable) Pin(v any) Ref {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.entries[t.next] = v
	return t.next
}

// Unpin removes r. It reports whether r was pinned.
func (t *RefTable) Unpin(r Ref) bool {
	if r == NoRef {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[r]; !ok {
		return false
	}
	delete(t.entries, r)
	return true
}

// Get resolves r.
func (t *RefTable) Get(r Ref) (any, bool) {
	if r == NoRef {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[r]
	return v, ok
}

// Len returns the number of pinned entries.
func (t *RefTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
