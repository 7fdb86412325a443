package fetch

import (
	"slices"
	"sync"
)

// Handle identifies a live request. Handles are never reused by a Manager.
type Handle uint64

// Registry maps handles to live requests.
type Registry struct {
	mu   sync.RWMutex
	next Handle
	live map[Handle]*Request
}

func newRegistry() *Registry {
	return &Registry{live: make(map[Handle]*Request)}
}

func (r *Registry) register(req *Request) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.live[r.next] = req
	return r.next
}

// Validate resolves h to a live request.
func (r *Registry) Validate(h Handle) (*Request, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.live[h]
	return req, ok
}

func (r *Registry) deregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, h)
}

// Len returns the number of live requests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Handles returns the live handles in ascending order.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	handles := make([]Handle, 0, len(r.live))
	for h := range r.live {
		handles = append(handles, h)
	}
	r.mu.RUnlock()
	slices.Sort(handles)
	return handles
}
