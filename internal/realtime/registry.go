// Package realtime tracks live client connections and fans task change
// notifications out to them.
//
// The registry maps an identity to the set of handles currently open for
// it; one account may hold several at once (a phone and a laptop, say).
// Delivery is best effort: a handle that fails to accept a payload is
// dropped from the set, never retried.
package realtime

import (
	"sync"
)

// Conn is one live client handle. Implementations must make Send safe
// for concurrent use.
type Conn interface {
	// ID uniquely identifies this handle within the registry.
	ID() string
	// Send delivers one payload; an error marks the handle dead.
	Send(payload []byte) error
	// Close releases the handle.
	Close() error
}

// Registry maps user identities to their live connection handles.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]map[string]Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]map[string]Conn)}
}

// Add registers a handle for the given identity, creating the identity's
// set on first use.
func (r *Registry) Add(userID int64, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]Conn)
		r.conns[userID] = set
	}
	set[c.ID()] = c
}

// Remove drops a handle. When the identity's last handle goes, the
// identity's entry goes with it.
func (r *Registry) Remove(userID int64, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// Connections returns the live handles for an identity. The returned
// slice is a snapshot; delivery happens outside the lock.
func (r *Registry) Connections(userID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// All returns every live handle paired with its owner.
func (r *Registry) All() map[int64][]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64][]Conn, len(r.conns))
	for uid, set := range r.conns {
		conns := make([]Conn, 0, len(set))
		for _, c := range set {
			conns = append(conns, c)
		}
		out[uid] = conns
	}
	return out
}

// Count reports the number of live handles across all identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.conns {
		n += len(set)
	}
	return n
}
