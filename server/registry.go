package server

import (
	"fmt"
	"sync"
	"sync/atomic"

	"relay/protocol"
)

// Conn is the send side of one peer connection. Enqueue must never
// block; it reports false when the frame was dropped because the
// connection is closing or its queue is full.
type Conn interface {
	Enqueue(frame []byte) bool
	Close()
}

// Session is the server's record of one connected peer. lastState and
// lastSeq are guarded by the owning Registry's lock.
type Session struct {
	ID   protocol.PeerID
	Conn Conn

	lastState protocol.PeerState
	lastSeq   uint64
}

// Registry owns the id->Session map. It is the only shared mutable state
// on the server; every critical section is O(1) insert/remove or an O(n)
// copy-out, and no I/O happens under the lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[protocol.PeerID]*Session
	nextID   uint64
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[protocol.PeerID]*Session)}
}

// AllocateID returns a fresh, strictly increasing peer id.
func (r *Registry) AllocateID() protocol.PeerID {
	return protocol.PeerID(atomic.AddUint64(&r.nextID, 1))
}

// Put registers a session. A live id registered twice means the identity
// assignment invariant is broken, which is a logic bug, so it panics.
func (r *Registry) Put(id protocol.PeerID, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		panic(fmt.Sprintf("registry: duplicate registration of live session %d", id))
	}
	r.sessions[id] = s
}

// Get looks up a session by id.
func (r *Registry) Get(id protocol.PeerID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops a session. Idempotent: close and error firing for the same
// connection dedup here, and only the first call reports true.
func (r *Registry) Remove(id protocol.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// UpdateState overwrites a session's last reported state, last-write-wins.
// Updates behind the session's last applied seq are refused (applied is
// false with stale true); seq 0 always applies, preserving the in-order
// transport assumption for clients that do not number their updates.
func (r *Registry) UpdateState(id protocol.PeerID, state protocol.PeerState, seq uint64) (applied, stale bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, false
	}
	if seq != 0 && seq <= s.lastSeq {
		return false, true
	}
	s.lastState = state
	if seq != 0 {
		s.lastSeq = seq
	}
	return true, false
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns a point-in-time copy of every session's state. Callers
// never observe mutations after it returns.
func (r *Registry) Snapshot() map[protocol.PeerID]protocol.PeerState {
	states, _ := r.SnapshotWithConns()
	return states
}

// SnapshotWithConns returns the state copy plus the connections that were
// registered at the same instant, so a broadcast tick writes to exactly
// the peers whose ids appear in its frame.
func (r *Registry) SnapshotWithConns() (map[protocol.PeerID]protocol.PeerState, []Conn) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make(map[protocol.PeerID]protocol.PeerState, len(r.sessions))
	conns := make([]Conn, 0, len(r.sessions))
	for id, s := range r.sessions {
		states[id] = s.lastState
		conns = append(conns, s.Conn)
	}
	return states, conns
}
