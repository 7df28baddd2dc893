// This file implements the interaction dedup guard: an in-memory set of
// in-flight interaction ids with a TTL sweep. The gateway delivers events
// at-least-once under reconnect/replay; the guard turns that into
// at-most-once handling per interaction id.
package dispatch

import (
	"sync"
	"time"
)

// guardEntry is the bookkeeping record for one in-flight interaction.
type guardEntry struct {
	startedAt time.Time
	routeKey  string
	userID    string
}

// Guard tracks in-flight interaction ids. An id is present for at most TTL;
// while present, a duplicate delivery of the same id is dropped.
type Guard struct {
	// TTL bounds how long an entry may linger when MarkComplete is never
	// reached (e.g. a crash mid-handler). Values <= 0 default to 15s.
	TTL time.Duration

	mu      sync.Mutex
	entries map[string]guardEntry

	// clock is a test seam; defaults to time.Now.
	clock func() time.Time
}

// NewGuard returns a Guard with the given TTL (<= 0 defaults to 15s).
func NewGuard(ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &Guard{
		TTL:     ttl,
		entries: make(map[string]guardEntry),
		clock:   time.Now,
	}
}

// ShouldProcess reports whether the interaction id should be handled.
// The first call for an id marks it in-flight and returns true; subsequent
// calls before MarkComplete return false and have no side effects.
func (g *Guard) ShouldProcess(id, routeKey, userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, inFlight := g.entries[id]; inFlight {
		return false
	}
	g.entries[id] = guardEntry{
		startedAt: g.clock(),
		routeKey:  routeKey,
		userID:    userID,
	}
	return true
}

// MarkComplete releases the guard entry for id. It must run on every exit
// path of a handler, success or error, so duplicates of a finished
// interaction are governed by the gateway's own replay window rather than
// staying blocked forever.
func (g *Guard) MarkComplete(id string) {
	g.mu.Lock()
	delete(g.entries, id)
	g.mu.Unlock()
}

// Sweep removes entries older than the TTL and returns how many were
// dropped. It bounds memory when MarkComplete was missed.
func (g *Guard) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for id, e := range g.entries {
		if now.Sub(e.startedAt) > g.TTL {
			delete(g.entries, id)
			removed++
		}
	}
	return removed
}

// InFlight returns the number of interactions currently marked in-flight.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
