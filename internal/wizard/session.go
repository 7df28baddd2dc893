// Package wizard implements multi-step configuration flows driven by
// successive edited messages. Gateway interactions are stateless
// request/response pairs, so "where was this user" is reconstructed from an
// in-memory session table keyed by (guild, user); the collected draft is
// persisted in a single write only at confirmation time.
package wizard

import (
	"sync"
	"time"
)

// Session is the mutable draft record for one in-progress wizard.
// At most one session exists per (guild, user) key; starting a wizard again
// overwrites any prior session outright.
type Session struct {
	GuildID string
	UserID  string

	// Step is the current position in the flow.
	Step Step
	// Draft holds the partially collected fields, keyed by field name.
	Draft map[string]string
	// Breadcrumbs records the path of steps taken forward, so Back can
	// return to the correct origin even after branching edits.
	Breadcrumbs []Step

	CreatedAt     time.Time
	LastTouchedAt time.Time
}

// snapshot returns a copy safe to render outside the session lock.
func (s *Session) snapshot() *Session {
	cp := *s
	cp.Draft = make(map[string]string, len(s.Draft))
	for k, v := range s.Draft {
		cp.Draft[k] = v
	}
	cp.Breadcrumbs = append([]Step(nil), s.Breadcrumbs...)
	return &cp
}

type sessionKey struct {
	guildID string
	userID  string
}

// Store is the session-store abstraction: ephemeral per-user draft state
// with TTL cleanup, independent of any storage technology. The in-memory
// implementation below is swappable for a shared cache if the process is
// ever scaled out.
type Store interface {
	// Mutate runs fn on the session for the key (nil when absent) while
	// holding that key's lock, serializing concurrent interactions for the
	// same session. fn returns the session to keep, or nil to delete it.
	Mutate(guildID, userID string, fn func(*Session) *Session)
	// Sweep deletes sessions idle longer than ttl and reports how many.
	Sweep(now time.Time, ttl time.Duration) int
	// Len returns the number of live sessions.
	Len() int
}

// MemoryStore is the process-local Store used by a single-instance bot.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
	locks    map[sessionKey]*sync.Mutex
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[sessionKey]*Session),
		locks:    make(map[sessionKey]*sync.Mutex),
	}
}

// keyLock returns the per-key mutex, creating it on first use. Holding a
// per-key lock rather than the store lock keeps confirm-time persistence
// from blocking unrelated sessions.
func (m *MemoryStore) keyLock(k sessionKey) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[k]
	if !ok {
		l = &sync.Mutex{}
		m.locks[k] = l
	}
	return l
}

// Mutate implements Store.
func (m *MemoryStore) Mutate(guildID, userID string, fn func(*Session) *Session) {
	k := sessionKey{guildID: guildID, userID: userID}
	l := m.keyLock(k)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	sess := m.sessions[k]
	m.mu.Unlock()

	next := fn(sess)

	m.mu.Lock()
	if next == nil {
		delete(m.sessions, k)
	} else {
		m.sessions[k] = next
	}
	m.mu.Unlock()
}

// Sweep implements Store.
func (m *MemoryStore) Sweep(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, s := range m.sessions {
		if now.Sub(s.LastTouchedAt) > ttl {
			delete(m.sessions, k)
			delete(m.locks, k)
			removed++
		}
	}
	return removed
}

// Len implements Store.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
