package wizard

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_MutateCreatesAndDeletes(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()

	s.Mutate("g1", "u1", func(sess *Session) *Session {
		if sess != nil {
			t.Fatalf("expected no prior session")
		}
		return &Session{GuildID: "g1", UserID: "u1", Step: StepWelcome, Draft: map[string]string{}, CreatedAt: now, LastTouchedAt: now}
	})
	if s.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", s.Len())
	}

	s.Mutate("g1", "u1", func(sess *Session) *Session {
		if sess == nil {
			t.Fatalf("expected live session")
		}
		return nil // delete
	})
	if s.Len() != 0 {
		t.Fatalf("returning nil must delete the session, got %d", s.Len())
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	mk := func(g, u string) {
		s.Mutate(g, u, func(*Session) *Session {
			return &Session{GuildID: g, UserID: u, Draft: map[string]string{}, CreatedAt: now, LastTouchedAt: now}
		})
	}
	mk("g1", "u1")
	mk("g1", "u2")
	mk("g2", "u1")
	if s.Len() != 3 {
		t.Fatalf("expected 3 distinct sessions, got %d", s.Len())
	}
}

func TestMemoryStore_MutationsSerializePerKey(t *testing.T) {
	s := NewMemoryStore()
	s.Mutate("g1", "u1", func(*Session) *Session {
		return &Session{GuildID: "g1", UserID: "u1", Draft: map[string]string{"n": "0"}}
	})

	// Concurrent read-modify-write increments; serialization means none are
	// lost.
	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Mutate("g1", "u1", func(sess *Session) *Session {
				v := sess.Draft["n"]
				sess.Draft["n"] = v + "x"
				return sess
			})
		}()
	}
	wg.Wait()

	var got string
	s.Mutate("g1", "u1", func(sess *Session) *Session {
		got = sess.Draft["n"]
		return sess
	})
	if len(got) != n+1 {
		t.Fatalf("lost updates: draft length %d, want %d", len(got), n+1)
	}
}

func TestMemoryStore_SweepRemovesIdleOnly(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	s.Mutate("g1", "idle", func(*Session) *Session {
		return &Session{GuildID: "g1", UserID: "idle", Draft: map[string]string{}, LastTouchedAt: base}
	})
	s.Mutate("g1", "active", func(*Session) *Session {
		return &Session{GuildID: "g1", UserID: "active", Draft: map[string]string{}, LastTouchedAt: base.Add(20 * time.Minute)}
	})

	removed := s.Sweep(base.Add(31*time.Minute), 30*time.Minute)
	if removed != 1 {
		t.Fatalf("expected 1 reaped session, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("active session must survive, got %d sessions", s.Len())
	}
	s.Mutate("g1", "active", func(sess *Session) *Session {
		if sess == nil {
			t.Fatalf("wrong session reaped")
		}
		return sess
	})
}

func TestSession_SnapshotIsDeepCopy(t *testing.T) {
	orig := &Session{
		GuildID:     "g1",
		UserID:      "u1",
		Step:        StepChannels,
		Draft:       map[string]string{"k": "v"},
		Breadcrumbs: []Step{StepWelcome},
	}
	snap := orig.snapshot()

	snap.Draft["k"] = "changed"
	snap.Breadcrumbs[0] = StepReview

	if orig.Draft["k"] != "v" {
		t.Fatalf("snapshot draft must not alias the original")
	}
	if orig.Breadcrumbs[0] != StepWelcome {
		t.Fatalf("snapshot breadcrumbs must not alias the original")
	}
}
