package dispatch

import (
	"sync"
	"testing"
	"time"
)

func TestGuard_ShouldProcess_DropsDuplicatesUntilComplete(t *testing.T) {
	g := NewGuard(15 * time.Second)

	if !g.ShouldProcess("abc", "ticket", "u1") {
		t.Fatalf("first delivery must be processed")
	}
	if g.ShouldProcess("abc", "ticket", "u1") {
		t.Fatalf("duplicate delivery must be dropped while in-flight")
	}
	if g.InFlight() != 1 {
		t.Fatalf("expected 1 in-flight entry, got %d", g.InFlight())
	}

	g.MarkComplete("abc")
	if g.InFlight() != 0 {
		t.Fatalf("MarkComplete must release the entry")
	}
	if !g.ShouldProcess("abc", "ticket", "u1") {
		t.Fatalf("completed id may be processed again on a later delivery")
	}
}

func TestGuard_ShouldProcess_ConcurrentDeliveriesAdmitOne(t *testing.T) {
	g := NewGuard(15 * time.Second)

	const n = 32
	var wg sync.WaitGroup
	admitted := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.ShouldProcess("same-id", "route", "u1") {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	if count != 1 {
		t.Fatalf("exactly one concurrent delivery must win, got %d", count)
	}
}

func TestGuard_Sweep_RemovesOnlyExpired(t *testing.T) {
	g := NewGuard(10 * time.Second)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	g.clock = func() time.Time { return now }

	g.ShouldProcess("old", "route", "u1")
	now = base.Add(8 * time.Second)
	g.ShouldProcess("fresh", "route", "u2")

	removed := g.Sweep(base.Add(11 * time.Second))
	if removed != 1 {
		t.Fatalf("expected 1 expired entry, got %d", removed)
	}
	if g.ShouldProcess("fresh", "route", "u2") {
		t.Fatalf("unexpired entry must survive the sweep")
	}
	if !g.ShouldProcess("old", "route", "u1") {
		t.Fatalf("swept entry must be admittable again")
	}
}

func TestNewGuard_DefaultsNonPositiveTTL(t *testing.T) {
	g := NewGuard(0)
	if g.TTL != 15*time.Second {
		t.Fatalf("expected default 15s TTL, got %v", g.TTL)
	}
}
