package dispatch

import (
	"context"
	"testing"
)

func named(id string, hits *[]string) HandlerFunc {
	return func(context.Context, *Interaction, Responder) error {
		*hits = append(*hits, id)
		return nil
	}
}

func TestRouter_Route_LongestPrefixWins(t *testing.T) {
	r := NewRouter()
	var hits []string
	r.Register("ticket", named("command", &hits))
	r.Register("ticket_close_btn", named("close", &hits))
	r.Register("ticket_close_confirm", named("confirm", &hits))

	cases := []struct {
		key  string
		want string
	}{
		{"ticket", "command"},
		{"ticket_close_btn", "close"},
		{"ticket_close_confirm", "confirm"},
		{"ticket_close_confirm:123", "confirm"},
	}
	for _, tc := range cases {
		h, ok := r.Route(tc.key)
		if !ok {
			t.Fatalf("Route(%q): no match", tc.key)
		}
		hits = hits[:0]
		_ = h(context.Background(), nil, nil)
		if len(hits) != 1 || hits[0] != tc.want {
			t.Errorf("Route(%q) hit %v, want %q", tc.key, hits, tc.want)
		}
	}
}

func TestRouter_Route_MissReturnsFalse(t *testing.T) {
	r := NewRouter()
	var hits []string
	r.Register("giveaway_enter", named("enter", &hits))

	if _, ok := r.Route("giveaway"); ok {
		t.Fatalf("a key shorter than every prefix must not match")
	}
	if _, ok := r.Route("unknown_button"); ok {
		t.Fatalf("unregistered key must not match")
	}
}

func TestRouter_Register_ReplacesSamePrefix(t *testing.T) {
	r := NewRouter()
	var hits []string
	r.Register("rob_confirm", named("first", &hits))
	r.Register("rob_confirm", named("second", &hits))

	h, ok := r.Route("rob_confirm:42")
	if !ok {
		t.Fatalf("expected a match")
	}
	_ = h(context.Background(), nil, nil)
	if len(hits) != 1 || hits[0] != "second" {
		t.Fatalf("re-registration must replace the handler, hit %v", hits)
	}
}
