// This file implements data-driven routing from interaction route keys
// (command names and component custom ids) to handlers. Prefix entries are
// checked most-specific first so overlapping namespaces such as "ticket"
// and "ticket_close" resolve deterministically.
package dispatch

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// HandlerFunc handles one routed interaction. Returned errors are classified
// by the dispatcher; handlers must not re-throw past it.
type HandlerFunc func(ctx context.Context, ic *Interaction, rsp Responder) error

type routeEntry struct {
	prefix  string
	handler HandlerFunc
}

// Router maps route-key prefixes to handlers. Registration order does not
// matter: lookup always prefers the longest matching prefix.
type Router struct {
	mu      sync.RWMutex
	entries []routeEntry
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{}
}

// Register binds a handler to a route-key prefix. Registering the same
// prefix twice replaces the earlier handler.
func (r *Router) Register(prefix string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].prefix == prefix {
			r.entries[i].handler = h
			return
		}
	}
	r.entries = append(r.entries, routeEntry{prefix: prefix, handler: h})
	// Longest prefix first; ties broken lexicographically for determinism.
	sort.Slice(r.entries, func(i, j int) bool {
		if len(r.entries[i].prefix) != len(r.entries[j].prefix) {
			return len(r.entries[i].prefix) > len(r.entries[j].prefix)
		}
		return r.entries[i].prefix < r.entries[j].prefix
	})
}

// Route selects the handler whose prefix is the longest match for key.
// The second return value is false when no prefix matches.
func (r *Router) Route(key string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if strings.HasPrefix(key, e.prefix) {
			return e.handler, true
		}
	}
	return nil, false
}
