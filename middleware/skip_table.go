package middleware

import "fmt"

// SkipTable is the declarative replacement for per-handler "no auth"
// annotations: an explicit set of route patterns, built at startup, that the
// gate passes through without evaluation.
type SkipTable map[string]struct{}

// NewSkipTable builds a table from method/route-pattern pairs, e.g.
// NewSkipTable("POST /auth/login", "GET /healthz").
func NewSkipTable(routes ...string) SkipTable {
	t := make(SkipTable, len(routes))
	for _, r := range routes {
		t[r] = struct{}{}
	}
	return t
}

// Add marks a route as unauthenticated.
func (t SkipTable) Add(method, pattern string) {
	t[fmt.Sprintf("%s %s", method, pattern)] = struct{}{}
}

// Skip reports whether the matched route bypasses authentication.
func (t SkipTable) Skip(method, pattern string) bool {
	_, ok := t[fmt.Sprintf("%s %s", method, pattern)]
	return ok
}
