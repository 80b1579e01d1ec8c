package guard

import (
	"sort"
)

// Stats is a point-in-time view of one slot.
type Stats struct {
	Key     string
	Budget  int
	Held    int
	Waiting int
	// Peak is the highest Held value observed since the slot was created.
	Peak int

	Admitted   int64
	Rejected   int64
	Violations int64
}

// Available returns the number of free permits.
func (s Stats) Available() int {
	return s.Budget - s.Held
}

// Stats returns the current state of key.
func (g *Guard) Stats(key string) (Stats, bool) {
	s, ok := g.lookup(key)
	if !ok {
		return Stats{}, false
	}
	return s.stats(), true
}

// Snapshot returns the state of every registered key, sorted by key.
func (g *Guard) Snapshot() []Stats {
	var out []Stats
	g.slots.Range(func(_, v any) bool {
		out = append(out, v.(*slot).stats())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Keys returns the registered keys in sorted order.
func (g *Guard) Keys() []string {
	var keys []string
	g.slots.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered keys.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}
