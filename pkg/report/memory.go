package report

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vnykmshr/admit/pkg/admission/guard"
)

// Entry is one snapshot held by a MemorySink.
type Entry struct {
	At    time.Time
	Stats []guard.Stats
}

// MemorySink keeps recent snapshots in memory. Useful for tests and for
// serving the latest report over HTTP.
type MemorySink struct {
	mu      sync.Mutex
	history []Entry
	limit   int
}

// NewMemorySink keeps at most limit snapshots; limit <= 0 keeps only the latest.
func NewMemorySink(limit int) *MemorySink {
	if limit <= 0 {
		limit = 1
	}
	return &MemorySink{limit: limit}
}

// Write appends a copy of stats, dropping the oldest entry when full.
func (s *MemorySink) Write(ctx context.Context, at time.Time, stats []guard.Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]guard.Stats, len(stats))
	copy(cp, stats)
	sortStats(cp)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Entry{At: at, Stats: cp})
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
	return nil
}

// Latest returns the most recent snapshot.
func (s *MemorySink) Latest() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return Entry{}, false
	}
	return s.history[len(s.history)-1], true
}

// History returns the retained snapshots, oldest first.
func (s *MemorySink) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.history...)
}

// Len returns the number of retained snapshots.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func sortStats(stats []guard.Stats) {
	sort.Slice(stats, func(i, j int) bool { return stats[i].Key < stats[j].Key })
}
