package registry

import (
	"slices"

	"github.com/sagar-developer08/idp/internal/domain/document"
)

// Snapshot is an immutable view of the registry with its derived aggregates.
type Snapshot struct {
	Documents       []document.Document     `json:"documents"`
	Total           int                     `json:"total"`
	NewlyAdded      int                     `json:"newly_added"`
	OverallProgress int                     `json:"overall_progress"`
	CountByStatus   map[document.Status]int `json:"count_by_status"`
}

// StatusCounts returns CountByStatus keyed by the plain status name.
func (s Snapshot) StatusCounts() map[string]int {
	out := make(map[string]int, len(s.CountByStatus))
	for st, n := range s.CountByStatus {
		out[string(st)] = n
	}
	return out
}

// Snapshot returns the current state with freshly computed aggregates.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() Snapshot {
	docs := slices.Clone(r.docs)
	if docs == nil {
		docs = []document.Document{}
	}
	return Snapshot{
		Documents:       docs,
		Total:           len(docs),
		NewlyAdded:      newlyAdded(docs),
		OverallProgress: overallProgress(docs),
		CountByStatus:   countByStatus(docs),
	}
}

// Subscribe returns a channel that receives a snapshot after every mutation, and a
// cancel func. Slow subscribers only see the latest snapshot.
func (r *Registry) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// publishLocked delivers the current state to every subscriber, replacing any
// undelivered snapshot. r.mu must be held, so subscribers see mutations in order.
func (r *Registry) publishLocked() {
	if len(r.subs) == 0 {
		return
	}
	snap := r.snapshotLocked()
	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
