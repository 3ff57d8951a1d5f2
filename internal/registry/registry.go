// Package registry owns the in-memory collection of documents and their lifecycle.
//
// The Registry is the single writer for document state: every mutation goes through
// its methods, and observers receive immutable snapshots.
package registry

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/sagar-developer08/idp/internal/domain/document"
	"github.com/sagar-developer08/idp/internal/normalize"
)

// DefaultMaxIncrement bounds a single simulated progress step, in percentage points.
const DefaultMaxIncrement = 15

// Registry is the authoritative client-side document collection.
type Registry struct {
	mu   sync.Mutex
	docs []document.Document
	seq  uint64

	// sessionNew holds server ids of documents uploaded in this session.
	sessionNew map[string]struct{}

	maxIncrement int
	intn         func(n int) int
	now          func() time.Time

	subs    map[int]chan Snapshot
	nextSub int
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxIncrement sets the upper bound of a simulated progress step (1..15).
func WithMaxIncrement(n int) Option {
	return func(r *Registry) {
		if n >= 1 && n <= DefaultMaxIncrement {
			r.maxIncrement = n
		}
	}
}

// WithRand overrides the random source used by TickProgress. intn must return a value in [0,n).
func WithRand(intn func(n int) int) Option {
	return func(r *Registry) { r.intn = intn }
}

// WithClock overrides the clock used for pending uploads.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		sessionNew:   make(map[string]struct{}),
		maxIncrement: DefaultMaxIncrement,
		intn:         rand.IntN,
		now:          time.Now,
		subs:         make(map[int]chan Snapshot),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// AddPending appends one Uploading document per file, in submission order, and returns their ids.
func (r *Registry) AddPending(files []document.File) []string {
	if len(files) == 0 {
		return []string{}
	}

	r.mu.Lock()
	now := r.now()
	ids := make([]string, 0, len(files))
	for _, f := range files {
		r.seq++
		id := fmt.Sprintf("local-%d-%d", now.UnixNano(), r.seq)
		r.docs = append(r.docs, document.Document{
			ID:                   id,
			Name:                 f.Name,
			Size:                 f.Size,
			UploadedAt:           now,
			Status:               document.StatusUploading,
			Progress:             0,
			ExtractionAccuracy:   normalize.DefaultAccuracy,
			SegmentationAccuracy: normalize.DefaultAccuracy,
			IsNew:                true,
			Source:               document.SourceLocal,
		})
		ids = append(ids, id)
	}
	r.publishLocked()
	r.mu.Unlock()
	return ids
}

// ReplaceAllFromServer replaces the registry contents with a full listing response.
// On a malformed response the registry is left untouched.
func (r *Registry) ReplaceAllFromServer(raw []byte) error {
	docs, err := normalize.DocumentList(raw)
	if err != nil {
		return fmt.Errorf("normalize document list: %w", err)
	}
	r.Replace(docs)
	return nil
}

// Replace overwrites the registry with server-confirmed documents. Server state always
// wins over simulated progress. A server document is marked new when it was uploaded in
// this session, which is detected by a pending local entry with the same name.
func (r *Registry) Replace(docs []document.Document) {
	r.mu.Lock()
	pendingNames := make(map[string]int)
	for i := range r.docs {
		if !r.docs[i].HasServerID() {
			pendingNames[r.docs[i].Name]++
		}
	}

	next := make([]document.Document, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			continue
		}
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}

		d.Source = document.SourceServer
		key := d.ServerID
		if key == "" {
			key = d.ID
		}
		if _, known := r.sessionNew[key]; !known && !r.knownLocked(key) {
			for _, name := range []string{d.Name, d.DisplayName()} {
				if pendingNames[name] > 0 {
					pendingNames[name]--
					r.sessionNew[key] = struct{}{}
					break
				}
			}
		}
		_, d.IsNew = r.sessionNew[key]
		next = append(next, d)
	}
	r.docs = next
	r.publishLocked()
	r.mu.Unlock()
}

// knownLocked reports whether a server id was already present before this replace.
func (r *Registry) knownLocked(serverID string) bool {
	for i := range r.docs {
		if r.docs[i].ServerID == serverID {
			return true
		}
	}
	return false
}

// MarkNew flags server ids as uploaded in this session.
func (r *Registry) MarkNew(serverIDs ...string) {
	r.mu.Lock()
	changed := false
	for _, id := range serverIDs {
		if id == "" {
			continue
		}
		r.sessionNew[id] = struct{}{}
		for i := range r.docs {
			if r.docs[i].ServerID == id && !r.docs[i].IsNew {
				r.docs[i].IsNew = true
				changed = true
			}
		}
	}
	if changed {
		r.publishLocked()
	}
	r.mu.Unlock()
}

// Remove deletes a single document. It reports whether the id was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	i := slices.IndexFunc(r.docs, func(d document.Document) bool { return d.ID == id })
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	r.docs = slices.Delete(r.docs, i, i+1)
	r.publishLocked()
	r.mu.Unlock()
	return true
}

// Clear empties the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.docs = nil
	r.publishLocked()
	r.mu.Unlock()
}

// TickProgress advances every incomplete document by a random step of 1..maxIncrement
// points, clamped to 100. A document reaching 100 becomes Complete; others become
// Processing. Progress never decreases and Complete documents are never touched.
// It reports how many documents were advanced.
func (r *Registry) TickProgress() int {
	r.mu.Lock()
	advanced := 0
	for i := range r.docs {
		d := &r.docs[i]
		if d.Progress >= document.MaxProgress || d.Status == document.StatusComplete {
			continue
		}
		step := 1 + r.intn(r.maxIncrement)
		d.Progress = min(d.Progress+step, document.MaxProgress)
		if d.Progress == document.MaxProgress {
			d.Status = document.StatusComplete
		} else if d.Status.Rank() < document.StatusProcessing.Rank() {
			d.Status = document.StatusProcessing
		}
		d.Source = document.SourceSimulated
		advanced++
	}
	if advanced > 0 {
		r.publishLocked()
	}
	r.mu.Unlock()
	return advanced
}

// Documents returns a copy of all documents in registry order.
func (r *Registry) Documents() []document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.docs)
}

// Get returns the document with id.
func (r *Registry) Get(id string) (document.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.ID == id {
			return d, true
		}
	}
	return document.Document{}, false
}

// FindByServerID returns the document the backend knows as serverID.
func (r *Registry) FindByServerID(serverID string) (document.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.ServerID != "" && d.ServerID == serverID {
			return d, true
		}
	}
	return document.Document{}, false
}

// Total returns the number of documents.
func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

// NewlyAddedCount returns the number of documents created in this session.
func (r *Registry) NewlyAddedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return newlyAdded(r.docs)
}

// OverallProgress returns the mean progress rounded to the nearest integer, 0 when empty.
func (r *Registry) OverallProgress() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return overallProgress(r.docs)
}

// CountByStatus returns the number of documents per status.
func (r *Registry) CountByStatus() map[document.Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return countByStatus(r.docs)
}

func newlyAdded(docs []document.Document) int {
	n := 0
	for _, d := range docs {
		if d.IsNew {
			n++
		}
	}
	return n
}

func overallProgress(docs []document.Document) int {
	if len(docs) == 0 {
		return 0
	}
	sum := 0
	for _, d := range docs {
		sum += d.Progress
	}
	return int(math.Round(float64(sum) / float64(len(docs))))
}

func countByStatus(docs []document.Document) map[document.Status]int {
	m := map[document.Status]int{
		document.StatusUploading:  0,
		document.StatusProcessing: 0,
		document.StatusComplete:   0,
	}
	for _, d := range docs {
		m[d.Status]++
	}
	return m
}
