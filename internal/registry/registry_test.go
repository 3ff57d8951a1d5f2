package registry

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sagar-developer08/idp/internal/domain/document"
)

func files(names ...string) []document.File {
	out := make([]document.File, 0, len(names))
	for _, n := range names {
		out = append(out, document.File{Name: n, Size: 1024})
	}
	return out
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestAddPending(t *testing.T) {
	r := New(WithClock(fixedClock()))

	ids := r.AddPending(files("a.pdf", "b.png"))
	if len(ids) != 2 {
		t.Fatalf("ids = %d, want 2", len(ids))
	}
	if ids[0] == ids[1] {
		t.Fatalf("ids must be unique, got %q twice", ids[0])
	}
	for _, id := range ids {
		if !strings.HasPrefix(id, "local-") {
			t.Errorf("id %q: want local- prefix", id)
		}
	}

	docs := r.Documents()
	if docs[0].Name != "a.pdf" || docs[1].Name != "b.png" {
		t.Errorf("order = %q,%q", docs[0].Name, docs[1].Name)
	}
	for _, d := range docs {
		if d.Status != document.StatusUploading || d.Progress != 0 {
			t.Errorf("%s: status=%s progress=%d", d.Name, d.Status, d.Progress)
		}
		if !d.IsNew || d.Source != document.SourceLocal || d.HasServerID() {
			t.Errorf("%s: isNew=%v source=%s serverID=%q", d.Name, d.IsNew, d.Source, d.ServerID)
		}
		if d.ExtractionAccuracy != 100 || d.SegmentationAccuracy != 100 {
			t.Errorf("%s: accuracies = %v/%v", d.Name, d.ExtractionAccuracy, d.SegmentationAccuracy)
		}
	}
	if got := r.NewlyAddedCount(); got != 2 {
		t.Errorf("NewlyAddedCount = %d, want 2", got)
	}
}

func TestAddPending_Empty(t *testing.T) {
	r := New()
	if ids := r.AddPending(nil); len(ids) != 0 {
		t.Errorf("ids = %v, want empty", ids)
	}
	if r.Total() != 0 {
		t.Errorf("Total = %d", r.Total())
	}
}

func TestAddPending_UniqueAcrossCalls(t *testing.T) {
	r := New(WithClock(fixedClock()))
	seen := map[string]bool{}
	for range 50 {
		for _, id := range r.AddPending(files("x.pdf")) {
			if seen[id] {
				t.Fatalf("duplicate id %q", id)
			}
			seen[id] = true
		}
	}
}

func TestTickProgress_Monotonic(t *testing.T) {
	r := New()
	r.AddPending(files("a.pdf", "b.pdf", "c.pdf"))

	prev := map[string]int{}
	for range 40 {
		r.TickProgress()
		for _, d := range r.Documents() {
			if d.Progress < prev[d.ID] {
				t.Fatalf("%s progress decreased %d -> %d", d.ID, prev[d.ID], d.Progress)
			}
			if d.Progress > 100 {
				t.Fatalf("%s progress %d > 100", d.ID, d.Progress)
			}
			if d.Progress-prev[d.ID] > DefaultMaxIncrement {
				t.Fatalf("%s advanced by %d", d.ID, d.Progress-prev[d.ID])
			}
			if d.Progress == 100 && d.Status != document.StatusComplete {
				t.Fatalf("%s at 100 with status %s", d.ID, d.Status)
			}
			if d.Progress < 100 && d.Status != document.StatusProcessing {
				t.Fatalf("%s at %d with status %s", d.ID, d.Progress, d.Status)
			}
			prev[d.ID] = d.Progress
		}
	}
	// 40 ticks with a minimum step of 1 is not enough to guarantee completion,
	// so drive to completion deterministically.
	r2 := New(WithRand(func(n int) int { return n - 1 }))
	r2.AddPending(files("a.pdf"))
	for range 7 {
		r2.TickProgress()
	}
	d := r2.Documents()[0]
	if d.Progress != 100 || d.Status != document.StatusComplete {
		t.Fatalf("progress=%d status=%s, want 100/complete", d.Progress, d.Status)
	}
	if n := r2.TickProgress(); n != 0 {
		t.Errorf("tick on complete documents advanced %d", n)
	}
	if r2.Documents()[0].Progress != 100 {
		t.Error("complete document changed")
	}
}

func TestTickProgress_MinimumStep(t *testing.T) {
	r := New(WithRand(func(int) int { return 0 }))
	r.AddPending(files("a.pdf"))
	r.TickProgress()
	d := r.Documents()[0]
	if d.Progress != 1 {
		t.Errorf("progress = %d, want 1", d.Progress)
	}
	if d.Source != document.SourceSimulated {
		t.Errorf("source = %s", d.Source)
	}
}

func TestWithMaxIncrement_Bounds(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultMaxIncrement},
		{5, 5},
		{15, 15},
		{16, DefaultMaxIncrement},
	}
	for _, tt := range tests {
		r := New(WithMaxIncrement(tt.in))
		if r.maxIncrement != tt.want {
			t.Errorf("WithMaxIncrement(%d) = %d, want %d", tt.in, r.maxIncrement, tt.want)
		}
	}
}

func TestOverallProgress(t *testing.T) {
	r := New()
	if got := r.OverallProgress(); got != 0 {
		t.Errorf("empty = %d, want 0", got)
	}

	r.Replace([]document.Document{
		{ID: "1", ServerID: "1", Name: "a", Progress: 40, Status: document.StatusProcessing},
		{ID: "2", ServerID: "2", Name: "b", Progress: 60, Status: document.StatusProcessing},
	})
	if got := r.OverallProgress(); got != 50 {
		t.Errorf("40/60 = %d, want 50", got)
	}

	r.Replace([]document.Document{
		{ID: "1", ServerID: "1", Progress: 50},
		{ID: "2", ServerID: "2", Progress: 50},
		{ID: "3", ServerID: "3", Progress: 100},
	})
	if got := r.OverallProgress(); got != 67 {
		t.Errorf("50/50/100 = %d, want 67", got)
	}
}

func TestReplaceAllFromServer(t *testing.T) {
	r := New(WithClock(fixedClock()))
	r.AddPending(files("invoice.pdf"))

	raw := []byte(`{"documents":[
		{"document_id":"d1","document_name":"invoice.pdf","status_code":"PROCESSED"},
		{"document_id":"d2","document_name":"old.pdf","status_code":"UPLOADED"},
		{"document_id":"d1","document_name":"dup.pdf","status_code":"PROCESSED"}
	]}`)
	if err := r.ReplaceAllFromServer(raw); err != nil {
		t.Fatalf("ReplaceAllFromServer: %v", err)
	}

	docs := r.Documents()
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	if docs[0].ID != "d1" || docs[1].ID != "d2" {
		t.Errorf("ids = %s,%s", docs[0].ID, docs[1].ID)
	}
	for _, d := range docs {
		if d.Source != document.SourceServer {
			t.Errorf("%s source = %s", d.ID, d.Source)
		}
	}
	if !docs[0].IsNew {
		t.Error("uploaded document should stay new after replace")
	}
	if docs[1].IsNew {
		t.Error("pre-existing document must not be new")
	}

	// a second refresh keeps the session flag even without pending entries
	if err := r.ReplaceAllFromServer(raw); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if got := r.NewlyAddedCount(); got != 1 {
		t.Errorf("NewlyAddedCount = %d, want 1", got)
	}
}

func TestReplaceAllFromServer_Malformed(t *testing.T) {
	r := New()
	r.AddPending(files("a.pdf"))

	if err := r.ReplaceAllFromServer([]byte(`"nope"`)); err == nil {
		t.Fatal("expected error")
	}
	if r.Total() != 1 {
		t.Errorf("registry changed on malformed input: total=%d", r.Total())
	}
}

func TestReplace_OverwritesSimulatedProgress(t *testing.T) {
	r := New(WithRand(func(n int) int { return n - 1 }))
	r.Replace([]document.Document{{ID: "d1", ServerID: "d1", Status: document.StatusProcessing, Progress: 50}})
	r.TickProgress()
	if got := r.Documents()[0].Progress; got != 65 {
		t.Fatalf("progress = %d, want 65", got)
	}

	r.Replace([]document.Document{{ID: "d1", ServerID: "d1", Status: document.StatusProcessing, Progress: 50}})
	d := r.Documents()[0]
	if d.Progress != 50 || d.Source != document.SourceServer {
		t.Errorf("progress=%d source=%s, want 50/server", d.Progress, d.Source)
	}
}

func TestMarkNew(t *testing.T) {
	r := New()
	r.Replace([]document.Document{{ID: "d1", ServerID: "d1"}})
	if r.NewlyAddedCount() != 0 {
		t.Fatal("unexpected new document")
	}
	r.MarkNew("d1", "")
	if r.NewlyAddedCount() != 1 {
		t.Error("MarkNew did not flag document")
	}
}

func TestRemoveAndClear(t *testing.T) {
	r := New()
	ids := r.AddPending(files("a", "b", "c"))

	if !r.Remove(ids[1]) {
		t.Fatal("Remove returned false")
	}
	if r.Remove(ids[1]) {
		t.Error("second Remove returned true")
	}
	if r.Total() != 2 {
		t.Errorf("Total = %d, want 2", r.Total())
	}
	if _, ok := r.Get(ids[1]); ok {
		t.Error("removed document still present")
	}

	r.Clear()
	if r.Total() != 0 || r.OverallProgress() != 0 {
		t.Errorf("after Clear total=%d progress=%d", r.Total(), r.OverallProgress())
	}
}

func TestCountByStatus(t *testing.T) {
	r := New()
	r.Replace([]document.Document{
		{ID: "1", Status: document.StatusComplete},
		{ID: "2", Status: document.StatusProcessing},
		{ID: "3", Status: document.StatusComplete},
	})
	got := r.CountByStatus()
	if got[document.StatusComplete] != 2 || got[document.StatusProcessing] != 1 || got[document.StatusUploading] != 0 {
		t.Errorf("CountByStatus = %v", got)
	}
	if sc := r.Snapshot().StatusCounts(); sc["complete"] != 2 || sc["processing"] != 1 {
		t.Errorf("StatusCounts = %v", sc)
	}
}

func TestFindByServerID(t *testing.T) {
	r := New()
	r.AddPending(files("pending"))
	r2 := New()
	r2.Replace([]document.Document{{ID: "s1", ServerID: "s1", Name: "x"}})

	if _, ok := r.FindByServerID(""); ok {
		t.Error("empty server id must not match pending entries")
	}
	d, ok := r2.FindByServerID("s1")
	if !ok || d.Name != "x" {
		t.Errorf("FindByServerID = %+v, %v", d, ok)
	}
}

func TestSubscribe(t *testing.T) {
	r := New()
	ch, cancel := r.Subscribe()

	r.AddPending(files("a"))
	r.AddPending(files("b"))

	select {
	case snap := <-ch:
		if snap.Total != 2 {
			t.Errorf("latest snapshot total = %d, want 2", snap.Total)
		}
		if snap.NewlyAdded != 2 || snap.CountByStatus[document.StatusUploading] != 2 {
			t.Errorf("snapshot = %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	cancel()
	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}
	cancel()
	r.Clear()
}

func TestSubscribe_ConcurrentMutationsDeliverLatest(t *testing.T) {
	for round := range 200 {
		r := New()
		ids := r.AddPending(files(strings.Split(strings.Repeat("f,", 50), ",")[:50]...))
		ch, cancel := r.Subscribe()

		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.Remove(id)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.TickProgress()
		}()
		wg.Wait()

		select {
		case snap := <-ch:
			if snap.Total != r.Total() {
				t.Fatalf("round %d: last delivered total = %d, registry total = %d", round, snap.Total, r.Total())
			}
		default:
			t.Fatalf("round %d: no snapshot delivered", round)
		}
		cancel()
	}
}

func TestSnapshot_Immutable(t *testing.T) {
	r := New()
	r.AddPending(files("a"))
	snap := r.Snapshot()
	snap.Documents[0].Name = "mutated"
	if d := r.Documents()[0]; d.Name != "a" {
		t.Errorf("registry mutated through snapshot: %q", d.Name)
	}
}
