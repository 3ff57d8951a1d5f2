package detail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sagar-developer08/idp/internal/domain"
	domdoc "github.com/sagar-developer08/idp/internal/domain/document"
)

// --- Mocks ---

type fetchResult struct {
	raw []byte
	err error
}

// gatedFetcher blocks each fetch until the test releases it.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   map[string]chan fetchResult
	started chan string
}

func newGatedFetcher(ids ...string) *gatedFetcher {
	f := &gatedFetcher{gates: map[string]chan fetchResult{}, started: make(chan string, len(ids))}
	for _, id := range ids {
		f.gates[id] = make(chan fetchResult, 1)
	}
	return f
}

func (f *gatedFetcher) FetchDetail(ctx context.Context, serverID string) ([]byte, error) {
	f.mu.Lock()
	gate := f.gates[serverID]
	f.mu.Unlock()
	f.started <- serverID

	select {
	case r := <-gate:
		return r.raw, r.err
	case <-ctx.Done():
		return nil, domain.NewTransportError("document detail", ctx.Err())
	}
}

func (f *gatedFetcher) release(id string, raw string, err error) {
	f.gates[id] <- fetchResult{raw: []byte(raw), err: err}
}

type staticFetcher struct {
	raw   []byte
	err   error
	calls int
}

func (f *staticFetcher) FetchDetail(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.raw, f.err
}

// cachingFetcher records which path the controller used.
type cachingFetcher struct {
	cached   int
	uncached int
}

func (f *cachingFetcher) FetchDetail(_ context.Context, _ string) ([]byte, error) {
	f.cached++
	return []byte(`{"document_summary":"cached"}`), nil
}

func (f *cachingFetcher) FetchDetailUncached(_ context.Context, _ string) ([]byte, error) {
	f.uncached++
	return []byte(`{"document_summary":"fresh"}`), nil
}

func serverDoc(id string) domdoc.Document {
	return domdoc.Document{ID: id, ServerID: id, Name: id + ".pdf", ExtractionAccuracy: 100, SegmentationAccuracy: 100}
}

func TestSelect_Success(t *testing.T) {
	f := &staticFetcher{raw: []byte(`{"document_summary":"Quarterly invoice","segmentation_accuracy":0.9}`)}
	c := New(f)

	if err := c.Select(context.Background(), serverDoc("a")); err != nil {
		t.Fatalf("Select: %v", err)
	}
	st := c.State()
	if st.Loading || st.Err != nil || st.Detail == nil {
		t.Fatalf("state = %+v", st)
	}
	if st.Detail.Summary != "Quarterly invoice" {
		t.Errorf("summary = %q", st.Detail.Summary)
	}
	if st.Detail.SegmentationScore != 90 {
		t.Errorf("segmentation score = %v, want 90", st.Detail.SegmentationScore)
	}
}

func TestSelect_NoServerID(t *testing.T) {
	f := &staticFetcher{}
	c := New(f)

	err := c.Select(context.Background(), domdoc.Document{ID: "local-1"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	st := c.State()
	if st.Loading || st.Detail != nil || st.Err != nil {
		t.Errorf("state = %+v, want no detail", st)
	}
	if st.DocumentID != "local-1" {
		t.Errorf("document id = %q", st.DocumentID)
	}
	if f.calls != 0 {
		t.Error("fetch issued for document without server id")
	}
}

func TestSelect_Failures(t *testing.T) {
	tests := []struct {
		name string
		f    *staticFetcher
		want error
	}{
		{"transport", &staticFetcher{err: domain.NewTransportError("document detail", errors.New("refused"))}, domain.ErrTransport},
		{"malformed", &staticFetcher{raw: []byte(`[1,2]`)}, domain.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.f)
			err := c.Select(context.Background(), serverDoc("a"))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			st := c.State()
			if st.Loading || st.Detail != nil || !errors.Is(st.Err, tt.want) {
				t.Errorf("state = %+v", st)
			}
		})
	}
}

func TestSelect_LastSelectionWins(t *testing.T) {
	f := newGatedFetcher("a", "b")
	c := New(f)

	errA := make(chan error, 1)
	go func() { errA <- c.Select(context.Background(), serverDoc("a")) }()
	<-f.started

	errB := make(chan error, 1)
	go func() { errB <- c.Select(context.Background(), serverDoc("b")) }()
	<-f.started

	if st := c.State(); st.DocumentID != "b" || !st.Loading {
		t.Fatalf("state after selecting b = %+v", st)
	}

	f.release("b", `{"document_summary":"B summary"}`, nil)
	if err := <-errB; err != nil {
		t.Fatalf("select b: %v", err)
	}
	f.release("a", `{"document_summary":"A summary"}`, nil)
	if err := <-errA; err != nil {
		t.Fatalf("stale select a: %v", err)
	}

	st := c.State()
	if st.DocumentID != "b" || st.Detail == nil || st.Detail.Summary != "B summary" {
		t.Errorf("state = %+v, want b's detail", st)
	}
}

func TestSelect_StaleFailureIgnored(t *testing.T) {
	f := newGatedFetcher("a", "b")
	c := New(f)

	errA := make(chan error, 1)
	go func() { errA <- c.Select(context.Background(), serverDoc("a")) }()
	<-f.started
	errB := make(chan error, 1)
	go func() { errB <- c.Select(context.Background(), serverDoc("b")) }()
	<-f.started

	f.release("b", `{"document_summary":"B"}`, nil)
	<-errB
	f.release("a", "", domain.NewTransportError("document detail", errors.New("boom")))
	<-errA

	if st := c.State(); st.Err != nil || st.Detail == nil {
		t.Errorf("stale failure leaked into state: %+v", st)
	}
}

func TestSelect_Timeout(t *testing.T) {
	f := newGatedFetcher("a")
	c := New(f, WithTimeout(10*time.Millisecond))

	err := c.Select(context.Background(), serverDoc("a"))
	if !errors.Is(err, domain.ErrTransport) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want transport deadline", err)
	}
	if st := c.State(); st.Loading {
		t.Error("loading left true after timeout")
	}
}

func TestClear(t *testing.T) {
	f := newGatedFetcher("a")
	c := New(f)

	errA := make(chan error, 1)
	go func() { errA <- c.Select(context.Background(), serverDoc("a")) }()
	<-f.started
	c.Clear()
	f.release("a", `{"document_summary":"late"}`, nil)
	<-errA

	if st := c.State(); st.DocumentID != "" || st.Detail != nil {
		t.Errorf("state = %+v, want cleared", st)
	}
}

func TestBegin_OrderFixedBeforeFetch(t *testing.T) {
	f := &staticFetcher{raw: []byte(`{"document_summary":"any"}`)}
	c := New(f)

	fetchA := c.Begin(serverDoc("a"))
	fetchB := c.Begin(serverDoc("b"))

	if st := c.State(); st.DocumentID != "b" || !st.Loading {
		t.Fatalf("state after Begin = %+v", st)
	}
	if err := fetchB(context.Background()); err != nil {
		t.Fatalf("fetch b: %v", err)
	}
	// a started its fetch last but was selected first.
	if err := fetchA(context.Background()); err != nil {
		t.Fatalf("fetch a: %v", err)
	}
	if st := c.State(); st.DocumentID != "b" || st.Detail == nil {
		t.Errorf("state = %+v, want b committed", st)
	}
}

func TestSelect_OnlyFinalDocumentsUseCache(t *testing.T) {
	tests := []struct {
		name       string
		status     domdoc.Status
		source     domdoc.Source
		wantCached bool
	}{
		{"server complete", domdoc.StatusComplete, domdoc.SourceServer, true},
		{"server processing", domdoc.StatusProcessing, domdoc.SourceServer, false},
		{"simulated complete", domdoc.StatusComplete, domdoc.SourceSimulated, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &cachingFetcher{}
			c := New(f)
			doc := serverDoc("a")
			doc.Status = tt.status
			doc.Source = tt.source

			if err := c.Select(context.Background(), doc); err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got := f.cached == 1; got != tt.wantCached {
				t.Errorf("cached = %d, uncached = %d, want cached path %v", f.cached, f.uncached, tt.wantCached)
			}
			if f.cached+f.uncached != 1 {
				t.Errorf("fetches = %d, want 1", f.cached+f.uncached)
			}
		})
	}
}
