package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/langshake/shake-proof/internal/extract"
	"github.com/langshake/shake-proof/internal/fetch"
	"github.com/langshake/shake-proof/internal/integrity"
	"github.com/langshake/shake-proof/internal/metrics"
	"github.com/langshake/shake-proof/internal/model"
)

// testPolicy retries quickly so failure cases stay fast.
var testPolicy = fetch.RetryPolicy{MaxAttempts: 3, PerAttemptTimeout: time.Second, Delay: time.Millisecond}

func testClient() *fetch.Client {
	return fetch.NewClient(fetch.WithRetryPolicy(testPolicy))
}

// moduleBody encodes records followed by a checksum trailer. An empty
// checksum means "compute the correct one".
func moduleBody(t *testing.T, records []model.Record, checksum string) []byte {
	t.Helper()
	if checksum == "" {
		sum, err := integrity.ComputeChecksum(records)
		if err != nil {
			t.Fatalf("checksum: %v", err)
		}
		checksum = sum
	}
	doc := make([]any, 0, len(records)+1)
	for _, r := range records {
		doc = append(doc, r)
	}
	doc = append(doc, map[string]any{"checksum": checksum})
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

// site serves fixed bodies by path; unknown paths are 404.
type site struct {
	mu     sync.Mutex
	bodies map[string][]byte
	status map[string]int
	hits   map[string]int
	srv    *httptest.Server
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{bodies: map[string][]byte{}, status: map[string]int{}, hits: map[string]int{}}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		body, ok := s.bodies[r.URL.Path]
		code := s.status[r.URL.Path]
		s.mu.Unlock()

		if code != 0 {
			w.WriteHeader(code)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *site) set(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[path] = body
}

func (s *site) fail(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[path] = code
}

func (s *site) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func TestProcess(t *testing.T) {
	t.Parallel()

	t.Run("results follow index order", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(WithConcurrency(4))
		got := Process(context.Background(), bp, 10, func(_ context.Context, i int) int {
			// Later indexes finish first.
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			return i * i
		})
		for i, v := range got {
			if v != i*i {
				t.Errorf("slot %d: expected %d, got %d", i, i*i, v)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var maxSeen atomic.Int32
		bp := NewBatchProcessor(WithConcurrency(3), WithInFlightObserver(func(n int) {
			for {
				cur := maxSeen.Load()
				if int32(n) <= cur || maxSeen.CompareAndSwap(cur, int32(n)) {
					return
				}
			}
		}))
		Process(context.Background(), bp, 12, func(context.Context, int) struct{} {
			time.Sleep(5 * time.Millisecond)
			return struct{}{}
		})
		if maxSeen.Load() > 3 {
			t.Errorf("observed %d in flight, limit is 3", maxSeen.Load())
		}
		if maxSeen.Load() < 1 {
			t.Error("observer was never called")
		}
	})

	t.Run("zero items", func(t *testing.T) {
		t.Parallel()

		got := Process(context.Background(), NewBatchProcessor(), 0, func(context.Context, int) int { return 1 })
		if len(got) != 0 {
			t.Errorf("expected no results, got %v", got)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if c := NewBatchProcessor(WithConcurrency(0)).Concurrency(); c != DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", c)
		}
	})
}

func TestSubjectURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []model.Record
		want    string
		wantErr bool
	}{
		{
			name:    "shared url",
			records: []model.Record{{"url": "https://example.com/a"}, {"url": "https://example.com/a"}},
			want:    "https://example.com/a",
		},
		{
			name:    "fragment stripped from @id",
			records: []model.Record{{"@id": "https://example.com/a#article"}, {"url": "https://example.com/a"}},
			want:    "https://example.com/a",
		},
		{
			name:    "records without subject are ignored",
			records: []model.Record{{"@type": "BreadcrumbList"}, {"url": "https://example.com/a"}},
			want:    "https://example.com/a",
		},
		{
			name:    "blank node ids are ignored",
			records: []model.Record{{"@id": "_:b0", "url": "https://example.com/a"}},
			want:    "https://example.com/a",
		},
		{
			name:    "no subject at all",
			records: []model.Record{{"@type": "Thing"}},
			want:    "",
		},
		{
			name:    "records disagree",
			records: []model.Record{{"url": "https://example.com/a"}, {"url": "https://example.com/b"}},
			wantErr: true,
		},
		{
			name:    "url and @id disagree within one record",
			records: []model.Record{{"url": "https://example.com/a", "@id": "https://example.com/b"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := SubjectURL(tt.records)
			if tt.wantErr {
				if !errors.Is(err, model.ModuleSubjectUrlInconsistent) {
					t.Fatalf("expected ModuleSubjectUrlInconsistent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestModuleValidator(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		{"@context": "https://schema.org", "@type": "Article", "url": "https://example.com/a", "wordCount": 12},
		{"@type": "Person", "name": "Ada", "url": "https://example.com/a"},
	}

	validate := func(t *testing.T, body []byte) (model.Module, metrics.Snapshot) {
		t.Helper()
		s := newSite(t)
		s.set("/m.json", body)
		c := metrics.New("langshake")
		_ = c.Start()
		v := NewModuleValidator(testClient(), c, nil)
		mod := v.Validate(context.Background(), 2, "m.json", s.srv.URL+"/m.json")
		c.Finalize()
		return mod, c.Snapshot()
	}

	t.Run("round trip checksum is valid", func(t *testing.T) {
		t.Parallel()

		mod, snap := validate(t, moduleBody(t, records, ""))
		if mod.Error != nil {
			t.Fatalf("unexpected error: %v", mod.Error)
		}
		if !mod.ChecksumValid || mod.Warning != nil {
			t.Errorf("expected valid checksum, got %+v", mod)
		}
		if mod.Index != 2 || len(mod.Records) != 2 {
			t.Errorf("unexpected module %+v", mod)
		}
		if mod.CanonicalSubjectURL != "https://example.com/a" {
			t.Errorf("unexpected subject %q", mod.CanonicalSubjectURL)
		}
		if snap.Requests.Count != 1 || snap.Requests.StatusCodes[200] != 1 {
			t.Errorf("expected one recorded 200 request, got %+v", snap.Requests)
		}
	})

	t.Run("corrupted checksum is a warning", func(t *testing.T) {
		t.Parallel()

		mod, snap := validate(t, moduleBody(t, records, "0000"))
		if mod.Error != nil {
			t.Fatalf("mismatch must not be fatal, got %v", mod.Error)
		}
		if mod.ChecksumValid {
			t.Error("expected ChecksumValid false")
		}
		if !errors.Is(mod.Warning, model.ModuleChecksumMismatch) {
			t.Errorf("expected mismatch warning, got %v", mod.Warning)
		}
		if len(mod.Records) != 2 || mod.ComputedChecksum == "" {
			t.Error("records must remain usable")
		}
		if snap.Errors.Count != 1 {
			t.Errorf("expected mismatch in phase errors, got %d", snap.Errors.Count)
		}
	})

	structural := []struct {
		name string
		body string
	}{
		{name: "single object", body: `{"@type":"Article"}`},
		{name: "missing trailer", body: `[{"@type":"Article"},{"@type":"Person"}]`},
		{name: "only trailer", body: `[{"checksum":"abc"}]`},
		{name: "not json", body: `<html></html>`},
		{name: "scalar element", body: `[1,{"checksum":"abc"}]`},
	}
	for _, tt := range structural {
		t.Run("structure "+tt.name, func(t *testing.T) {
			t.Parallel()

			mod, _ := validate(t, []byte(tt.body))
			if !errors.Is(mod.Error, model.ModuleStructureInvalid) {
				t.Errorf("expected ModuleStructureInvalid, got %v", mod.Error)
			}
			if mod.ComputedChecksum != "" || mod.Records != nil {
				t.Error("invalid module must not carry records")
			}
		})
	}

	t.Run("inconsistent subject urls", func(t *testing.T) {
		t.Parallel()

		split := []model.Record{{"url": "https://example.com/a"}, {"url": "https://example.com/b"}}
		mod, _ := validate(t, moduleBody(t, split, ""))
		if !errors.Is(mod.Error, model.ModuleSubjectUrlInconsistent) {
			t.Fatalf("expected ModuleSubjectUrlInconsistent, got %v", mod.Error)
		}
		if mod.Records != nil {
			t.Error("module must not be split into partial results")
		}
	})

	t.Run("fetch failure after retries", func(t *testing.T) {
		t.Parallel()

		s := newSite(t)
		s.fail("/m.json", http.StatusInternalServerError)
		c := metrics.New("langshake")
		v := NewModuleValidator(testClient(), c, nil)

		mod := v.Validate(context.Background(), 0, "m.json", s.srv.URL+"/m.json")
		if !errors.Is(mod.Error, model.ModuleFetchError) {
			t.Fatalf("expected ModuleFetchError, got %v", mod.Error)
		}
		if !errors.Is(mod.Error, fetch.ErrHTTPStatus) {
			t.Error("expected the HTTP status cause to be preserved")
		}
		if mod.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", mod.StatusCode)
		}
		if got := s.hitCount("/m.json"); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}
	})

	t.Run("timeout on final attempt", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		client := fetch.NewClient(fetch.WithRetryPolicy(fetch.RetryPolicy{
			MaxAttempts: 2, PerAttemptTimeout: 20 * time.Millisecond, Delay: time.Millisecond,
		}))
		v := NewModuleValidator(client, metrics.New("langshake"), nil)

		mod := v.Validate(context.Background(), 0, "m.json", srv.URL+"/m.json")
		if !errors.Is(mod.Error, model.RequestTimeout) {
			t.Errorf("expected RequestTimeout, got %v", mod.Error)
		}
	})
}

func TestLangshakeCrawler(t *testing.T) {
	t.Parallel()

	t.Run("unreachable manifest", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		root := srv.URL
		srv.Close()

		c := metrics.New("langshake")
		lc := NewLangshakeCrawler(testClient(), c, "")
		_, err := lc.FetchManifest(context.Background(), root)
		if !errors.Is(err, model.ManifestUnreachable) {
			t.Fatalf("expected ManifestUnreachable, got %v", err)
		}
		if c.Snapshot().Requests.Count != 1 {
			t.Error("manifest fetch must be recorded as a request")
		}
	})

	t.Run("empty modules", func(t *testing.T) {
		t.Parallel()

		s := newSite(t)
		s.set("/.well-known/llm.json", []byte(`{"modules":[]}`))

		lc := NewLangshakeCrawler(testClient(), metrics.New("langshake"), "")
		_, err := lc.FetchManifest(context.Background(), s.srv.URL)
		if !errors.Is(err, model.ManifestModulesEmpty) {
			t.Fatalf("expected ManifestModulesEmpty, got %v", err)
		}
	})

	t.Run("custom manifest name", func(t *testing.T) {
		t.Parallel()

		s := newSite(t)
		s.set("/.well-known/langshake.json", []byte(`{"modules":["a.json"]}`))

		lc := NewLangshakeCrawler(testClient(), metrics.New("langshake"), "langshake.json")
		res, err := lc.FetchManifest(context.Background(), s.srv.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ManifestURL != s.srv.URL+"/.well-known/langshake.json" {
			t.Errorf("unexpected manifest url %q", res.ManifestURL)
		}
	})

	t.Run("partial failure keeps index alignment", func(t *testing.T) {
		t.Parallel()

		s := newSite(t)
		paths := []string{"m0.json", "m1.json", "/pages/m2.json", "m3.json"}
		subjects := make([]string, len(paths))
		for i, p := range paths {
			subjects[i] = s.srv.URL + "/page/" + string(rune('a'+i))
			full := "/.well-known/" + p
			if p[0] == '/' {
				full = p
			}
			s.set(full, moduleBody(t, []model.Record{{"@type": "WebPage", "url": subjects[i]}}, ""))
		}
		s.fail("/.well-known/m1.json", http.StatusServiceUnavailable)

		manifest, _ := json.Marshal(map[string]any{"modules": paths})
		s.set("/.well-known/llm.json", manifest)

		c := metrics.New("langshake")
		_ = c.Start()
		lc := NewLangshakeCrawler(testClient(), c, "", WithPhaseConcurrency(2))
		res, err := lc.FetchManifest(context.Background(), s.srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lc.CrawlModules(context.Background(), res)
		c.Finalize()

		if len(res.Modules) != 4 {
			t.Fatalf("expected 4 slots, got %d", len(res.Modules))
		}
		var failed int
		for i, m := range res.Modules {
			if m.Index != i || m.Path != paths[i] {
				t.Errorf("slot %d holds module %d (%s)", i, m.Index, m.Path)
			}
			if m.Error != nil {
				failed++
				if i != 1 || !errors.Is(m.Error, model.ModuleFetchError) {
					t.Errorf("unexpected failure in slot %d: %v", i, m.Error)
				}
				continue
			}
			if m.CanonicalSubjectURL != subjects[i] {
				t.Errorf("slot %d: expected subject %q, got %q", i, subjects[i], m.CanonicalSubjectURL)
			}
		}
		if failed != 1 {
			t.Errorf("expected exactly 1 failed slot, got %d", failed)
		}

		urls := res.SubjectURLs()
		if urls[1] != "" || urls[2] != subjects[2] {
			t.Errorf("unexpected subject list %v", urls)
		}

		want := integrity.ComputeMerkleRoot([]string{
			res.Modules[0].ComputedChecksum, res.Modules[2].ComputedChecksum, res.Modules[3].ComputedChecksum,
		})
		if res.MerkleRoot != want {
			t.Errorf("phase root should cover successful modules only")
		}

		snap := c.Snapshot()
		if snap.Requests.Count != 5 {
			t.Errorf("expected manifest plus 4 module requests, got %d", snap.Requests.Count)
		}
		if snap.Errors.Count != 1 {
			t.Errorf("expected 1 phase error, got %d", snap.Errors.Count)
		}
		if snap.MaxConcurrency < 1 || snap.MaxConcurrency > 2 {
			t.Errorf("expected max concurrency within limit, got %d", snap.MaxConcurrency)
		}
	})
}

// fakeExtractor returns canned extractions by URL.
type fakeExtractor struct {
	mu    sync.Mutex
	calls map[string]int
	pages map[string][]model.Record
	fail  map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (extract.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[url]++
	if err := f.fail[url]; err != nil {
		return extract.Extraction{StatusCode: 500}, err
	}
	return extract.Extraction{Records: f.pages[url], Bytes: 100, StatusCode: 200}, nil
}

func TestTraditionalCrawler(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{
		pages: map[string][]model.Record{
			"https://example.com/a": {{"@type": "Article"}},
			"https://example.com/c": {{"@type": "Product"}},
		},
		fail: map[string]error{
			"https://example.com/b": errors.New("render failed"),
			"https://example.com/d": context.DeadlineExceeded,
		},
	}

	dir := t.TempDir()
	c := metrics.New("traditional")
	_ = c.Start()
	tc := NewTraditionalCrawler(ext, c, WithPhaseConcurrency(3), WithArtifacts(NewArtifactStore(dir)))

	urls := []string{"https://example.com/a", "https://example.com/b", "", "https://example.com/c", "https://example.com/d"}
	pages := tc.Crawl(context.Background(), urls)
	c.Finalize()

	if len(pages) != len(urls) {
		t.Fatalf("expected %d slots, got %d", len(urls), len(pages))
	}
	for i, p := range pages {
		if p.Index != i || p.URL != urls[i] {
			t.Errorf("slot %d misaligned: %+v", i, p)
		}
	}

	if pages[0].Error != nil || len(pages[0].Records) != 1 || pages[0].Bytes != 100 {
		t.Errorf("unexpected slot 0: %+v", pages[0])
	}
	if !errors.Is(pages[1].Error, model.PageExtractionError) || pages[1].StatusCode != 500 {
		t.Errorf("expected PageExtractionError with status, got %+v", pages[1])
	}
	if !errors.Is(pages[2].Error, model.PageExtractionError) {
		t.Errorf("empty URL slot should be an extraction error, got %v", pages[2].Error)
	}
	if ext.calls[""] != 0 {
		t.Error("empty URL must not be fetched")
	}
	if pages[3].Error != nil {
		t.Errorf("sibling failures must not affect slot 3: %v", pages[3].Error)
	}
	if !errors.Is(pages[4].Error, model.RequestTimeout) {
		t.Errorf("expected RequestTimeout, got %v", pages[4].Error)
	}

	snap := c.Snapshot()
	if snap.Requests.Count != 4 {
		t.Errorf("expected 4 requests, got %d", snap.Requests.Count)
	}
	// b, d and the slot without a subject URL.
	if snap.Errors.Count != 3 {
		t.Errorf("expected 3 recorded errors, got %d", snap.Errors.Count)
	}
	if snap.DiskBytesWritten <= 0 {
		t.Error("expected artifact bytes to be recorded")
	}
	for _, name := range []string{"000.json", "003.json"} {
		if _, err := os.Stat(filepath.Join(dir, "traditional", name)); err != nil {
			t.Errorf("expected artifact %s: %v", name, err)
		}
	}
}
