package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRules_IsAllowed(t *testing.T) {
	rules := Parse(`
# comment
User-agent: *
Disallow: /private
Allow: /private/open

User-agent: websearch
Disallow: /nobots$
Disallow: /*.pdf
`)
	cases := []struct {
		ua, path string
		want     bool
	}{
		{"other", "/private/x", false},
		{"other", "/private/open/page", true},
		{"other", "/public", true},
		{"websearch/1.0", "/private/x", true},
		{"websearch/1.0", "/nobots", false},
		{"websearch/1.0", "/nobots/ok", true},
		{"websearch/1.0", "/docs/a.pdf", false},
	}
	for _, tc := range cases {
		if got := rules.IsAllowed(tc.ua, tc.path); got != tc.want {
			t.Errorf("IsAllowed(%q, %q) = %v, want %v", tc.ua, tc.path, got, tc.want)
		}
	}
}

func TestChecker_FetchesOncePerHost(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		if ua := r.Header.Get("User-Agent"); ua != "websearch-test" {
			t.Errorf("unexpected UA %q", ua)
		}
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer srv.Close()

	c := &Checker{HTTPClient: srv.Client(), UserAgent: "websearch-test"}
	ctx := context.Background()
	if !c.Allowed(ctx, srv.URL+"/page") {
		t.Fatal("expected /page allowed")
	}
	if c.Allowed(ctx, srv.URL+"/private/x?a=1") {
		t.Fatal("expected /private disallowed")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected one robots.txt fetch, got %d", n)
	}
}

func TestChecker_ConcurrentLookupsShareFetch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer srv.Close()

	c := &Checker{HTTPClient: srv.Client()}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.Allowed(context.Background(), srv.URL+"/page") {
				t.Error("expected /page allowed")
			}
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected one robots.txt fetch for concurrent lookups, got %d", n)
	}
}

func TestChecker_StatusPolicy(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	missing := &Checker{HTTPClient: srv.Client()}
	if !missing.Allowed(context.Background(), srv.URL+"/a") {
		t.Fatal("missing robots.txt should allow")
	}

	status.Store(http.StatusServiceUnavailable)
	failing := &Checker{HTTPClient: srv.Client()}
	if failing.Allowed(context.Background(), srv.URL+"/a") {
		t.Fatal("failing robots.txt should disallow")
	}

	if missing.Allowed(context.Background(), "ftp://example.com/file") {
		t.Fatal("non-http URL should be disallowed")
	}
}
