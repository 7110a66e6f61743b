package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/websearch/internal/learning"
	"github.com/hyperifyio/websearch/internal/search"
)

const catsResponse = `{
	"AbstractText":"Cats are small carnivores.","AbstractURL":"https://en.wikipedia.org/wiki/Cat","AbstractSource":"Wikipedia",
	"RelatedTopics":[
		{"Text":"Kitten - A juvenile cat","FirstURL":"https://duckduckgo.com/Kitten"},
		{"Text":"Felidae - Family of cats","FirstURL":"https://duckduckgo.com/Felidae"},
		{"Text":"Lion","FirstURL":"https://duckduckgo.com/Lion"},
		{"Text":"Tiger","Results":[{"FirstURL":"https://duckduckgo.com/Tiger"}]}
	]
}`

func searchServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_PrintsFormattedResults(t *testing.T) {
	srv := searchServer(t, catsResponse)
	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.DatasetDir = ""

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	var out bytes.Buffer
	a.SetOutput(&out)
	if err := a.Run(context.Background(), "cats"); err != nil {
		t.Fatalf("run: %v", err)
	}
	a.Close()

	got := out.String()
	if !strings.HasPrefix(got, "1. Wikipedia\n   Cats are small carnivores.\n   https://en.wikipedia.org/wiki/Cat\n\n") {
		t.Fatalf("unexpected output: %q", got)
	}
	if !strings.HasSuffix(got, "...and 2 more results.\n") {
		t.Fatalf("expected trailing note, got %q", got)
	}
}

func TestRun_RecordsLearningWithConsent(t *testing.T) {
	srv := searchServer(t, catsResponse)
	dir := filepath.Join(t.TempDir(), "dataset")
	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.DataCollection = true
	cfg.DatasetDir = dir

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	a.SetOutput(&bytes.Buffer{})
	if err := a.Run(context.Background(), "cats"); err != nil {
		t.Fatalf("run: %v", err)
	}
	a.Close()

	recs, err := (&learning.Store{Dir: dir}).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Query != "cats" || len(recs[0].URLs) != 5 {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestRun_NoLearningWithoutConsent(t *testing.T) {
	srv := searchServer(t, catsResponse)
	dir := filepath.Join(t.TempDir(), "dataset")
	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.DatasetDir = dir

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	a.SetOutput(&bytes.Buffer{})
	if err := a.Run(context.Background(), "cats"); err != nil {
		t.Fatalf("run: %v", err)
	}
	a.Close()
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no dataset files, got %d", len(entries))
	}
}

func TestRun_EmptyResults(t *testing.T) {
	srv := searchServer(t, `{"RelatedTopics":[]}`)
	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.DatasetDir = ""
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	var out bytes.Buffer
	a.SetOutput(&out)
	if err := a.Run(context.Background(), "nothing"); !errors.Is(err, search.ErrEmptyResults) {
		t.Fatalf("expected empty results error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestRun_OfflineSearchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cats.json")
	if err := os.WriteFile(path, []byte(catsResponse), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.SearchFile = path
	cfg.DatasetDir = ""
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	var out bytes.Buffer
	a.SetOutput(&out)
	if err := a.Run(context.Background(), "cats"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "2. Kitten\n   A juvenile cat\n") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRun_AskUsesAssistant(t *testing.T) {
	srv := searchServer(t, catsResponse)
	var gotPrompt string
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			gotPrompt = req.Messages[1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Cats are felines."}}]}`))
	}))
	defer llmSrv.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.DatasetDir = ""
	cfg.Ask = true
	cfg.LLMBaseURL = llmSrv.URL + "/v1"
	cfg.LLMModel = "test-model"
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	var out bytes.Buffer
	a.SetOutput(&out)
	if err := a.Run(context.Background(), "what are cats"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "Cats are felines.\n" {
		t.Fatalf("unexpected answer: %q", out.String())
	}
	if !strings.Contains(gotPrompt, "1. Wikipedia") {
		t.Fatalf("expected formatted results in prompt, got %q", gotPrompt)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ask = true
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error when asking without a model")
	}
}
