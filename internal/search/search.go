package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
)

// DefaultEndpoint is the DuckDuckGo Instant Answer API.
const DefaultEndpoint = "https://api.duckduckgo.com/"

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// Result is a single structured search hit. URL is always an absolute URL.
type Result struct {
	Title       string
	Description string
	URL         string
}

// Learner receives the query and result URLs of every successful search.
// Ingest is called on its own goroutine, possibly for several searches at
// once, so implementations must be safe for concurrent use.
type Learner interface {
	Ingest(ctx context.Context, query string, urls []string)
}

// Service performs one Instant Answer request per search and maps the
// response into results. It holds configuration only; concurrent searches
// share nothing but the HTTP client.
type Service struct {
	Endpoint   string // defaults to DefaultEndpoint
	HTTPClient *http.Client
	UserAgent  string // optional
	// Timeout bounds the whole request. Zero means 10s.
	Timeout time.Duration
	Learner Learner
	Metrics *Metrics

	pending sync.WaitGroup
}

func (s *Service) Name() string { return "duckduckgo" }

// Search runs the query and returns at least one result or a *Error.
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	start := time.Now()
	results, err := s.search(ctx, query)
	s.Metrics.observe(err, len(results), time.Since(start))
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("search failed")
		return nil, err
	}
	log.Info().Str("query", query).Int("count", len(results)).Msg("search results")
	s.notify(ctx, query, results)
	return results, nil
}

// SearchAsync runs Search on a new goroutine and calls done exactly once
// with its outcome. A nil done still runs the search.
func (s *Service) SearchAsync(ctx context.Context, query string, done func([]Result, error)) {
	go func() {
		results, err := s.Search(ctx, query)
		if done != nil {
			done(results, err)
		}
	}()
}

// Wait blocks until every learner notification dispatched so far returns.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) search(ctx context.Context, query string) ([]Result, error) {
	req, err := s.newRequest(ctx, query)
	if err != nil {
		return nil, &Error{Kind: KindInvalidQuery, Err: err}
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()

	body, err := s.do(req.WithContext(ctx))
	if errors.Is(err, ErrBodyTooLarge) {
		return nil, &Error{Kind: KindParsing, Err: err}
	}
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	if len(body) == 0 {
		return nil, &Error{Kind: KindEmptyResults, Err: errors.New("empty response body")}
	}
	results, err := parseResponse(body)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &Error{Kind: KindEmptyResults}
	}
	return results, nil
}

// newRequest builds the provider GET for query. The query is NFC-normalised
// before percent-encoding; invalid UTF-8 cannot be encoded and is rejected.
func (s *Service) newRequest(ctx context.Context, query string) (*http.Request, error) {
	if !utf8.ValidString(query) {
		return nil, errors.New("query is not valid UTF-8")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("endpoint is not an absolute url: %q", endpoint)
	}
	q := u.Query()
	q.Set("q", norm.NFC.String(query))
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	return req, nil
}

// do sends req and reads the body. The status code is not checked: any
// response body goes through parsing, so an error page classifies as empty
// or unparseable rather than as a network failure.
func (s *Service) do(req *http.Request) ([]byte, error) {
	hc := s.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Int("status", resp.StatusCode).Str("url", req.URL.Redacted()).Msg("non-2xx search response; parsing body")
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, maxBodyBytes)
	}
	return b, nil
}

// notify hands the result URLs to the learner without waiting for it. The
// learner gets a context that survives cancellation of the caller's.
func (s *Service) notify(ctx context.Context, query string, results []Result) {
	if s.Learner == nil || len(results) == 0 {
		return
	}
	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}
	lctx := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("query", query).Msg("learner panicked")
			}
		}()
		s.Learner.Ingest(lctx, query, urls)
	}()
}
