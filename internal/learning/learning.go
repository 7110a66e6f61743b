package learning

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/websearch/internal/extract"
	"github.com/hyperifyio/websearch/internal/fetch"
)

const (
	defaultMaxPages = 3
	defaultMaxChars = 4000
)

// PageFetcher retrieves one result page. *fetch.Client satisfies it.
type PageFetcher interface {
	Get(ctx context.Context, url string) (*fetch.Response, error)
}

// RobotsPolicy reports whether a page may be captured. *robots.Checker
// satisfies it.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}

// Ingestor turns successful searches into learning records. Collection is
// opt-in: nothing is stored unless Consent reports true at ingest time.
type Ingestor struct {
	Store   *Store
	Consent func() bool
	// Fetcher, when set, captures readable text of the first MaxPages URLs.
	Fetcher  PageFetcher
	MaxPages int
	// MaxChars caps captured text per page. Zero means 4000.
	MaxChars int
	// PerDomain caps captured pages per host. Zero means no cap.
	PerDomain int
	// Robots, when set, filters pages before capture.
	Robots RobotsPolicy

	now func() time.Time
}

// Ingest records query and urls. It never returns an error; failures are
// logged so the search that triggered it is unaffected.
func (in *Ingestor) Ingest(ctx context.Context, query string, urls []string) {
	if in.Consent == nil || !in.Consent() {
		log.Debug().Str("query", query).Msg("data collection disabled; skipping learning record")
		return
	}
	if len(urls) == 0 {
		return
	}
	now := time.Now
	if in.now != nil {
		now = in.now
	}
	at := now().UTC()
	rec := Record{
		ID:          RecordID(query, at),
		Query:       query,
		URLs:        append([]string(nil), urls...),
		CollectedAt: at,
	}
	if in.Fetcher != nil {
		rec.Pages = in.capture(ctx, urls)
	}
	if err := in.Store.Save(ctx, rec); err != nil {
		log.Warn().Err(err).Str("query", query).Msg("save learning record failed")
		return
	}
	log.Debug().Str("id", rec.ID).Str("query", query).Int("urls", len(rec.URLs)).Int("pages", len(rec.Pages)).Msg("learning record saved")
}

// capture fetches distinct pages concurrently and keeps the successful ones
// in URL order.
func (in *Ingestor) capture(ctx context.Context, urls []string) []Page {
	limit := in.MaxPages
	if limit <= 0 {
		limit = defaultMaxPages
	}
	targets := captureTargets(urls, limit, in.PerDomain)
	maxChars := in.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	pages := make([]*Page, len(targets))
	var wg sync.WaitGroup
	for i := range targets {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			if in.Robots != nil && !in.Robots.Allowed(ctx, u) {
				log.Debug().Str("url", u).Msg("robots.txt disallows capture; skipping")
				return
			}
			resp, err := in.Fetcher.Get(ctx, u)
			if err != nil {
				log.Debug().Err(err).Str("url", u).Msg("page capture failed; skipping")
				return
			}
			doc, err := extract.Read(bytes.NewReader(resp.Body), resp.ContentType, maxChars)
			if err != nil {
				log.Debug().Err(err).Str("url", u).Msg("page extract failed; skipping")
				return
			}
			pages[i] = &Page{URL: u, Title: doc.Title, Description: doc.Description, Text: doc.Text}
		}(i, targets[i])
	}
	wg.Wait()
	var out []Page
	for _, p := range pages {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}
