package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/websearch/internal/assistant"
	"github.com/hyperifyio/websearch/internal/fetch"
	"github.com/hyperifyio/websearch/internal/learning"
	"github.com/hyperifyio/websearch/internal/llm"
	"github.com/hyperifyio/websearch/internal/robots"
	"github.com/hyperifyio/websearch/internal/search"
)

// App wires the search service to its consumers: the printed formatter,
// the assistant, and the learning pipeline.
type App struct {
	cfg       Config
	out       io.Writer
	search    *search.Service
	assistant *assistant.Assistant
	registry  *prometheus.Registry
}

// New builds the application from cfg. Output goes to stdout unless
// replaced with SetOutput.
func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	client := newHTTPClient(0)
	searchClient := client
	if cfg.SearchFile != "" {
		searchClient = &http.Client{Transport: &search.FileTransport{Path: cfg.SearchFile}}
	}

	metrics := search.NewMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.Collectors()...)

	svc := &search.Service{
		Endpoint:   cfg.Endpoint,
		HTTPClient: searchClient,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.SearchTimeout,
		Metrics:    metrics,
	}

	if cfg.DatasetDir != "" {
		store := &learning.Store{Dir: cfg.DatasetDir, StrictPerms: cfg.DatasetStrictPerms}
		if cfg.DatasetClear {
			if err := store.Clear(); err != nil {
				log.Warn().Err(err).Str("dir", cfg.DatasetDir).Msg("dataset clear failed")
			}
		}
		if cfg.DatasetMaxAge > 0 && cfg.DataCollection {
			if n, err := store.PurgeOlderThan(cfg.DatasetMaxAge); err != nil {
				log.Warn().Err(err).Msg("dataset purge failed")
			} else if n > 0 {
				log.Info().Int("removed", n).Msg("purged expired learning records")
			}
		}
		consent := cfg.DataCollection
		ingestor := &learning.Ingestor{
			Store:     store,
			Consent:   func() bool { return consent },
			MaxPages:  cfg.MaxPages,
			PerDomain: 1,
		}
		if cfg.CapturePages {
			ingestor.Fetcher = &fetch.Client{
				HTTPClient:        client,
				UserAgent:         cfg.UserAgent,
				MaxAttempts:       2,
				PerRequestTimeout: 15 * time.Second,
				MaxConcurrent:     4,
			}
			ingestor.Robots = &robots.Checker{HTTPClient: client, UserAgent: cfg.UserAgent}
		}
		svc.Learner = ingestor
	}

	a := &App{cfg: cfg, out: os.Stdout, search: svc, registry: reg}
	if cfg.Ask {
		a.assistant = &assistant.Assistant{
			Searcher:     svc,
			LLM:          llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey, newHTTPClient(120*time.Second)),
			Model:        cfg.LLMModel,
			SystemPrompt: cfg.SystemPrompt,
		}
	}
	return a, nil
}

// SetOutput redirects printed results.
func (a *App) SetOutput(w io.Writer) { a.out = w }

// Run searches for query and prints the formatted results, or the
// assistant's answer when asking is enabled.
func (a *App) Run(ctx context.Context, query string) error {
	if a.assistant != nil {
		answer, err := a.assistant.Answer(ctx, query)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.out, answer)
		return err
	}
	results, err := a.search.Search(ctx, query)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, search.Format(results))
	return err
}

// Close waits for pending learning records and logs a metrics summary.
func (a *App) Close() {
	a.search.Wait()
	families, err := a.registry.Gather()
	if err != nil {
		log.Debug().Err(err).Msg("gather metrics failed")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			ev := log.Debug().Str("metric", mf.GetName())
			for _, lp := range m.GetLabel() {
				ev = ev.Str(lp.GetName(), lp.GetValue())
			}
			ev.Float64("value", metricValue(m)).Msg("metric")
		}
	}
}

// metricValue reduces a metric to one number: counter value, or sample
// count for histograms.
func metricValue(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	case m.GetHistogram() != nil:
		return float64(m.GetHistogram().GetSampleCount())
	}
	return 0
}
