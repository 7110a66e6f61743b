package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/websearch/internal/app"
	"github.com/hyperifyio/websearch/internal/search"
)

// envByFlag maps flags to the environment variables that seed their
// defaults; either source counts as an explicit setting.
var envByFlag = map[string]string{
	"search.endpoint":      "WEBSEARCH_ENDPOINT",
	"search.ua":            "WEBSEARCH_UA",
	"search.timeout":       "WEBSEARCH_TIMEOUT",
	"search.file":          "SEARCH_FILE",
	"data.collection":      "DATA_COLLECTION",
	"dataset.dir":          "DATASET_DIR",
	"dataset.strictPerms":  "DATASET_STRICT_PERMS",
	"dataset.maxAge":       "DATASET_MAX_AGE",
	"dataset.capturePages": "DATASET_CAPTURE_PAGES",
	"dataset.maxPages":     "DATASET_MAX_PAGES",
	"llm.base":             "LLM_BASE_URL",
	"llm.model":            "LLM_MODEL",
	"llm.key":              "LLM_API_KEY",
	"llm.systemPrompt":     "ASSISTANT_SYSTEM_PROMPT",
	"v":                    "VERBOSE",
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := app.LoadEnvFiles(".env", ".env.local"); err != nil {
		log.Warn().Err(err).Msg("load .env failed")
	}

	cfg := app.DefaultConfig()
	var configPath string

	flag.StringVar(&configPath, "config", os.Getenv("WEBSEARCH_CONFIG"), "Path to YAML or JSON config file")
	flag.StringVar(&cfg.Endpoint, "search.endpoint", app.EnvString("WEBSEARCH_ENDPOINT", ""), "Instant Answer endpoint (default DuckDuckGo)")
	flag.StringVar(&cfg.UserAgent, "search.ua", app.EnvString("WEBSEARCH_UA", cfg.UserAgent), "User-Agent for outbound requests")
	flag.DurationVar(&cfg.SearchTimeout, "search.timeout", app.EnvDuration("WEBSEARCH_TIMEOUT", cfg.SearchTimeout), "Timeout for one search request")
	flag.StringVar(&cfg.SearchFile, "search.file", os.Getenv("SEARCH_FILE"), "Serve a saved Instant Answer JSON response instead of the network")
	flag.BoolVar(&cfg.DataCollection, "data.collection", app.EnvBool("DATA_COLLECTION", false), "Opt in to recording search results for learning")
	flag.StringVar(&cfg.DatasetDir, "dataset.dir", app.EnvString("DATASET_DIR", cfg.DatasetDir), "Directory for learning records")
	flag.BoolVar(&cfg.DatasetStrictPerms, "dataset.strictPerms", app.EnvBool("DATASET_STRICT_PERMS", false), "Restrict dataset permissions (0700 dirs, 0600 files)")
	flag.DurationVar(&cfg.DatasetMaxAge, "dataset.maxAge", app.EnvDuration("DATASET_MAX_AGE", 0), "Purge learning records older than this at startup; 0 disables")
	flag.BoolVar(&cfg.DatasetClear, "dataset.clear", false, "Remove all learning records before running")
	flag.BoolVar(&cfg.CapturePages, "dataset.capturePages", app.EnvBool("DATASET_CAPTURE_PAGES", false), "Fetch result pages and store their readable text")
	flag.IntVar(&cfg.MaxPages, "dataset.maxPages", app.EnvInt("DATASET_MAX_PAGES", cfg.MaxPages), "Maximum result pages captured per search")
	flag.BoolVar(&cfg.Ask, "ask", false, "Answer the query with the assistant using search results as context")
	flag.StringVar(&cfg.LLMBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&cfg.LLMModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name")
	flag.StringVar(&cfg.LLMAPIKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for OpenAI-compatible server")
	flag.StringVar(&cfg.SystemPrompt, "llm.systemPrompt", os.Getenv("ASSISTANT_SYSTEM_PROMPT"), "Override the assistant system prompt")
	flag.BoolVar(&cfg.Verbose, "v", app.EnvBool("VERBOSE", false), "Verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <query>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("load config failed")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc, app.ExplicitSettings(flag.CommandLine, envByFlag))
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, query); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to the process exit status: 2 when the search
// found nothing, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, search.ErrEmptyResults) {
		return 2
	}
	return 1
}

func run(ctx context.Context, cfg app.Config, query string) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx, query)
}
