package app

import (
	"errors"
	"strings"
	"time"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Search
	Endpoint      string
	UserAgent     string
	SearchTimeout time.Duration
	SearchFile    string // offline: serve this saved response instead of the network

	// Learning
	DataCollection     bool
	DatasetDir         string
	DatasetStrictPerms bool
	DatasetMaxAge      time.Duration
	DatasetClear       bool
	CapturePages       bool
	MaxPages           int

	// Assistant
	Ask          bool
	LLMBaseURL   string
	LLMModel     string
	LLMAPIKey    string
	SystemPrompt string

	Verbose bool
}

const (
	defaultUserAgent     = "websearch/1.0 (+https://github.com/hyperifyio/websearch)"
	defaultSearchTimeout = 10 * time.Second
	defaultDatasetDir    = ".websearch-dataset"
	defaultMaxPages      = 3
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		UserAgent:     defaultUserAgent,
		SearchTimeout: defaultSearchTimeout,
		DatasetDir:    defaultDatasetDir,
		MaxPages:      defaultMaxPages,
	}
}

// ValidateConfig checks settings that would otherwise fail later.
func ValidateConfig(cfg Config) error {
	if cfg.SearchTimeout < 0 || cfg.DatasetMaxAge < 0 || cfg.MaxPages < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.DataCollection && strings.TrimSpace(cfg.DatasetDir) == "" {
		return errors.New("config: dataset.dir is required when data collection is enabled")
	}
	if cfg.Ask && strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required for -ask (or set LLM_MODEL)")
	}
	return nil
}
