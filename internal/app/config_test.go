package app

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile_YAMLOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "websearch.yaml")
	yml := `search:
  endpoint: https://ddg.internal/
  ua: custom-agent
  timeout: 3s
dataCollection: true
dataset:
  dir: /var/lib/websearch
  strictPerms: true
  maxAge: 72h
  capturePages: true
  maxPages: 5
llm:
  model: small
  base: http://localhost:11434/v1
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc, nil)

	if cfg.Endpoint != "https://ddg.internal/" || cfg.UserAgent != "custom-agent" || cfg.SearchTimeout != 3*time.Second {
		t.Fatalf("search settings not applied: %+v", cfg)
	}
	if !cfg.DataCollection || cfg.DatasetDir != "/var/lib/websearch" || !cfg.DatasetStrictPerms || cfg.DatasetMaxAge != 72*time.Hour {
		t.Fatalf("dataset settings not applied: %+v", cfg)
	}
	if !cfg.CapturePages || cfg.MaxPages != 5 {
		t.Fatalf("capture settings not applied: %+v", cfg)
	}
	if cfg.LLMModel != "small" || cfg.LLMBaseURL != "http://localhost:11434/v1" {
		t.Fatalf("llm settings not applied: %+v", cfg)
	}
}

func TestApplyFileConfig_ExplicitValuesWin(t *testing.T) {
	var fc FileConfig
	fc.Search.Endpoint = "https://from-file/"
	fc.Search.UA = "file-agent"
	fc.LLM.Model = "file-model"

	cfg := DefaultConfig()
	cfg.Endpoint = "https://from-flag/"
	cfg.LLMModel = "flag-model"
	ApplyFileConfig(&cfg, fc, Explicit{"search.endpoint": true, "llm.model": true})

	if cfg.Endpoint != "https://from-flag/" || cfg.LLMModel != "flag-model" {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
	if cfg.UserAgent != "file-agent" {
		t.Fatalf("default user agent should be replaced by file value, got %q", cfg.UserAgent)
	}
}

func TestApplyFileConfig_ExplicitOptOutBeatsFile(t *testing.T) {
	on := true
	var fc FileConfig
	fc.DataCollection = &on
	fc.Dataset.CapturePages = &on
	fc.Dataset.MaxPages = 9
	fc.Search.UA = "file-agent"

	cfg := DefaultConfig()
	cfg.DataCollection = false
	ApplyFileConfig(&cfg, fc, Explicit{"data.collection": true, "dataset.maxPages": true, "search.ua": true})

	if cfg.DataCollection {
		t.Fatalf("explicit data collection opt-out overridden by file")
	}
	if cfg.MaxPages != defaultMaxPages || cfg.UserAgent != defaultUserAgent {
		t.Fatalf("explicit default-valued settings overridden: pages=%d ua=%q", cfg.MaxPages, cfg.UserAgent)
	}
	if !cfg.CapturePages {
		t.Fatalf("unset capture setting should come from file")
	}
}

func TestApplyFileConfig_FileCanDisable(t *testing.T) {
	off := false
	var fc FileConfig
	fc.Verbose = &off
	cfg := DefaultConfig()
	cfg.Verbose = true
	ApplyFileConfig(&cfg, fc, nil)
	if cfg.Verbose {
		t.Fatalf("file verbose:false should apply when no flag or env set it")
	}
}

func TestExplicitSettings(t *testing.T) {
	t.Setenv("WS_TEST_COLLECT", "false")
	t.Setenv("WS_TEST_BLANK", " ")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("search.ua", "", "")
	fs.Bool("data.collection", false, "")
	fs.Int("dataset.maxPages", 3, "")
	fs.Bool("v", false, "")
	if err := fs.Parse([]string{"-dataset.maxPages", "3"}); err != nil {
		t.Fatal(err)
	}
	got := ExplicitSettings(fs, map[string]string{
		"data.collection": "WS_TEST_COLLECT",
		"search.ua":       "WS_TEST_BLANK",
		"v":               "WS_TEST_UNSET",
	})
	if !got["dataset.maxPages"] || !got["data.collection"] {
		t.Fatalf("expected flag and env settings to be explicit: %v", got)
	}
	if got["search.ua"] || got["v"] {
		t.Fatalf("blank or unset env should not be explicit: %v", got)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "websearch.json")
	if err := os.WriteFile(path, []byte(`{"search":{"file":"saved.json"},"verbose":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.Search.File != "saved.json" || fc.Verbose == nil || !*fc.Verbose {
		t.Fatalf("unexpected file config: %+v", fc)
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.conf")
	if err := os.WriteFile(path, []byte("search: [unclosed\n{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.SearchTimeout = -time.Second
	if err := ValidateConfig(bad); err == nil {
		t.Fatalf("expected negative timeout to be rejected")
	}
	bad = DefaultConfig()
	bad.DataCollection = true
	bad.DatasetDir = " "
	if err := ValidateConfig(bad); err == nil {
		t.Fatalf("expected missing dataset dir to be rejected")
	}
}
