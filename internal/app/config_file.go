package app

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema (YAML or JSON).
type FileConfig struct {
	Search struct {
		Endpoint string        `yaml:"endpoint" json:"endpoint"`
		UA       string        `yaml:"ua" json:"ua"`
		Timeout  time.Duration `yaml:"timeout" json:"timeout"`
		File     string        `yaml:"file" json:"file"`
	} `yaml:"search" json:"search"`

	DataCollection *bool `yaml:"dataCollection" json:"dataCollection"`

	Dataset struct {
		Dir          string        `yaml:"dir" json:"dir"`
		StrictPerms  *bool         `yaml:"strictPerms" json:"strictPerms"`
		MaxAge       time.Duration `yaml:"maxAge" json:"maxAge"`
		CapturePages *bool         `yaml:"capturePages" json:"capturePages"`
		MaxPages     int           `yaml:"maxPages" json:"maxPages"`
	} `yaml:"dataset" json:"dataset"`

	LLM struct {
		BaseURL      string `yaml:"base" json:"base"`
		Model        string `yaml:"model" json:"model"`
		APIKey       string `yaml:"key" json:"key"`
		SystemPrompt string `yaml:"systemPrompt" json:"systemPrompt"`
	} `yaml:"llm" json:"llm"`

	Verbose *bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig, choosing by extension
// and trying both when the extension is unknown.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// Explicit holds the flag names the user set on the command line or through
// their environment variable. The config file never overrides them.
type Explicit map[string]bool

// ExplicitSettings collects the flags set on fs plus those whose environment
// variable in envByFlag is non-blank.
func ExplicitSettings(fs *flag.FlagSet, envByFlag map[string]string) Explicit {
	set := Explicit{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for name, key := range envByFlag {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			set[name] = true
		}
	}
	return set
}

// ApplyFileConfig copies every value fc sets into cfg unless the matching
// flag is in explicit. Precedence is flags and env, then file, then defaults.
func ApplyFileConfig(cfg *Config, fc FileConfig, explicit Explicit) {
	if cfg == nil {
		return
	}
	setString := func(name string, dst *string, v string) {
		if v != "" && !explicit[name] {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v *bool) {
		if v != nil && !explicit[name] {
			*dst = *v
		}
	}
	setDuration := func(name string, dst *time.Duration, v time.Duration) {
		if v > 0 && !explicit[name] {
			*dst = v
		}
	}

	setString("search.endpoint", &cfg.Endpoint, fc.Search.Endpoint)
	setString("search.ua", &cfg.UserAgent, fc.Search.UA)
	setDuration("search.timeout", &cfg.SearchTimeout, fc.Search.Timeout)
	setString("search.file", &cfg.SearchFile, fc.Search.File)

	setBool("data.collection", &cfg.DataCollection, fc.DataCollection)
	setString("dataset.dir", &cfg.DatasetDir, fc.Dataset.Dir)
	setBool("dataset.strictPerms", &cfg.DatasetStrictPerms, fc.Dataset.StrictPerms)
	setDuration("dataset.maxAge", &cfg.DatasetMaxAge, fc.Dataset.MaxAge)
	setBool("dataset.capturePages", &cfg.CapturePages, fc.Dataset.CapturePages)
	if fc.Dataset.MaxPages > 0 && !explicit["dataset.maxPages"] {
		cfg.MaxPages = fc.Dataset.MaxPages
	}

	setString("llm.base", &cfg.LLMBaseURL, fc.LLM.BaseURL)
	setString("llm.model", &cfg.LLMModel, fc.LLM.Model)
	setString("llm.key", &cfg.LLMAPIKey, fc.LLM.APIKey)
	setString("llm.systemPrompt", &cfg.SystemPrompt, fc.LLM.SystemPrompt)
	setBool("v", &cfg.Verbose, fc.Verbose)
}
