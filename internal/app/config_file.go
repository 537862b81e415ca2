package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/weblookup/internal/search"
)

// configRelPath is the config file location below the XDG config dirs.
const configRelPath = "weblookup/config.yaml"

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
	HTTP struct {
		UserAgent         string        `yaml:"userAgent" json:"userAgent"`
		Timeout           time.Duration `yaml:"timeout" json:"timeout"`
		MaxRetries        int           `yaml:"maxRetries" json:"maxRetries"`
		MaxConcurrent     int           `yaml:"maxConcurrent" json:"maxConcurrent"`
		RequestsPerSecond float64       `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	} `yaml:"http" json:"http"`

	Search struct {
		Providers  []string `yaml:"providers" json:"providers"`
		MaxResults int      `yaml:"maxResults" json:"maxResults"`
		File       string   `yaml:"file" json:"file"`
	} `yaml:"search" json:"search"`

	Domains search.DomainPolicy `yaml:"domains" json:"domains"`

	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
	} `yaml:"searx" json:"searx"`

	Mojeek struct {
		Key string `yaml:"key" json:"key"`
	} `yaml:"mojeek" json:"mojeek"`

	Tavily struct {
		Key string `yaml:"key" json:"key"`
	} `yaml:"tavily" json:"tavily"`

	SearchAPI struct {
		Key    string `yaml:"key" json:"key"`
		Engine string `yaml:"engine" json:"engine"`
	} `yaml:"searchapi" json:"searchapi"`

	Google struct {
		Engines []search.GoogleEngine `yaml:"engines" json:"engines"`
	} `yaml:"google" json:"google"`

	DuckDuckGo struct {
		Enable bool   `yaml:"enable" json:"enable"`
		Region string `yaml:"region" json:"region"`
	} `yaml:"duckduckgo" json:"duckduckgo"`

	Sitemap struct {
		MaxDepth int `yaml:"maxDepth" json:"maxDepth"`
	} `yaml:"sitemap" json:"sitemap"`

	Metrics struct {
		Addr string `yaml:"addr" json:"addr"`
	} `yaml:"metrics" json:"metrics"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the first weblookup/config.yaml found in the XDG
// config directories, or "" when there is none.
func DefaultConfigPath() string {
	p, err := xdg.SearchConfigFile(configRelPath)
	if err != nil {
		return ""
	}
	return p
}

// ApplyFileConfig overlays every value set in fc onto cfg. Call it on
// defaults, before env overrides and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if fc.HTTP.UserAgent != "" {
		cfg.UserAgent = fc.HTTP.UserAgent
	}
	if fc.HTTP.Timeout > 0 {
		cfg.HTTPTimeout = fc.HTTP.Timeout
	}
	if fc.HTTP.MaxRetries > 0 {
		cfg.MaxRetries = fc.HTTP.MaxRetries
	}
	if fc.HTTP.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.HTTP.MaxConcurrent
	}
	if fc.HTTP.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = fc.HTTP.RequestsPerSecond
	}

	if len(fc.Search.Providers) > 0 {
		cfg.Providers = append([]string{}, fc.Search.Providers...)
	}
	if fc.Search.MaxResults > 0 {
		cfg.MaxResultsPerProvider = fc.Search.MaxResults
	}
	if fc.Search.File != "" {
		cfg.FileSearchPath = fc.Search.File
	}
	if len(fc.Domains.Allowlist) > 0 {
		cfg.DomainAllowlist = append([]string{}, fc.Domains.Allowlist...)
	}
	if len(fc.Domains.Denylist) > 0 {
		cfg.DomainDenylist = append([]string{}, fc.Domains.Denylist...)
	}

	if fc.Searx.URL != "" {
		cfg.SearxURL = fc.Searx.URL
	}
	if fc.Searx.Key != "" {
		cfg.SearxKey = fc.Searx.Key
	}
	if fc.Mojeek.Key != "" {
		cfg.MojeekKey = fc.Mojeek.Key
	}
	if fc.Tavily.Key != "" {
		cfg.TavilyKey = fc.Tavily.Key
	}
	if fc.SearchAPI.Key != "" {
		cfg.SearchAPIKey = fc.SearchAPI.Key
	}
	if fc.SearchAPI.Engine != "" {
		cfg.SearchAPIEngine = fc.SearchAPI.Engine
	}
	if len(fc.Google.Engines) > 0 {
		cfg.GoogleEngines = append([]search.GoogleEngine{}, fc.Google.Engines...)
	}
	if fc.DuckDuckGo.Enable {
		cfg.DuckDuckGo = true
	}
	if fc.DuckDuckGo.Region != "" {
		cfg.DuckDuckGoRegion = fc.DuckDuckGo.Region
	}

	if fc.Sitemap.MaxDepth > 0 {
		cfg.SitemapMaxDepth = fc.Sitemap.MaxDepth
	}
	if fc.Metrics.Addr != "" {
		cfg.MetricsAddr = fc.Metrics.Addr
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation.
func ValidateConfig(cfg Config) error {
	if cfg.MaxRetries < 0 || cfg.MaxConcurrent < 0 || cfg.RequestsPerSecond < 0 || cfg.MaxResultsPerProvider < 0 || cfg.SitemapMaxDepth < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.HTTPTimeout < 0 {
		return errors.New("config: negative http timeout")
	}
	for _, name := range cfg.Providers {
		if !knownProvider(name) {
			return fmt.Errorf("config: unknown search provider %q", name)
		}
	}
	for i, e := range cfg.GoogleEngines {
		if strings.TrimSpace(e.APIKey) == "" || strings.TrimSpace(e.CX) == "" {
			return fmt.Errorf("config: google engine %d needs both apiKey and cx", i)
		}
	}
	return nil
}

func knownProvider(name string) bool {
	for _, p := range DefaultProviderOrder {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
