package app

import (
	"time"

	"github.com/hyperifyio/weblookup/internal/search"
)

// Provider names accepted in Config.Providers.
const (
	ProviderFile       = "file"
	ProviderSearxNG    = "searxng"
	ProviderMojeek     = "mojeek"
	ProviderTavily     = "tavily"
	ProviderSearchAPI  = "searchapi"
	ProviderGoogle     = "google"
	ProviderDuckDuckGo = "duckduckgo"
)

// DefaultProviderOrder is used when Config.Providers is empty. Providers
// without the settings they need are skipped.
var DefaultProviderOrder = []string{
	ProviderFile,
	ProviderSearxNG,
	ProviderMojeek,
	ProviderTavily,
	ProviderSearchAPI,
	ProviderGoogle,
	ProviderDuckDuckGo,
}

// Config holds runtime configuration for the application.
type Config struct {
	// HTTP
	UserAgent         string
	HTTPTimeout       time.Duration
	MaxRetries        int
	MaxConcurrent     int
	RequestsPerSecond float64

	// Search
	Providers             []string
	MaxResultsPerProvider int
	DomainAllowlist       []string
	DomainDenylist        []string

	SearxURL         string
	SearxKey         string
	MojeekKey        string
	TavilyKey        string
	SearchAPIKey     string
	SearchAPIEngine  string
	GoogleEngines    []search.GoogleEngine
	DuckDuckGo       bool
	DuckDuckGoRegion string
	FileSearchPath   string

	// Site exploration. SitemapMaxDepth 0 reads the given sitemap only.
	SitemapMaxDepth int

	// Behavior
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns the built-in defaults that file, env and flags overlay.
func DefaultConfig() Config {
	return Config{
		UserAgent:             "weblookup/" + BuildVersion + " (+https://github.com/hyperifyio/weblookup)",
		HTTPTimeout:           30 * time.Second,
		MaxRetries:            3,
		MaxResultsPerProvider: search.DefaultMaxResults,
		SearchAPIEngine:       "google",
		SitemapMaxDepth:       10,
	}
}
