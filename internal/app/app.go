package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/weblookup/internal/fetch"
	"github.com/hyperifyio/weblookup/internal/metrics"
	"github.com/hyperifyio/weblookup/internal/robots"
	"github.com/hyperifyio/weblookup/internal/search"
	"github.com/hyperifyio/weblookup/internal/sitemap"
)

// App wires the shared HTTP stack into the search client and site explorer.
// Every outbound request goes through one backoff transport so rate-limit
// state is shared per host across providers, robots and sitemaps.
type App struct {
	cfg       Config
	http      *http.Client
	transport *fetch.Transport

	Search   *search.Client
	Explorer *Explorer
}

func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	hc, bt := fetch.NewHTTPClient(cfg.HTTPTimeout,
		fetch.WithMaxRetries(cfg.MaxRetries),
		fetch.WithRateLimitObserver(logRateLimited),
	)
	a := &App{cfg: cfg, http: hc, transport: bt}

	providers, err := a.buildProviders()
	if err != nil {
		return nil, err
	}
	a.Search = search.NewClient(providers...)
	a.Search.Policy = search.DomainPolicy{Allowlist: cfg.DomainAllowlist, Denylist: cfg.DomainDenylist}

	fc := &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         cfg.UserAgent,
		MaxConcurrent:     cfg.MaxConcurrent,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
	a.Explorer = &Explorer{
		Robots:   &robots.Fetcher{Client: fc},
		Sitemaps: &sitemap.Crawler{Client: fc, MaxDepth: crawlerDepth(cfg.SitemapMaxDepth)},
	}
	return a, nil
}

// Transport exposes the shared backoff transport.
func (a *App) Transport() *fetch.Transport { return a.transport }

// SearchOptions returns the per-query options derived from the config.
func (a *App) SearchOptions() *search.Options {
	return &search.Options{MaxResultsPerProvider: a.cfg.MaxResultsPerProvider}
}

// crawlerDepth maps the configured depth onto sitemap.Crawler, where zero
// selects the default rather than the root document only.
func crawlerDepth(depth int) int {
	if depth == 0 {
		return -1
	}
	return depth
}

func logRateLimited(host string, retryAfter *time.Duration) {
	metrics.RecordRateLimited(host, retryAfter)
	ev := log.Warn().Str("host", host)
	if retryAfter != nil {
		ev = ev.Dur("retry_after", *retryAfter)
	}
	ev.Msg("rate limited")
}

// buildProviders returns the configured providers in configuration order.
// Names listed explicitly must be usable; in the default order providers
// without settings are skipped.
func (a *App) buildProviders() ([]search.Provider, error) {
	names := a.cfg.Providers
	explicit := len(names) > 0
	if !explicit {
		names = DefaultProviderOrder
	}
	var out []search.Provider
	seen := map[string]bool{}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			continue
		}
		seen[name] = true
		p := a.provider(name)
		if p == nil {
			if explicit {
				return nil, fmt.Errorf("search provider %q is not configured", name)
			}
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *App) provider(name string) search.Provider {
	cfg := a.cfg
	switch name {
	case ProviderFile:
		if cfg.FileSearchPath != "" {
			return &search.FileProvider{Path: cfg.FileSearchPath}
		}
	case ProviderSearxNG:
		if cfg.SearxURL != "" {
			return &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, HTTPClient: a.http, UserAgent: cfg.UserAgent}
		}
	case ProviderMojeek:
		if cfg.MojeekKey != "" {
			return &search.Mojeek{APIKey: cfg.MojeekKey, HTTPClient: a.http, UserAgent: cfg.UserAgent}
		}
	case ProviderTavily:
		if cfg.TavilyKey != "" {
			return &search.Tavily{APIKey: cfg.TavilyKey, HTTPClient: a.http, UserAgent: cfg.UserAgent}
		}
	case ProviderSearchAPI:
		if cfg.SearchAPIKey != "" {
			return &search.SearchAPI{APIKey: cfg.SearchAPIKey, Engine: cfg.SearchAPIEngine, HTTPClient: a.http, UserAgent: cfg.UserAgent}
		}
	case ProviderGoogle:
		if len(cfg.GoogleEngines) > 0 {
			return &search.Google{Engines: cfg.GoogleEngines, HTTPClient: a.http, UserAgent: cfg.UserAgent}
		}
	case ProviderDuckDuckGo:
		// Keyless, so it only joins the default order when enabled.
		if cfg.DuckDuckGo || len(cfg.Providers) > 0 {
			return &search.DuckDuckGo{Region: cfg.DuckDuckGoRegion, HTTPClient: a.http, UserAgent: cfg.UserAgent}
		}
	}
	return nil
}
