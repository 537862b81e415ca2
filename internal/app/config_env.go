package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/weblookup/internal/search"
)

// ApplyEnvOverrides overrides cfg fields with environment variables when the
// corresponding env vars are set. Env takes precedence over the config file
// while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := os.Getenv("WEBLOOKUP_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if s := os.Getenv("WEBLOOKUP_HTTP_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	setInt(&cfg.MaxRetries, "WEBLOOKUP_MAX_RETRIES")
	setInt(&cfg.MaxConcurrent, "WEBLOOKUP_MAX_CONCURRENT")
	setInt(&cfg.MaxResultsPerProvider, "WEBLOOKUP_MAX_RESULTS")
	setInt(&cfg.SitemapMaxDepth, "WEBLOOKUP_SITEMAP_MAX_DEPTH")
	if s := strings.TrimSpace(os.Getenv("WEBLOOKUP_RPS")); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
			cfg.RequestsPerSecond = f
		}
	}
	if v := splitList(os.Getenv("WEBLOOKUP_PROVIDERS")); len(v) > 0 {
		cfg.Providers = v
	}
	if v := os.Getenv("WEBLOOKUP_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	// Support both SEARX_URL and SEARXNG_URL; prefer SEARX_URL if set
	if v := os.Getenv("SEARXNG_URL"); v != "" {
		cfg.SearxURL = v
	}
	if v := os.Getenv("SEARX_URL"); v != "" {
		cfg.SearxURL = v
	}
	if v := os.Getenv("SEARXNG_KEY"); v != "" {
		cfg.SearxKey = v
	}
	if v := os.Getenv("SEARX_KEY"); v != "" {
		cfg.SearxKey = v
	}

	if v := os.Getenv("MOJEEK_API_KEY"); v != "" {
		cfg.MojeekKey = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		cfg.TavilyKey = v
	}
	if v := os.Getenv("SEARCHAPI_API_KEY"); v != "" {
		cfg.SearchAPIKey = v
	}
	if v := os.Getenv("SEARCHAPI_ENGINE"); v != "" {
		cfg.SearchAPIEngine = v
	}
	if v := os.Getenv("DUCKDUCKGO_REGION"); v != "" {
		cfg.DuckDuckGoRegion = v
	}
	if v := os.Getenv("SEARCH_FILE"); v != "" {
		cfg.FileSearchPath = v
	}

	// GOOGLE_API_KEY with GOOGLE_CX adds one engine; GOOGLE_CX may list
	// several comma-separated engine ids sharing that key.
	if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
		var engines []search.GoogleEngine
		for _, cx := range splitList(os.Getenv("GOOGLE_CX")) {
			engines = append(engines, search.GoogleEngine{APIKey: key, CX: cx})
		}
		if len(engines) > 0 {
			cfg.GoogleEngines = engines
		}
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.DuckDuckGo, "DUCKDUCKGO")
	setBool(&cfg.Verbose, "VERBOSE")
}

func setInt(dst *int, envKey string) {
	s := strings.TrimSpace(os.Getenv(envKey))
	if s == "" {
		return
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		*dst = n
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
