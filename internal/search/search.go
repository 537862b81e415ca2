package search

import (
	"context"
	"net/url"
	"strings"
)

// DefaultMaxResults is the per-provider cap used when none is configured.
const DefaultMaxResults = 10

// Result represents a single search hit from any provider.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"` // provider name for attribution
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// Options tunes a single orchestrated search.
type Options struct {
	// MaxResultsPerProvider is passed to every provider as its limit.
	// Zero or negative means DefaultMaxResults.
	MaxResultsPerProvider int
}

func (o *Options) maxResults() int {
	if o == nil || o.MaxResultsPerProvider <= 0 {
		return DefaultMaxResults
	}
	return o.MaxResultsPerProvider
}

// DomainPolicy allows the client to drop results by host. Entries match the
// host itself and any subdomain. Denylist takes precedence over Allowlist;
// an empty Allowlist admits every host.
type DomainPolicy struct {
	Allowlist []string `yaml:"allow" json:"allow"`
	Denylist  []string `yaml:"deny" json:"deny"`
}

// Admits reports whether a result URL passes the policy. URLs without a
// host are only admitted when no allowlist is set.
func (p DomainPolicy) Admits(rawURL string) bool {
	if len(p.Allowlist) == 0 && len(p.Denylist) == 0 {
		return true
	}
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	for _, d := range p.Denylist {
		if matchesDomain(host, d) {
			return false
		}
	}
	if len(p.Allowlist) == 0 {
		return true
	}
	for _, d := range p.Allowlist {
		if matchesDomain(host, d) {
			return true
		}
	}
	return false
}

func matchesDomain(host, domain string) bool {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
