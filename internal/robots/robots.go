package robots

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// RuleKind distinguishes Allow from Disallow directives.
type RuleKind int

const (
	Allow RuleKind = iota
	Disallow
)

func (k RuleKind) String() string {
	if k == Allow {
		return "Allow"
	}
	return "Disallow"
}

// Rule is a single Allow/Disallow directive scoped to a user agent.
type Rule struct {
	UserAgent string
	Kind      RuleKind
	Path      string
}

// Policy is the parsed form of one robots.txt document. Rules keep parse order.
type Policy struct {
	Rules      []Rule
	Sitemaps   []string
	CrawlDelay *time.Duration
}

// AllowAll is the policy used when a site has no robots.txt.
func AllowAll() Policy {
	return Policy{}
}

// DisallowAll is the policy used when robots.txt could not be retrieved.
func DisallowAll() Policy {
	return Policy{Rules: []Rule{{UserAgent: "*", Kind: Disallow, Path: "/"}}}
}

// Parse reads robots.txt text. It never fails: malformed lines and values are
// skipped. Rules are attributed to the most recent User-agent line, which
// starts out as "*".
//
// An empty Disallow value is dropped ("Disallow:" historically means allow
// everything), whereas an empty Allow value is kept as a match-all allow.
func Parse(text string) Policy {
	var p Policy
	agent := "*"
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:colon]))
		val := stripComment(strings.TrimSpace(line[colon+1:]))

		switch key {
		case "user-agent":
			if val != "" {
				agent = val
			}
		case "allow":
			p.Rules = append(p.Rules, Rule{UserAgent: agent, Kind: Allow, Path: val})
		case "disallow":
			if val != "" {
				p.Rules = append(p.Rules, Rule{UserAgent: agent, Kind: Disallow, Path: val})
			}
		case "crawl-delay":
			if d, ok := parseCrawlDelay(val); ok {
				p.CrawlDelay = &d
			}
		case "sitemap":
			if val != "" {
				p.Sitemaps = append(p.Sitemaps, val)
			}
		}
	}
	return p
}

// stripComment cuts the value at the first '#' not preceded by a backslash.
func stripComment(val string) string {
	for i := 0; i < len(val); i++ {
		if val[i] == '#' && (i == 0 || val[i-1] != '\\') {
			return strings.TrimSpace(val[:i])
		}
	}
	return val
}

func parseCrawlDelay(val string) (time.Duration, bool) {
	secs, err := strconv.ParseFloat(val, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, false
	}
	if secs > float64(math.MaxInt64)/float64(time.Second) {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// IsAllowed reports whether path may be fetched by userAgent ("" means "*").
//
// Decision policy:
//   - Use the rules whose agent equals userAgent (case-insensitive); if there
//     are none, use the rules for exactly "*".
//   - Among rules whose pattern matches path, the longest pattern wins. On a
//     length tie Allow beats Disallow.
//   - No applicable or matching rule means allowed.
func (p Policy) IsAllowed(path string, userAgent string) bool {
	rules := p.rulesFor(userAgent)
	if len(rules) == 0 {
		return true
	}

	var best *Rule
	bestLen := -1
	for i := range rules {
		r := &rules[i]
		if !matchPattern(r.Path, path) {
			continue
		}
		n := len(r.Path)
		if n > bestLen {
			best = r
			bestLen = n
		} else if n == bestLen && r.Kind == Allow {
			best = r
		}
	}
	if best == nil {
		return true
	}
	return best.Kind == Allow
}

func (p Policy) rulesFor(userAgent string) []Rule {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		ua = "*"
	}
	var specific []Rule
	for _, r := range p.Rules {
		if strings.EqualFold(r.UserAgent, ua) {
			specific = append(specific, r)
		}
	}
	if len(specific) > 0 {
		return specific
	}
	var wildcard []Rule
	for _, r := range p.Rules {
		if r.UserAgent == "*" {
			wildcard = append(wildcard, r)
		}
	}
	return wildcard
}

// matchPattern reports whether a robots path pattern matches path.
// Supported features: '*' matches any sequence and a trailing '$' anchors the
// match at the end of the path. Matching is anchored at the beginning of the
// path and is case-sensitive.
func matchPattern(pattern, path string) bool {
	if pattern == "" {
		return true
	}
	strictEnd := strings.HasSuffix(pattern, "$")
	if strictEnd {
		pattern = pattern[:len(pattern)-1]
	}

	if !strings.Contains(pattern, "*") {
		if strictEnd {
			return path == pattern
		}
		return strings.HasPrefix(path, pattern)
	}

	parts := strings.Split(pattern, "*")
	pos := 0
	if parts[0] != "" {
		if !strings.HasPrefix(path, parts[0]) {
			return false
		}
		pos = len(parts[0])
	}
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		idx := strings.Index(path[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	if strictEnd {
		return pos == len(path)
	}
	return true
}
