package aggregate

import (
	"net/url"
	"strings"
)

// Merge concatenates groups in order and drops every item whose normalized
// URL was already seen. The first occurrence wins and is returned unchanged,
// so callers keep the original URL and whatever attribution it carries.
// Dedup keys are compared case-insensitively.
func Merge[T any](groups [][]T, urlOf func(T) string) []T {
	seen := map[string]struct{}{}
	out := make([]T, 0, 64)
	for _, g := range groups {
		for _, item := range g {
			key := strings.ToLower(NormalizeURL(urlOf(item)))
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// NormalizeURL returns the canonical form used as a dedup key: scheme and
// host lower-cased, default port dropped, trailing slash trimmed from the
// path, fragment removed, query kept verbatim. Input that is not an absolute
// URL is only lower-cased.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return strings.ToLower(raw)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		// IPv6 literal
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host += ":" + port
	}
	path := strings.TrimRight(u.EscapedPath(), "/")

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}
