package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/weblookup/internal/fetch"
)

// maxRobotsBytes bounds how much of a robots.txt body is parsed.
const maxRobotsBytes = 512 * 1024

// Fetcher retrieves and parses /robots.txt for a site.
type Fetcher struct {
	Client *fetch.Client
}

// Get fetches /robots.txt relative to baseURL. A 404 yields AllowAll; any other
// non-2xx status or a network failure yields DisallowAll. Only an invalid base
// URL or context cancellation produce an error.
func (f *Fetcher) Get(ctx context.Context, baseURL string) (Policy, error) {
	robotsURL, err := RobotsURL(baseURL)
	if err != nil {
		return Policy{}, err
	}
	client := f.Client
	if client == nil {
		client = &fetch.Client{}
	}

	resp, err := client.Get(ctx, robotsURL)
	if err != nil {
		if ctx.Err() != nil {
			return Policy{}, ctx.Err()
		}
		if errors.Is(err, fetch.ErrUnsupportedScheme) {
			return Policy{}, err
		}
		log.Debug().Err(err).Str("url", robotsURL).Msg("robots fetch failed; disallowing")
		return DisallowAll(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return AllowAll(), nil
	}
	if !resp.OK() {
		log.Debug().Int("status", resp.StatusCode).Str("url", robotsURL).Msg("robots unavailable; disallowing")
		return DisallowAll(), nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		if ctx.Err() != nil {
			return Policy{}, ctx.Err()
		}
		log.Debug().Err(err).Str("url", robotsURL).Msg("read robots; disallowing")
		return DisallowAll(), nil
	}
	return Parse(string(data)), nil
}

// RobotsURL resolves /robots.txt against an absolute base URL.
func RobotsURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("base url must be absolute: %q", baseURL)
	}
	return u.ResolveReference(&url.URL{Path: "/robots.txt"}).String(), nil
}
