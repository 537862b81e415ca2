package app

import (
	"context"
	"errors"
	"iter"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/weblookup/internal/robots"
	"github.com/hyperifyio/weblookup/internal/sitemap"
)

// Explorer combines robots.txt and sitemaps to describe a site.
type Explorer struct {
	Robots   *robots.Fetcher
	Sitemaps *sitemap.Crawler
}

// Policy fetches and parses the robots.txt of the site base belongs to.
func (e *Explorer) Policy(ctx context.Context, base string) (robots.Policy, error) {
	return e.Robots.Get(ctx, base)
}

// IsAllowed reports whether userAgent may fetch target according to the
// robots.txt of target's site.
func (e *Explorer) IsAllowed(ctx context.Context, target, userAgent string) (bool, error) {
	u, err := url.Parse(target)
	if err != nil {
		return false, err
	}
	p, err := e.Robots.Get(ctx, target)
	if err != nil {
		return false, err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return p.IsAllowed(path, userAgent), nil
}

// SitemapURLs returns the sitemaps declared in the site's robots.txt, or
// <site>/sitemap.xml when robots.txt names none.
func (e *Explorer) SitemapURLs(ctx context.Context, base string) ([]string, error) {
	p, err := e.Robots.Get(ctx, base)
	if err != nil {
		return nil, err
	}
	if len(p.Sitemaps) > 0 {
		return p.Sitemaps, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	ref, _ := url.Parse("/sitemap.xml")
	return []string{u.ResolveReference(ref).String()}, nil
}

// Entries streams the entries of every sitemap the site declares, one
// sitemap after another.
func (e *Explorer) Entries(ctx context.Context, base string) iter.Seq2[sitemap.Entry, error] {
	return func(yield func(sitemap.Entry, error) bool) {
		urls, err := e.SitemapURLs(ctx, base)
		if err != nil {
			yield(sitemap.Entry{}, err)
			return
		}
		for _, su := range urls {
			log.Debug().Str("url", su).Msg("reading sitemap")
			for entry, err := range e.Sitemaps.Stream(ctx, su) {
				if !yield(entry, err) {
					return
				}
				if err != nil {
					return
				}
			}
		}
	}
}

// ErrNoEntries is returned by CollectEntries when a site exposes no
// sitemap entries at all.
var ErrNoEntries = errors.New("no sitemap entries found")

// CollectEntries drains Entries into a slice.
func (e *Explorer) CollectEntries(ctx context.Context, base string) ([]sitemap.Entry, error) {
	var out []sitemap.Entry
	for entry, err := range e.Entries(ctx, base) {
		if err != nil {
			return out, err
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return nil, ErrNoEntries
	}
	return out, nil
}
