package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the keyless HTML endpoint.
type DuckDuckGo struct {
	// Region is the optional kl parameter, e.g. "us-en".
	Region     string
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	form := url.Values{}
	form.Set("q", query)
	if d.Region != "" {
		form.Set("kl", d.Region)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, orDefault(d.BaseURL, duckDuckGoEndpoint), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "https://html.duckduckgo.com/")
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
	resp, err := clientOrDefault(d.HTTPClient).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("duckduckgo status: %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo parse: %w", err)
	}
	return parseDuckDuckGo(doc, d.Name(), limit), nil
}

// parseDuckDuckGo reads the .result blocks of a results page.
func parseDuckDuckGo(doc *goquery.Document, source string, limit int) []Result {
	var out []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target, ok := decodeDuckDuckGoURL(href)
		if !ok {
			return true
		}
		var more bool
		out, more = collect(out, Result{
			Title:       link.Text(),
			URL:         target,
			Description: s.Find(".result__snippet").First().Text(),
			Source:      source,
		}, limit)
		return more
	})
	return out
}

// decodeDuckDuckGoURL unwraps the uddg redirect parameter and accepts only
// absolute http(s) targets.
func decodeDuckDuckGoURL(href string) (string, bool) {
	target := href
	if u, err := url.Parse(href); err == nil {
		if v := u.Query().Get("uddg"); v != "" {
			target = v
		}
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}
