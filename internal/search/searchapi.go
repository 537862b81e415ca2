package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

const searchAPIEndpoint = "https://www.searchapi.io/api/v1/search"

// SearchAPI queries searchapi.io. Engine selects the upstream engine and
// defaults to "google".
type SearchAPI struct {
	APIKey     string
	Engine     string
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

func (s *SearchAPI) Name() string { return "searchapi" }

func (s *SearchAPI) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if s.APIKey == "" {
		return nil, errors.New("missing searchapi api key")
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	u, err := url.Parse(orDefault(s.BaseURL, searchAPIEndpoint))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("engine", orDefault(s.Engine, "google"))
	q.Set("q", query)
	q.Set("num", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	var sr struct {
		OrganicResults []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := doJSON(s.HTTPClient, req, s.Name(), s.UserAgent, &sr); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(sr.OrganicResults))
	for _, r := range sr.OrganicResults {
		var more bool
		if out, more = collect(out, Result{Title: r.Title, URL: r.Link, Description: r.Snippet, Source: s.Name()}, limit); !more {
			break
		}
	}
	return out, nil
}
