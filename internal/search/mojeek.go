package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

const mojeekEndpoint = "https://www.mojeek.com/search"

// Mojeek queries the Mojeek search API.
type Mojeek struct {
	APIKey     string
	BaseURL    string // defaults to the public endpoint
	HTTPClient *http.Client
	UserAgent  string
}

func (m *Mojeek) Name() string { return "mojeek" }

func (m *Mojeek) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if m.APIKey == "" {
		return nil, errors.New("missing mojeek api key")
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	u, err := url.Parse(orDefault(m.BaseURL, mojeekEndpoint))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("api_key", m.APIKey)
	q.Set("q", query)
	q.Set("t", strconv.Itoa(limit))
	q.Set("fmt", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	var mr mojeekResponse
	if err := doJSON(m.HTTPClient, req, m.Name(), m.UserAgent, &mr); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(mr.Response.Results))
	for _, r := range mr.Response.Results {
		var more bool
		if out, more = collect(out, Result{Title: r.Title, URL: r.URL, Description: r.Desc, Source: m.Name()}, limit); !more {
			break
		}
	}
	return out, nil
}

type mojeekResponse struct {
	Response struct {
		Results []struct {
			URL   string `json:"url"`
			Title string `json:"title"`
			Desc  string `json:"desc"`
		} `json:"results"`
	} `json:"response"`
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
