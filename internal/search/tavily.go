package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily queries the Tavily search API. The key travels in the JSON body.
type Tavily struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if t.APIKey == "" {
		return nil, errors.New("missing tavily api key")
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	body, err := json.Marshal(tavilyRequest{APIKey: t.APIKey, Query: query, MaxResults: limit})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, orDefault(t.BaseURL, tavilyEndpoint), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var tr tavilyResponse
	if err := doJSON(t.HTTPClient, req, t.Name(), t.UserAgent, &tr); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(tr.Results))
	for _, r := range tr.Results {
		var more bool
		if out, more = collect(out, Result{Title: r.Title, URL: r.URL, Description: r.Content, Source: t.Name()}, limit); !more {
			break
		}
	}
	return out, nil
}
