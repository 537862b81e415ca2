package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleEngine is one Programmable Search Engine: an API key and engine id.
type GoogleEngine struct {
	APIKey string `yaml:"apiKey" json:"apiKey"`
	CX     string `yaml:"cx" json:"cx"`
}

// Google queries the Custom Search JSON API across several engines at once.
// An engine that fails is skipped; the others still contribute.
type Google struct {
	Engines    []GoogleEngine
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

func (g *Google) Name() string { return "google" }

func (g *Google) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	// The API refuses num > 10.
	num := min(limit, 10)

	batches := make([][]Result, len(g.Engines))
	var eg errgroup.Group
	for i, engine := range g.Engines {
		eg.Go(func() error {
			res, err := g.searchEngine(ctx, engine, query, num)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Debug().Err(err).Str("provider", g.Name()).Str("cx", engine.CX).Msg("google engine failed")
				return nil
			}
			batches[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	out := make([]Result, 0, num)
	for _, batch := range batches {
		for _, r := range batch {
			key := strings.ToLower(r.URL)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r)
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (g *Google) searchEngine(ctx context.Context, engine GoogleEngine, query string, num int) (out []Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("google engine %s panicked: %v", engine.CX, r)
		}
	}()
	u, err := url.Parse(orDefault(g.BaseURL, googleEndpoint))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("key", engine.APIKey)
	q.Set("cx", engine.CX)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(num))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	var gr struct {
		Items []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := doJSON(g.HTTPClient, req, g.Name(), g.UserAgent, &gr); err != nil {
		return nil, err
	}
	out = make([]Result, 0, len(gr.Items))
	for _, it := range gr.Items {
		var more bool
		if out, more = collect(out, Result{Title: it.Title, URL: it.Link, Description: it.Snippet, Source: g.Name()}, num); !more {
			break
		}
	}
	return out, nil
}
