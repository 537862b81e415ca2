package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/weblookup/internal/aggregate"
	"github.com/hyperifyio/weblookup/internal/metrics"
)

// Client fans a query out to every configured provider and merges the
// answers into one deduplicated list.
type Client struct {
	Providers []Provider
	// Policy filters merged results by host. The zero value admits everything.
	Policy DomainPolicy
}

// NewClient returns a client over providers. Their order is the merge order.
func NewClient(providers ...Provider) *Client {
	return &Client{Providers: providers}
}

// Search queries all providers concurrently and waits for every one of them.
// A failing provider contributes no results; the query as a whole only fails
// when ctx is cancelled. Results are concatenated in provider order and
// deduplicated by normalized URL, keeping the first occurrence.
func (c *Client) Search(ctx context.Context, query string, opts *Options) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := opts.maxResults()
	queryID := uuid.NewString()

	groups := make([][]Result, len(c.Providers))
	// No derived context: one provider failing must not cancel the others.
	var g errgroup.Group
	for i, p := range c.Providers {
		g.Go(func() error {
			start := time.Now()
			res, err := safeSearch(ctx, p, query, limit)
			metrics.RecordProviderCall(p.Name(), time.Since(start), err)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Err(err).Str("provider", p.Name()).Str("query_id", queryID).Msg("search provider failed")
				return nil
			}
			log.Debug().Str("provider", p.Name()).Str("query_id", queryID).Int("results", len(res)).Dur("elapsed", time.Since(start)).Msg("search provider done")
			groups[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := aggregate.Merge(groups, func(r Result) string { return r.URL })
	out := merged[:0]
	for _, r := range merged {
		if c.Policy.Admits(r.URL) {
			out = append(out, r)
		}
	}
	return out, nil
}

// safeSearch calls p.Search and turns a panic into an error.
func safeSearch(ctx context.Context, p Provider, query string, limit int) (res []Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("provider %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Search(ctx, query, limit)
}
