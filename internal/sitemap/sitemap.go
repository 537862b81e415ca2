package sitemap

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/weblookup/internal/fetch"
	"github.com/hyperifyio/weblookup/internal/metrics"
)

// DefaultMaxDepth bounds sitemap index recursion.
const DefaultMaxDepth = 10

// Entry is one <url> element of a urlset.
type Entry struct {
	URL             string     `json:"url"`
	LastModified    *time.Time `json:"lastModified,omitempty"`
	ChangeFrequency string     `json:"changeFrequency,omitempty"`
	Priority        *float64   `json:"priority,omitempty"`
}

// Crawler streams entries from a sitemap, following sitemap indexes depth-first.
// It is best-effort: documents that cannot be fetched or parsed contribute no
// entries and do not affect their siblings. Only cancellation is reported.
type Crawler struct {
	Client *fetch.Client
	// MaxDepth is the deepest index level that is still fetched. Zero means
	// DefaultMaxDepth; a negative value fetches the root document only.
	MaxDepth int
}

var errStopped = errors.New("consumer stopped")

// Stream lazily yields the entries reachable from uri. Each pair carries either
// an entry or, as the final element, the cancellation error that ended the walk.
func (c *Crawler) Stream(ctx context.Context, uri string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		err := c.walk(ctx, uri, 0, func(e Entry) bool { return yield(e, nil) })
		if err != nil && !errors.Is(err, errStopped) {
			yield(Entry{}, err)
		}
	}
}

// Collect drains Stream into a slice.
func (c *Crawler) Collect(ctx context.Context, uri string) ([]Entry, error) {
	var out []Entry
	for e, err := range c.Stream(ctx, uri) {
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Crawler) maxDepth() int {
	switch {
	case c.MaxDepth == 0:
		return DefaultMaxDepth
	case c.MaxDepth < 0:
		return 0
	}
	return c.MaxDepth
}

func (c *Crawler) walk(ctx context.Context, uri string, depth int, yield func(Entry) bool) error {
	if depth > c.maxDepth() {
		log.Debug().Str("url", uri).Int("depth", depth).Msg("sitemap depth limit reached")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := c.load(ctx, uri)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Debug().Err(err).Str("url", uri).Int("depth", depth).Msg("sitemap skipped")
		metrics.RecordSitemapFailure(strconv.Itoa(depth))
		return nil
	}

	if doc.index {
		for _, loc := range doc.children {
			if !isAbsoluteURL(loc) {
				continue
			}
			if err := c.walk(ctx, loc, depth+1, yield); err != nil {
				return err
			}
		}
		return nil
	}

	for _, e := range doc.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		metrics.RecordSitemapEntry()
		if !yield(e) {
			return errStopped
		}
	}
	return nil
}

// load fetches and fully parses one document. The response is closed before
// any entry is handed to the consumer.
func (c *Crawler) load(ctx context.Context, uri string) (*document, error) {
	client := c.Client
	if client == nil {
		client = &fetch.Client{}
	}
	resp, err := client.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !resp.OK() {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if isGzipPath(uri) || hasGzipEncoding(resp.Header.Get("Content-Encoding")) {
		body, err = maybeGunzip(body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
	}
	return parseDocument(body)
}

func isGzipPath(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".gz")
}

func hasGzipEncoding(v string) bool {
	for _, part := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(part), "gzip") {
			return true
		}
	}
	return false
}

// maybeGunzip decompresses r when it starts with the gzip magic number. The
// HTTP transport may already have removed a gzip content-encoding, in which
// case the bytes are passed through untouched.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		return br, nil
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return br, nil
	}
	return gzip.NewReader(br)
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}
