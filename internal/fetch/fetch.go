package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnsupportedScheme is returned for non-http(s) URLs.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Client wraps http.Client with a user agent, redirect cap, per-request
// timeout and optional client-side concurrency and rate limits. Status codes
// are not interpreted; callers decide what a 404 or 500 means for them.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request including reading the body.
	// Zero leaves timing to the caller's context.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int
	// RequestsPerSecond throttles request starts per client instance.
	// Zero means unlimited.
	RequestsPerSecond float64

	limiter     chan struct{}
	limiterOnce sync.Once

	throttle     *rate.Limiter
	throttleOnce sync.Once
}

// Response is an HTTP response whose body is still unread. Callers must close Body.
type Response struct {
	// URL is the final URL after redirects.
	URL        *url.URL
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

// Get issues a GET with context and user-agent. The returned body streams from
// the network; concurrency slots and timeouts are released when it is closed.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}

	cancel := context.CancelFunc(func() {})
	if c.PerRequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
	}
	done := func() {
		cancel()
		c.release()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		done()
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		done()
		return nil, err
	}
	return &Response{
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       &releasingBody{ReadCloser: resp.Body, release: done},
	}, nil
}

// releasingBody runs release exactly once on Close.
type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func (c *Client) wait(ctx context.Context) error {
	if c.RequestsPerSecond <= 0 {
		return ctx.Err()
	}
	c.throttleOnce.Do(func() {
		c.throttle = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1)
	})
	return c.throttle.Wait(ctx)
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
		// should not happen, but avoid blocking
	}
}
