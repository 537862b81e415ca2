package fetch

import (
	"context"
	"net"
	"net/http"
	"time"
)

// NewHTTPClient returns an HTTP client tuned for parallel fan-out whose
// transport is wrapped by a rate-limit aware backoff Transport. The backoff
// Transport is returned as well so callers can share or inspect its state.
//
// timeout bounds each attempt, from dial until the body is closed. Backoff
// waits between attempts are not counted against it; callers bound the whole
// exchange through the request context.
func NewHTTPClient(timeout time.Duration, opts ...TransportOption) (*http.Client, *Transport) {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,  // no global limit
		MaxIdleConnsPerHost:   64, // per-host pool
		MaxConnsPerHost:       0,  // unlimited
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	bt := NewTransport(&attemptTimeout{base: base, timeout: timeout}, opts...)
	return &http.Client{Transport: bt}, bt
}

// attemptTimeout applies a deadline to a single round trip. The deadline
// stays armed until the response body is closed.
type attemptTimeout struct {
	base    http.RoundTripper
	timeout time.Duration
}

func (a *attemptTimeout) RoundTrip(req *http.Request) (*http.Response, error) {
	if a.timeout <= 0 {
		return a.base.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), a.timeout)
	resp, err := a.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: cancel}
	return resp, nil
}
