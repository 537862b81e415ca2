package fetch

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxRetries is the retry budget used by RoundTrip unless overridden.
	DefaultMaxRetries = 3
	// MaxBackoff caps the computed exponential delay. Server-directed
	// Retry-After delays are not capped.
	MaxBackoff = 30 * time.Second

	unknownHost = "unknown"
)

// RateLimitObserver is notified for every 429 response with the destination
// host and the parsed Retry-After delay (nil when absent or unparseable).
type RateLimitObserver func(host string, retryAfter *time.Duration)

// Transport is an http.RoundTripper that delays and retries requests answered
// with 429 Too Many Requests. Backoff state is kept per destination host and
// shared by every request going through the same Transport.
type Transport struct {
	base          http.RoundTripper
	maxRetries    int
	onRateLimited RateLimitObserver

	states sync.Map // host -> *backoffState

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithMaxRetries sets the number of retries after the initial attempt.
// Negative values are treated as zero.
func WithMaxRetries(n int) TransportOption {
	return func(t *Transport) {
		if n < 0 {
			n = 0
		}
		t.maxRetries = n
	}
}

// WithRateLimitObserver registers a callback invoked on every 429 response.
func WithRateLimitObserver(fn RateLimitObserver) TransportOption {
	return func(t *Transport) {
		t.onRateLimited = fn
	}
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, opts ...TransportOption) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		base:       base,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper using the configured retry budget
// and observer.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.Send(req, t.maxRetries, t.onRateLimited)
}

// Send issues req, retrying up to maxRetries times while the destination
// answers 429. Before every attempt it waits for the host's current backoff
// delay. Transport-level errors are returned as-is and never retried. When the
// retry budget is exhausted the final 429 response is returned to the caller.
func (t *Transport) Send(req *http.Request, maxRetries int, onRateLimited RateLimitObserver) (*http.Response, error) {
	host := hostKey(req)
	st := t.state(host)
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		if d := st.takeDelay(); d > 0 {
			log.Debug().Str("host", host).Dur("delay", d).Int("attempt", attempt).Msg("backoff delay")
			if err := t.sleep(ctx, d); err != nil {
				return nil, err
			}
		}

		out := req
		if attempt > 0 && hasBody(req) {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			out = req.Clone(ctx)
			out.Body = body
		}

		resp, err := t.base.RoundTrip(out)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			st.reset()
			return resp, nil
		}

		retryAfter := ParseRetryAfter(resp.Header, t.now())
		if onRateLimited != nil {
			onRateLimited(host, retryAfter)
		}
		st.recordFailure(retryAfter)

		if attempt >= maxRetries || (hasBody(req) && req.GetBody == nil) {
			return resp, nil
		}
		drainAndClose(resp.Body)
	}
}

// Failures reports the consecutive rate-limit failures recorded for host.
func (t *Transport) Failures(host string) int {
	v, ok := t.states.Load(normalizeHost(host))
	if !ok {
		return 0
	}
	st := v.(*backoffState)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.failures
}

// NextDelay reports the delay the next request to host would wait, without
// consuming a pending Retry-After override.
func (t *Transport) NextDelay(host string) time.Duration {
	v, ok := t.states.Load(normalizeHost(host))
	if !ok {
		return 0
	}
	st := v.(*backoffState)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.delayLocked(false)
}

func (t *Transport) state(host string) *backoffState {
	if v, ok := t.states.Load(host); ok {
		return v.(*backoffState)
	}
	v, _ := t.states.LoadOrStore(host, &backoffState{})
	return v.(*backoffState)
}

// backoffState is the per-host record. Its mutex is never held while sleeping
// or performing I/O.
type backoffState struct {
	mu       sync.Mutex
	failures int
	override *time.Duration
}

func (s *backoffState) takeDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delayLocked(true)
}

func (s *backoffState) delayLocked(consume bool) time.Duration {
	if s.override != nil {
		d := *s.override
		if consume {
			s.override = nil
		}
		return d
	}
	return backoffFor(s.failures)
}

func (s *backoffState) recordFailure(retryAfter *time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	if retryAfter != nil {
		d := *retryAfter
		s.override = &d
	}
}

func (s *backoffState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = 0
	s.override = nil
}

// backoffFor returns min(2^(failures-1) s, MaxBackoff), or zero without failures.
func backoffFor(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	// 2^5 already exceeds the cap; avoid overflowing the shift.
	if failures > 6 {
		return MaxBackoff
	}
	d := time.Duration(math.Pow(2, float64(failures-1))) * time.Second
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// ParseRetryAfter reads the Retry-After header in delta-seconds or HTTP-date
// form. Dates in the past yield a zero delay. It returns nil when the header is
// missing or malformed.
func ParseRetryAfter(h http.Header, now time.Time) *time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return nil
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return nil
		}
		d := time.Duration(secs) * time.Second
		return &d
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}

func hostKey(req *http.Request) string {
	if req == nil || req.URL == nil {
		return unknownHost
	}
	return normalizeHost(req.URL.Hostname())
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return unknownHost
	}
	return host
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	_ = body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
