// Package fetcher downloads the outage page with retries and an optional
// short-lived cache.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/net/html/charset"

	"outage_bot/internal/metrics"
)

// UserAgent is sent with every request. The site rejects obvious bots.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const maxBodySize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError is returned once the retry budget is exhausted.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Fetcher downloads pages.
type Fetcher struct {
	client   HTTPClient
	attempts int
	backoff  time.Duration
	timeout  time.Duration
	cache    *pageCache
	metrics  metrics.Recorder
	log      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRetry sets the total number of attempts and the base delay. The wait
// before attempt n+1 is n times the base delay.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.attempts = attempts
		}
		f.backoff = backoff
	}
}

// WithTimeout bounds a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithCache keeps successful bodies for ttl. A zero ttl disables caching.
func WithCache(sizeBytes int, ttl time.Duration) Option {
	return func(f *Fetcher) {
		secs := int(ttl.Seconds())
		if secs <= 0 {
			return
		}
		f.cache = newPageCache(sizeBytes, secs)
	}
}

// WithMetrics records fetch outcomes.
func WithMetrics(rec metrics.Recorder) Option {
	return func(f *Fetcher) { f.metrics = rec }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(log *slog.Logger) Option {
	return func(f *Fetcher) { f.log = log }
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   client,
		attempts: 3,
		backoff:  2 * time.Second,
		timeout:  30 * time.Second,
		metrics:  metrics.Noop(),
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the decoded page body. Failures are retried with a linearly
// growing delay; after the last attempt a *FetchError is returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if body, ok := f.cached(url); ok {
		f.metrics.IncCacheHit()
		return body, nil
	}

	start := time.Now()
	attempts := 0
	var body string

	err := retry.Do(ctx, f.policy(), func(ctx context.Context) error {
		attempts++
		b, err := f.get(ctx, url)
		if err != nil {
			f.log.Warn("fetch attempt failed", "url", url, "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		body = b
		return nil
	})
	f.metrics.ObserveFetch(err == nil, attempts, time.Since(start))
	if err != nil {
		return "", &FetchError{URL: url, Attempts: attempts, Err: err}
	}

	f.store(url, body)
	return body, nil
}

// Forget drops a cached body so the next Fetch goes to the network.
func (f *Fetcher) Forget(url string) {
	if f.cache != nil {
		f.cache.del(url)
	}
}

func (f *Fetcher) policy() retry.Backoff {
	return retry.WithMaxRetries(uint64(f.attempts-1), linearBackoff(f.backoff))
}

func linearBackoff(base time.Duration) retry.Backoff {
	var n int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * base, false
	})
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "fa-IR,fa;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode}
	}

	r, err := charset.NewReader(io.LimitReader(resp.Body, maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

func (f *Fetcher) cached(url string) (string, bool) {
	if f.cache == nil {
		return "", false
	}
	return f.cache.get(url)
}

func (f *Fetcher) store(url, body string) {
	if f.cache == nil {
		return
	}
	if err := f.cache.set(url, body); err != nil {
		f.log.Warn("cache page", "url", url, "error", err)
	}
}
