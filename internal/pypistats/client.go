// Package pypistats fetches daily download series from the pypistats.org API.
//
// A fetch either fully succeeds or the package is reported absent: transport
// failures, non-2xx responses and payloads that do not match the expected
// shape never surface as errors to the caller. They are logged at the point
// where they are swallowed.
package pypistats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verte-zerg/snakestats/internal/logger"
	"github.com/verte-zerg/snakestats/internal/model"
)

const (
	// DefaultBaseURL is the public pypistats API root.
	DefaultBaseURL = "https://pypistats.org/api"

	defaultUserAgent = "snakestats/1.0"
	defaultTimeout   = 30 * time.Second
	maxBodyBytes     = 8 << 20
)

var (
	ErrNotFound     = errors.New("package not found")
	ErrRateLimited  = errors.New("rate limited by upstream")
	ErrUpstreamDown = errors.New("upstream unavailable")
	ErrSchema       = errors.New("payload does not match schema")

	errUnexpectedStatus = errors.New("unexpected status")
)

// Fetcher retrieves one package's download series. The boolean is false
// when the package is absent.
type Fetcher interface {
	Fetch(ctx context.Context, pkg string) (model.PackageSeries, bool)
}

// Client fetches overall download series, mirrors excluded.
type Client struct {
	baseURL   string
	client    *http.Client
	userAgent string
	timeout   time.Duration
	breakers  *breakerSet
	stop      func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, replacing the DNS-caching default.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithTimeout bounds each individual fetch. A fetch that exceeds it is absent.
// Zero disables the per-fetch bound.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

// New creates a Client for the given API root. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		breakers:  newBreakerSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		transport, stop := newCachingTransport()
		c.client = &http.Client{Transport: transport}
		c.stop = stop
	}
	return c
}

// Close releases background resources held by the default transport.
func (c *Client) Close() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, pkg string) (model.PackageSeries, bool) {
	if strings.TrimSpace(pkg) == "" {
		return model.PackageSeries{}, false
	}
	series, err := c.fetchSeries(ctx, pkg)
	if err != nil {
		logger.Warn("fetch %s failed: %v", pkg, err)
		return model.PackageSeries{}, false
	}
	logger.Debug("fetched %s: %d points", pkg, len(series.Points))
	return series, true
}

// BreakerStates reports the circuit state ("open" or "closed") per upstream host.
func (c *Client) BreakerStates() map[string]string {
	return c.breakers.states()
}

// OverallURL builds the endpoint URL for pkg.
func (c *Client) OverallURL(pkg string) string {
	return fmt.Sprintf("%s/packages/%s/overall?mirrors=false", c.baseURL, url.PathEscape(pkg))
}

func (c *Client) fetchSeries(ctx context.Context, pkg string) (model.PackageSeries, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	endpoint := c.OverallURL(pkg)
	var series model.PackageSeries
	err := c.breakers.do(hostOf(endpoint), func() error {
		var fetchErr error
		series, fetchErr = c.doFetch(ctx, endpoint, pkg)
		return fetchErr
	})
	if err != nil {
		return model.PackageSeries{}, err
	}
	return series, nil
}

func (c *Client) doFetch(ctx context.Context, endpoint, pkg string) (model.PackageSeries, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return model.PackageSeries{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.PackageSeries{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decodeSeries(pkg, io.LimitReader(resp.Body, maxBodyBytes))
	case resp.StatusCode == http.StatusNotFound:
		return model.PackageSeries{}, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return model.PackageSeries{}, ErrRateLimited
	case resp.StatusCode >= 500:
		return model.PackageSeries{}, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUpstreamDown)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return model.PackageSeries{}, fmt.Errorf("%w %d: %s", errUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
