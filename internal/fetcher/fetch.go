package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/darteve/internal/metrics"
	"github.com/voyagen/darteve/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// maxBody caps how much of an upstream response is read.
const maxBody = 32 << 20

// StatusError is returned when upstream answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d", e.Code) }

// Options configures a Client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// ProxyURL is the relay endpoint; the original URL is passed as the "url" query parameter.
	// Empty disables the proxy fallback.
	ProxyURL string
	// ProxyRate limits relay requests per second (0 = unlimited).
	ProxyRate float64
	Transport http.RoundTripper
}

// Client fetches upstream documents, first directly and then through the relay proxy.
type Client struct {
	http      *http.Client
	userAgent string
	proxyURL  string
	limiter   *rate.Limiter
}

// New creates a Client. A zero Timeout means 30s.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := &Client{
		http:      &http.Client{Timeout: opts.Timeout, Transport: tracing.Transport(opts.Transport)},
		userAgent: opts.UserAgent,
		proxyURL:  opts.ProxyURL,
	}
	if opts.ProxyRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.ProxyRate), 1)
	}
	return c
}

// Fetch returns the body of rawURL. A failed direct request is retried once through
// the relay proxy before giving up.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, span := tracing.Tracer().Start(ctx, "fetcher.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", rawURL))

	label := hostOf(rawURL)
	body, err := c.Get(ctx, rawURL, nil)
	metrics.RecordFetch(label, "direct", err)
	if err == nil {
		return body, nil
	}
	if c.proxyURL == "" || ctx.Err() != nil {
		span.RecordError(err)
		return nil, err
	}
	log.Debug().Str("url", rawURL).Err(err).Msg("direct fetch failed, trying relay")

	relayed, perr := c.viaProxy(ctx, rawURL)
	metrics.RecordFetch(label, "proxy", perr)
	if perr != nil {
		err = fmt.Errorf("direct: %w; proxy: %w", err, perr)
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("proxied", true))
	return relayed, nil
}

func (c *Client) viaProxy(ctx context.Context, rawURL string) ([]byte, error) {
	proxied, err := ProxyURL(c.proxyURL, rawURL)
	if err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("proxy rate limit: %w", err)
		}
	}
	return c.Get(ctx, proxied, nil)
}

// Get performs a single GET with optional extra headers and returns the body.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}
	return body, nil
}

// ProxyURL builds the relay URL for target.
func ProxyURL(proxy, target string) (string, error) {
	u, err := url.Parse(proxy)
	if err != nil {
		return "", fmt.Errorf("parse proxy url: %w", err)
	}
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// IsStatus reports whether err carries an upstream HTTP status.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
