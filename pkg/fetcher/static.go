package fetcher

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"github.com/jmylchreest/wiki2docs/internal/logger"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// StatusError describes a failed request after all retries.
type StatusError struct {
	URL        string
	StatusCode int // 0 for transport errors
	Err        error
}

func (e *StatusError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Client uses Colly to talk to a MediaWiki site.
// It implements the Fetcher interface and is safe for concurrent use.
type Client struct {
	config  Config
	base    *url.URL
	limiter *RateLimiter
}

// NewClient creates a wiki client. Zero fields of cfg take DefaultConfig values.
func NewClient(cfg Config) (*Client, error) {
	defaults := DefaultConfig()
	cfg.ArticlePath = coalesce(cfg.ArticlePath, defaults.ArticlePath)
	cfg.UserAgent = coalesce(cfg.UserAgent, defaults.UserAgent)
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid wiki url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid wiki url %q: scheme and host required", cfg.BaseURL)
	}

	return &Client{
		config:  cfg,
		base:    base,
		limiter: NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}, nil
}

// BaseURL returns the parsed wiki root.
func (f *Client) BaseURL() *url.URL {
	u := *f.base
	return &u
}

// ArticleURL returns the absolute URL of a page title.
func (f *Client) ArticleURL(title string) string {
	// Subpage titles keep their slashes
	escaped := strings.ReplaceAll(url.PathEscape(strings.ReplaceAll(title, " ", "_")), "%2F", "/")
	ref, err := url.Parse(strings.ReplaceAll(f.config.ArticlePath, "$1", escaped))
	if err != nil {
		return f.base.String()
	}
	return f.base.ResolveReference(ref).String()
}

// FetchHTML retrieves page markup.
func (f *Client) FetchHTML(ctx context.Context, targetURL string) (Content, error) {
	logger.Debug("page fetch starting", "url", targetURL)

	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	resp, err := f.get(ctx, targetURL, 0)
	if resp != nil {
		result.StatusCode = resp.StatusCode
	}
	if err != nil {
		return result, fmt.Errorf("%w: %w", wiki.ErrFetch, err)
	}

	result.ContentType = resp.Headers.Get("Content-Type")
	result.HTML = decodeBody(resp.Body, result.ContentType)

	logger.Debug("page fetch complete",
		"url", targetURL,
		"status", result.StatusCode,
		"size", humanize.Bytes(uint64(len(resp.Body))))
	return result, nil
}

// FetchAsset retrieves asset bytes over http(s).
func (f *Client) FetchAsset(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", wiki.ErrAssetFetch, rawURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q in %s", wiki.ErrUnsupportedScheme, u.Scheme, rawURL)
	}

	// One byte over the cap tells a truncated body from an exact fit
	maxBody := 0
	if f.config.MaxAssetSize > 0 {
		maxBody = int(f.config.MaxAssetSize) + 1
	}

	resp, err := f.get(ctx, rawURL, maxBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", wiki.ErrAssetFetch, err)
	}
	if f.config.MaxAssetSize > 0 && int64(len(resp.Body)) > f.config.MaxAssetSize {
		return nil, fmt.Errorf("%w: %s exceeds %s", wiki.ErrAssetFetch, rawURL, humanize.Bytes(uint64(f.config.MaxAssetSize)))
	}

	logger.Debug("asset fetch complete", "url", rawURL, "size", humanize.Bytes(uint64(len(resp.Body))))
	return resp.Body, nil
}

// get performs a request with pacing and retries. Transport errors, 429 and
// 5xx responses are retried with exponential backoff; other failures return
// immediately.
func (f *Client) get(ctx context.Context, targetURL string, maxBody int) (*colly.Response, error) {
	var lastErr error
	var lastResp *colly.Response

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := f.config.RetryBackoff << (attempt - 1)
			logger.Debug("retrying request", "url", targetURL, "attempt", attempt, "wait", wait)
			if err := sleep(ctx, wait); err != nil {
				return lastResp, err
			}
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := f.fetchOnce(ctx, targetURL, maxBody)
		if err == nil {
			return resp, nil
		}

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		lastResp = resp
		lastErr = &StatusError{URL: targetURL, StatusCode: status, Err: err}

		if ctx.Err() != nil || !retryable(status) {
			return resp, lastErr
		}
		if (status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable) && resp.Headers != nil {
			f.limiter.Backoff(retryAfter(resp.Headers.Get("Retry-After"), f.config.RetryBackoff))
		}
		logger.Warn("request failed", "url", targetURL, "status", status, "attempt", attempt+1, "error", err)
	}

	return lastResp, lastErr
}

// fetchOnce creates a new collector for each request.
func (f *Client) fetchOnce(ctx context.Context, targetURL string, maxBody int) (*colly.Response, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.StdlibContext(ctx),
		colly.MaxBodySize(maxBody),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(f.config.Timeout)

	if f.config.Username != "" || f.config.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(f.config.Username + ":" + f.config.Password))
		c.OnRequest(func(r *colly.Request) {
			r.Headers.Set("Authorization", "Basic "+credentials)
		})
	}

	var (
		response *colly.Response
		fetchErr error
	)

	c.OnResponse(func(r *colly.Response) {
		response = r
	})

	c.OnError(func(r *colly.Response, err error) {
		response = r
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr == nil && response == nil {
		fetchErr = errors.New("no response")
	}
	return response, fetchErr
}

func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// decodeBody converts legacy encodings to UTF-8 using the declared charset
// or, failing that, the markup's meta tags.
func decodeBody(body []byte, contentType string) string {
	if utf8.Valid(body) {
		return string(body)
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
