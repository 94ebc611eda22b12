// Package fetcher retrieves pages, listings and asset bytes from a MediaWiki
// site. Implement the Fetcher interface to read from another source, such as
// a local HTML dump.
package fetcher

import (
	"context"
	"time"

	"github.com/jmylchreest/wiki2docs/internal/version"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// Fetcher abstracts access to the wiki.
type Fetcher interface {
	// FetchHTML retrieves page markup. Any failure wraps wiki.ErrFetch.
	FetchHTML(ctx context.Context, url string) (Content, error)

	// FetchAsset retrieves asset bytes. Failures wrap wiki.ErrAssetFetch or
	// wiki.ErrUnsupportedScheme and mean "skip this asset".
	FetchAsset(ctx context.Context, url string) ([]byte, error)

	// ListPages walks the page index.
	ListPages(ctx context.Context) ([]PageRecord, error)

	// ListCategories walks the category index.
	ListCategories(ctx context.Context) ([]wiki.Category, error)
}

// Content represents fetched page data.
type Content struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// PageRecord is one entry of the page index.
type PageRecord struct {
	URL      string `json:"url" yaml:"url"`
	Title    string `json:"title" yaml:"title"`
	Redirect bool   `json:"redirect" yaml:"redirect"`
}

// Config holds configuration for the wiki client.
type Config struct {
	// BaseURL is the wiki root, e.g. "https://wiki.example.com/".
	BaseURL string

	// ArticlePath maps a title to a path, "$1" is replaced by the title.
	ArticlePath string

	UserAgent string
	Timeout   time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries   int
	RetryBackoff time.Duration

	RequestsPerSecond float64
	Burst             int

	Username string
	Password string

	// MaxAssetSize caps asset downloads in bytes. Zero means unlimited.
	MaxAssetSize int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ArticlePath:       "/wiki/$1",
		UserAgent:         version.UserAgent(),
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}
