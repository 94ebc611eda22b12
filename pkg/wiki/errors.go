package wiki

import "errors"

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, wiki.ErrFetch).
var (
	// ErrFetch indicates a page could not be retrieved. Fatal for that document.
	ErrFetch = errors.New("page fetch failed")
	// ErrAssetFetch indicates an asset could not be retrieved. The asset is skipped.
	ErrAssetFetch = errors.New("asset fetch failed")
	// ErrUnsupportedScheme indicates an asset URL the fetcher cannot download (ftp, data, ...).
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	// ErrMissingElement indicates a structural element (heading, content, title) is absent.
	ErrMissingElement = errors.New("missing required element")
	// ErrNoUsableName indicates a name sanitized to the empty string.
	ErrNoUsableName = errors.New("no usable name")
)
