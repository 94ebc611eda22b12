// Package cleaner provides interfaces and implementations for cleaning wiki pages.
// Cleaners mutate a parsed page in place, removing wiki chrome before assets,
// links and Markdown conversion are handled.
package cleaner

import "github.com/PuerkitoBio/goquery"

// Cleaner strips unwanted markup from a parsed page.
// Implementations mutate root in place and must be idempotent: cleaning an
// already cleaned tree changes nothing.
type Cleaner interface {
	// Clean mutates root and reports what was removed.
	Clean(root *goquery.Selection) *Result

	// Name returns the cleaner type for logging/debugging.
	Name() string
}
