package cleaner

import "github.com/PuerkitoBio/goquery"

// NoopCleaner passes content through without modification.
// Use this to inspect how a page converts with its wiki chrome intact.
type NoopCleaner struct{}

// NewNoop creates a new no-op cleaner.
func NewNoop() *NoopCleaner {
	return &NoopCleaner{}
}

// Clean leaves root unchanged.
func (c *NoopCleaner) Clean(_ *goquery.Selection) *Result {
	return &Result{Stats: NewStats()}
}

// Name returns the cleaner type.
func (c *NoopCleaner) Name() string {
	return "noop"
}
