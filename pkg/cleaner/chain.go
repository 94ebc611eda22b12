package cleaner

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ChainCleaner applies multiple cleaners in sequence.
// This allows composing the wiki cleaner with site-specific selector rules.
type ChainCleaner struct {
	cleaners []Cleaner
}

// NewChain creates a new cleaner that applies multiple cleaners in sequence.
// Cleaners are applied in the order provided.
//
// Example:
//
//	chain := cleaner.NewChain(
//	    cleaner.NewMediaWiki(nil),
//	    cleaner.NewSelector("div.ad", ".navbox"),
//	)
func NewChain(cleaners ...Cleaner) *ChainCleaner {
	return &ChainCleaner{
		cleaners: cleaners,
	}
}

// Clean applies all cleaners in sequence and merges their results.
func (c *ChainCleaner) Clean(root *goquery.Selection) *Result {
	start := time.Now()
	merged := &Result{Stats: NewStats()}
	for _, cleaner := range c.cleaners {
		merged.Merge(cleaner.Clean(root))
	}
	merged.Stats.TotalDuration = time.Since(start)
	return merged
}

// Name returns the names of all chained cleaners.
func (c *ChainCleaner) Name() string {
	names := make([]string, len(c.cleaners))
	for i, cleaner := range c.cleaners {
		names[i] = cleaner.Name()
	}
	return "chain(" + strings.Join(names, "->") + ")"
}
