package cleaner

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// SelectorCleaner removes every element matching a list of CSS selectors.
// It carries site-specific rules on top of the MediaWiki defaults.
type SelectorCleaner struct {
	selectors []string
}

// NewSelector creates a cleaner removing the given selectors.
func NewSelector(selectors ...string) *SelectorCleaner {
	return &SelectorCleaner{selectors: selectors}
}

// Clean removes matching elements. Invalid selectors are reported as warnings.
func (c *SelectorCleaner) Clean(root *goquery.Selection) *Result {
	start := time.Now()
	result := &Result{Stats: NewStats()}

	for _, selector := range c.selectors {
		matcher, err := compileSelector(selector)
		if err != nil {
			result.AddWarning("clean", "invalid selector skipped", selector)
			continue
		}
		selection := root.FindMatcher(matcher)
		if selection.Length() == 0 {
			continue
		}
		result.Stats.RecordSelectorMatch(selector, selection.Length())
		selection.Each(func(_ int, s *goquery.Selection) {
			result.Stats.RecordRemoval(goquery.NodeName(s))
		})
		selection.Remove()
	}

	result.Stats.TotalDuration = time.Since(start)
	return result
}

// Name returns the cleaner type.
func (c *SelectorCleaner) Name() string {
	return "selector"
}

// compileSelector reports invalid selectors instead of silently matching nothing.
func compileSelector(selector string) (goquery.Matcher, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}
	return sel, nil
}
