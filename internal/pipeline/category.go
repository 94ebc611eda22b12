package pipeline

import (
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// CategoryPolicy decides the category of each document.
type CategoryPolicy struct {
	// Known is the wiki's category list, already sorted by priority.
	Known []wiki.Category

	// Rules infer a category from the title prefix.
	Rules []wiki.CategoryRule

	// Default applies when nothing else matches.
	Default string

	// Redirect applies to redirect pages without an own or known
	// inferred category. Empty means redirects are treated like pages.
	Redirect string
}

// Assign picks the category for a document. The first known category the
// page lists wins. Next the title rules are tried, preferring a known
// category of the same name (case-insensitive). Redirects then fall back to
// the redirect category, other pages to the inferred text or the default.
func (p *CategoryPolicy) Assign(title string, pageCategories []string, redirect bool) *wiki.Category {
	if c := wiki.FindCategory(p.Known, pageCategories); c != nil {
		found := *c
		return &found
	}

	inferred, ok := wiki.InferCategory(title, p.Rules)
	if ok {
		if c := wiki.FindCategoryFold(p.Known, inferred); c != nil {
			found := *c
			return &found
		}
	}

	switch {
	case redirect && p.Redirect != "":
		return wiki.NewCategory(p.Redirect)
	case ok:
		return wiki.NewCategory(inferred)
	default:
		return wiki.NewCategory(p.Default)
	}
}
