package wiki

import (
	"sort"
	"strings"
)

// Category is a wiki category as listed on Special:Categories.
// Text is the identity; Count is nil when the listing did not show one.
type Category struct {
	Title string `json:"title" yaml:"title"`
	Text  string `json:"text" yaml:"text"`
	Count *int   `json:"count,omitempty" yaml:"count,omitempty"`
}

// NewCategory creates a category without a member count.
func NewCategory(text string) *Category {
	return &Category{Title: "Category:" + text, Text: text}
}

// CategoryRule maps a title prefix to a category.
type CategoryRule struct {
	Prefix   string `mapstructure:"prefix" yaml:"prefix" validate:"required"`
	Category string `mapstructure:"category" yaml:"category" validate:"required"`
}

// DefaultCategoryRules returns the prefix table used when a page carries no
// category of its own. Rules are evaluated in order, first match wins.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Prefix: "Magento 2 Extensions", Category: "Magento 2 Extensions"},
		{Prefix: "Magento Extensions", Category: "Magento Extensions"},
		{Prefix: "Magento Integration Suite", Category: "Magento Integration Suite"},
		{Prefix: "Product Feed Setup", Category: "Product Feed Setup"},
		{Prefix: "Connectors", Category: "Connectors"},
		{Prefix: "Private", Category: "Private"},
		{Prefix: "Feed Wizard", Category: "Feed Wizard"},
		{Prefix: "Troubleshooting", Category: "Troubleshooting"},
		{Prefix: "FTP", Category: "General Information"},
		{Prefix: "Order Export", Category: "General Information"},
		{Prefix: "Error", Category: "Troubleshooting"},
		{Prefix: "AOE Scheduler", Category: "General Information"},
	}
}

// InferCategory returns the category of the first rule whose prefix,
// followed by "/" or ":", starts the title. Underscores count as spaces.
func InferCategory(title string, rules []CategoryRule) (string, bool) {
	normalized := strings.ReplaceAll(title, "_", " ")
	for _, rule := range rules {
		if strings.HasPrefix(normalized, rule.Prefix+"/") || strings.HasPrefix(normalized, rule.Prefix+":") {
			return rule.Category, true
		}
	}
	return "", false
}

// SortCategories orders categories by member count (largest first), then by text.
// Categories without a count sort after counted ones. The input is not modified.
func SortCategories(categories []Category) []Category {
	sorted := make([]Category, len(categories))
	copy(sorted, categories)

	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := sorted[i].Count, sorted[j].Count
		switch {
		case ci != nil && cj == nil:
			return true
		case ci == nil && cj != nil:
			return false
		case ci != nil && cj != nil && *ci != *cj:
			return *ci > *cj
		}
		return sorted[i].Text < sorted[j].Text
	})
	return sorted
}

// FindCategory returns the first category whose text equals one of names,
// scanning categories in order.
func FindCategory(categories []Category, names []string) *Category {
	for i := range categories {
		for _, name := range names {
			if categories[i].Text == name {
				return &categories[i]
			}
		}
	}
	return nil
}

// FindCategoryFold is FindCategory with case-insensitive matching for a single name.
func FindCategoryFold(categories []Category, name string) *Category {
	for i := range categories {
		if strings.EqualFold(categories[i].Text, name) {
			return &categories[i]
		}
	}
	return nil
}
