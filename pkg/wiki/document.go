// Package wiki holds the data model shared by the migration pipeline:
// documents, their assets, categories and the corpus-wide title index.
package wiki

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/wiki2docs/pkg/sanitize"
)

// Document is one wiki page on its way to the Markdown corpus.
// Title is the corpus-unique identity.
type Document struct {
	Title     string
	SourceURL string
	Heading   string
	Category  *Category
	Redirect  bool

	// Content is the retained content subtree. It is mutated by the cleaner,
	// the asset rewriter and later by the link resolver.
	Content *goquery.Selection

	// Assets is keyed by the original reference string found in Content.
	Assets map[string]AssetReference

	Warnings []Warning
}

// AssetReference is a binary file referenced from a document.
type AssetReference struct {
	Ref      string `json:"ref" yaml:"ref"`
	AbsURL   string `json:"abs_url" yaml:"abs_url"`
	FileName string `json:"file_name" yaml:"file_name"`
}

// CategoryText returns the assigned category text, or "" when none is set.
func (d *Document) CategoryText() string {
	if d.Category == nil {
		return ""
	}
	return d.Category.Text
}

// Dir returns the corpus-relative directory of the document.
func (d *Document) Dir() string {
	title := sanitize.Path(d.Title)
	category := sanitize.Path(d.CategoryText())
	if category == "" {
		return title
	}
	return category + "/" + title
}

// Route returns the root-relative link target of the document.
func (d *Document) Route() string {
	return "/" + d.Dir()
}

// Validate checks that the document can be written.
func (d *Document) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("%w: title", ErrMissingElement)
	}
	if d.Heading == "" {
		return fmt.Errorf("%w: heading for %q", ErrMissingElement, d.Title)
	}
	if d.Content == nil || d.Content.Length() == 0 {
		return fmt.Errorf("%w: content for %q", ErrMissingElement, d.Title)
	}
	if sanitize.Path(d.Title) == "" {
		return fmt.Errorf("%w: %q", ErrNoUsableName, d.Title)
	}
	return nil
}

// AddWarning records a non-fatal issue on the document.
func (d *Document) AddWarning(stage, message, context string) {
	d.Warnings = append(d.Warnings, Warning{
		Stage:   stage,
		Message: message,
		Context: context,
	})
}

// Warning represents a non-fatal issue encountered while processing a document.
type Warning struct {
	Stage   string `json:"stage" yaml:"stage"`
	Message string `json:"message" yaml:"message"`
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// String returns a formatted warning message.
func (w Warning) String() string {
	if w.Context != "" {
		return fmt.Sprintf("[%s] %s (context: %s)", w.Stage, w.Message, w.Context)
	}
	return fmt.Sprintf("[%s] %s", w.Stage, w.Message)
}
