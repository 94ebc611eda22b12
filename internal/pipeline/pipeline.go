// Package pipeline turns one raw wiki page into a document and renders
// documents to MDX-safe Markdown.
//
// Build runs once per fetched page: parse, read page categories, clean the
// tree, pick the heading and content region, then locate and rewrite
// assets. Render is pure with respect to the tree and may run again after
// the link resolver has rewritten anchors.
package pipeline

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/wiki2docs/internal/logger"
	"github.com/jmylchreest/wiki2docs/pkg/assets"
	"github.com/jmylchreest/wiki2docs/pkg/cleaner"
	"github.com/jmylchreest/wiki2docs/pkg/markdown"
	"github.com/jmylchreest/wiki2docs/pkg/shield"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

const (
	headingSelector      = "#firstHeading"
	contentSelector      = ".mw-parser-output"
	contentFallback      = "#bodyContent"
	pageCategorySelector = ".mw-normal-catlinks ul > li > a"
)

// Options configures a Pipeline. Nil fields take defaults.
type Options struct {
	// Cleaner prepares the page tree. Defaults to the MediaWiki cleaner.
	Cleaner cleaner.Cleaner

	Assets *assets.Config

	// Rewrites are applied to the Markdown body, see markdown.DefaultRewrites.
	Rewrites []markdown.Rewrite

	// Hooks run after the rewrites. Nil means markdown.DefaultHooks().
	Hooks []markdown.Hook

	// ExcludedCategories are page categories ignored for assignment.
	ExcludedCategories []string
}

// Page is the result of Build.
type Page struct {
	Document *wiki.Document

	// Categories are the page's own categories, minus excluded ones.
	Categories []string

	Clean  *cleaner.Result
	Assets *assets.Result
}

// Pipeline holds the per-document stages. It is safe for concurrent use as
// long as each document is handled by one goroutine.
type Pipeline struct {
	cleaner   cleaner.Cleaner
	locator   *assets.Locator
	converter *markdown.Converter
	post      *markdown.Postprocessor
	excluded  map[string]bool
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	c := opts.Cleaner
	if c == nil {
		c = cleaner.NewMediaWiki(cleaner.DefaultConfig())
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = markdown.DefaultHooks()
	}

	post, err := markdown.NewPostprocessor(opts.Rewrites, hooks...)
	if err != nil {
		return nil, fmt.Errorf("create postprocessor: %w", err)
	}

	excluded := make(map[string]bool, len(opts.ExcludedCategories))
	for _, name := range opts.ExcludedCategories {
		excluded[name] = true
	}

	return &Pipeline{
		cleaner:   c,
		locator:   assets.NewLocator(opts.Assets),
		converter: markdown.NewConverter(),
		post:      post,
		excluded:  excluded,
	}, nil
}

// Build parses markup fetched from sourceURL into a document. The category
// is left unset; see CategoryPolicy.
func (p *Pipeline) Build(markup, sourceURL string, redirect bool) (*Page, error) {
	title, err := wiki.TitleFromURL(sourceURL)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: source url %q: %v", wiki.ErrMissingElement, sourceURL, err)
	}

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", title, err)
	}

	// The category links are chrome the cleaner removes, read them first.
	categories := p.pageCategories(dom.Selection)

	cleaned := p.cleaner.Clean(dom.Selection)

	heading := strings.TrimSpace(dom.Find(headingSelector).First().Text())
	if heading == "" {
		return nil, fmt.Errorf("%w: %s in %q", wiki.ErrMissingElement, headingSelector, title)
	}

	content := dom.Find(contentSelector).First()
	if content.Length() == 0 {
		content = dom.Find(contentFallback).First()
	}
	if content.Length() == 0 {
		return nil, fmt.Errorf("%w: content region in %q", wiki.ErrMissingElement, title)
	}

	located := p.locator.LocateAndRewrite(content, base)

	doc := &wiki.Document{
		Title:     title,
		SourceURL: sourceURL,
		Heading:   heading,
		Redirect:  redirect,
		Content:   content,
		Assets:    located.Assets,
	}
	doc.Warnings = append(doc.Warnings, cleaned.Warnings...)
	doc.Warnings = append(doc.Warnings, located.Warnings...)

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	for _, w := range doc.Warnings {
		logger.Warn("document warning", "title", title, "stage", w.Stage, "message", w.Message, "context", w.Context)
	}
	removed := 0
	if cleaned.Stats != nil {
		removed = cleaned.Stats.TotalElementsRemoved()
	}
	logger.Debug("document built",
		"title", title,
		"heading", heading,
		"removed", removed,
		"assets", len(doc.Assets))

	return &Page{
		Document:   doc,
		Categories: categories,
		Clean:      cleaned,
		Assets:     located,
	}, nil
}

func (p *Pipeline) pageCategories(root *goquery.Selection) []string {
	var names []string
	root.Find(pageCategorySelector).Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		if name != "" && !p.excluded[name] {
			names = append(names, name)
		}
	})
	return names
}

// Render serialises the document's content and runs the Markdown stages:
// shield code blocks, convert, then postprocess with a fresh shield table.
func (p *Pipeline) Render(doc *wiki.Document) (string, error) {
	markup, err := doc.Content.Html()
	if err != nil {
		return "", fmt.Errorf("serialize %q: %w", doc.Title, err)
	}

	shielded, table := shield.Extract(markup)

	md, err := p.converter.Convert(shielded)
	if err != nil {
		return "", fmt.Errorf("convert %q: %w", doc.Title, err)
	}

	meta := markdown.FrontMatter{
		Heading:  doc.Heading,
		Category: doc.CategoryText(),
	}
	return p.post.Process(md, meta, table), nil
}
