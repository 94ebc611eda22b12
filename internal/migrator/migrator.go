// Package migrator runs a full wiki migration in two phases.
//
// Phase one lists categories and pages, then builds, categorises, renders
// and writes every page with its assets. Phase two builds the title index
// from all documents, resolves internal links in every retained tree and
// writes each document again. Category metadata and the sidebar are
// emitted last.
package migrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/wiki2docs/internal/logger"
	"github.com/jmylchreest/wiki2docs/internal/output"
	"github.com/jmylchreest/wiki2docs/internal/pipeline"
	"github.com/jmylchreest/wiki2docs/pkg/fetcher"
	"github.com/jmylchreest/wiki2docs/pkg/links"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// Failure stages reported for pages that could not be migrated.
const (
	StageFetch  = "fetch"
	StageBuild  = "build"
	StageRender = "render"
	StageWrite  = "write"
	StageLinks  = "links"
)

// skipMarkers identify special and category pages in listing URLs.
var skipMarkers = []string{"/Special:", "/Category:", "title=Special:", "title=Category:"}

// Options configures a run.
type Options struct {
	WikiURL string

	// IncludeRedirects migrates redirect pages as documents of their own.
	IncludeRedirects bool

	// SidebarPath is where sidebars.js goes. Empty skips it.
	SidebarPath string

	// Policy assigns categories. Its Known list is filled from the wiki.
	Policy pipeline.CategoryPolicy
}

// Migrator orchestrates a run. It is not safe for concurrent use.
type Migrator struct {
	source   fetcher.Fetcher
	pipeline *pipeline.Pipeline
	corpus   *output.Corpus
	opts     Options
}

// New creates a Migrator.
func New(source fetcher.Fetcher, p *pipeline.Pipeline, corpus *output.Corpus, opts Options) *Migrator {
	return &Migrator{
		source:   source,
		pipeline: p,
		corpus:   corpus,
		opts:     opts,
	}
}

// migrated pairs a document with its report entry.
type migrated struct {
	doc   *wiki.Document
	entry output.DocumentEntry
}

// Run performs the migration. Listing errors and cancellation abort the
// run; per-page failures are recorded in the report and skipped.
func (m *Migrator) Run(ctx context.Context) (*output.Report, error) {
	report := &output.Report{
		WikiURL:   m.opts.WikiURL,
		OutputDir: m.corpus.Root(),
		StartedAt: time.Now(),
	}

	categories, err := m.source.ListCategories(ctx)
	if err != nil {
		return report, fmt.Errorf("list categories: %w", err)
	}
	sorted := wiki.SortCategories(categories)
	policy := m.opts.Policy
	policy.Known = sorted

	records, err := m.source.ListPages(ctx)
	if err != nil {
		return report, fmt.Errorf("list pages: %w", err)
	}
	pages, redirects := partition(records)
	if !m.opts.IncludeRedirects && len(redirects) > 0 {
		logger.Info("skipping redirects", "count", len(redirects))
		redirects = nil
	}

	logger.Info("migration starting",
		"categories", len(sorted),
		"pages", len(pages),
		"redirects", len(redirects))

	// Phase one: build and write every page.
	var docs []*migrated
	byTitle := make(map[string]int)

	for _, rec := range append(pages, redirects...) {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			return report, err
		}

		target := rec.URL
		if rec.Redirect {
			target = NoRedirectURL(rec.URL)
		}

		item, stage, err := m.migrate(ctx, target, rec.Redirect, &policy)
		if err != nil {
			if ctx.Err() != nil {
				report.FinishedAt = time.Now()
				return report, ctx.Err()
			}
			logger.ErrorContext(ctx, "page skipped", "url", target, "stage", stage, "error", err)
			report.Failures = append(report.Failures, output.Failure{
				Title: rec.Title,
				URL:   target,
				Stage: stage,
				Error: err.Error(),
			})
			continue
		}

		// Titles are unique in the corpus, a later page replaces an earlier one.
		if i, ok := byTitle[item.doc.Title]; ok {
			logger.Warn("duplicate title, keeping the later page", "title", item.doc.Title, "url", target)
			docs[i] = item
			continue
		}
		byTitle[item.doc.Title] = len(docs)
		docs = append(docs, item)
	}

	// Phase two: resolve links against the complete corpus.
	m.resolveLinks(docs, report)

	report.Categories = m.writeCategories(sorted, docs)

	if m.opts.SidebarPath != "" {
		sidebar := output.BuildSidebar(sorted, documents(docs))
		if err := output.WriteSidebarFile(m.opts.SidebarPath, sidebar); err != nil {
			return report, err
		}
		logger.Info("sidebar written", "path", m.opts.SidebarPath)
	}

	for _, item := range docs {
		item.entry.Warnings = item.doc.Warnings
		report.Documents = append(report.Documents, item.entry)
	}
	report.FinishedAt = time.Now()

	logger.Info("migration complete", "summary", report.Summary().String())
	return report, nil
}

// migrate handles one page through phase one. On failure it returns the
// stage that failed.
func (m *Migrator) migrate(ctx context.Context, target string, redirect bool, policy *pipeline.CategoryPolicy) (*migrated, string, error) {
	content, err := m.source.FetchHTML(ctx, target)
	if err != nil {
		return nil, StageFetch, err
	}

	page, err := m.pipeline.Build(content.HTML, target, redirect)
	if err != nil {
		return nil, StageBuild, err
	}
	doc := page.Document
	doc.Category = policy.Assign(doc.Title, page.Categories, redirect)

	md, err := m.pipeline.Render(doc)
	if err != nil {
		return nil, StageRender, err
	}
	path, err := m.corpus.WriteDocument(doc, md)
	if err != nil {
		return nil, StageWrite, err
	}
	logger.InfoContext(ctx, "document written", "title", doc.Title, "category", doc.CategoryText(), "path", path)

	entry := output.DocumentEntry{
		Title:     doc.Title,
		Heading:   doc.Heading,
		Category:  doc.CategoryText(),
		SourceURL: target,
		Path:      path,
		Redirect:  redirect,
		Assets:    m.writeAssets(ctx, doc, page.Assets.Ordered()),
	}
	return &migrated{doc: doc, entry: entry}, "", nil
}

// writeAssets downloads each distinct asset once and stores it next to the
// document unless it is already there. Failures become warnings.
func (m *Migrator) writeAssets(ctx context.Context, doc *wiki.Document, refs []wiki.AssetReference) []output.AssetEntry {
	var entries []output.AssetEntry
	seen := make(map[string]bool)

	for _, ref := range refs {
		if seen[ref.FileName] {
			continue
		}
		seen[ref.FileName] = true

		entry := output.AssetEntry{FileName: ref.FileName, URL: ref.AbsURL}
		if m.corpus.HasAsset(doc, ref.FileName) {
			entry.Status = output.AssetExisting
			entries = append(entries, entry)
			continue
		}

		data, err := m.source.FetchAsset(ctx, ref.AbsURL)
		if err != nil {
			entry.Status = output.AssetFailed
			entry.Error = err.Error()
			reason := "asset fetch failed"
			if errors.Is(err, wiki.ErrUnsupportedScheme) {
				reason = "asset scheme not supported"
			}
			doc.AddWarning("assets", reason, ref.AbsURL)
			logger.WarnContext(ctx, "asset skipped", "title", doc.Title, "url", ref.AbsURL, "error", err)
			entries = append(entries, entry)
			continue
		}

		written, err := m.corpus.WriteAsset(doc, ref.FileName, data)
		switch {
		case err != nil:
			entry.Status = output.AssetFailed
			entry.Error = err.Error()
			doc.AddWarning("assets", "asset write failed", ref.FileName)
			logger.Warn("asset not written", "title", doc.Title, "file", ref.FileName, "error", err)
		case !written:
			entry.Status = output.AssetExisting
		default:
			entry.Status = output.AssetWritten
			entry.Bytes = int64(len(data))
			logger.DebugContext(ctx, "asset written", "title", doc.Title, "file", ref.FileName)
		}
		entries = append(entries, entry)
	}
	return entries
}

// resolveLinks rewrites internal anchors in every document and writes it
// again. A failure keeps the phase-one file and is reported.
func (m *Migrator) resolveLinks(docs []*migrated, report *output.Report) {
	index := wiki.NewTitleIndex(documents(docs))
	resolver := links.NewResolver(index)

	var total links.Stats
	for _, item := range docs {
		stats := resolver.Rewrite(item.doc.Content)
		item.entry.Links = stats
		total.Add(stats)

		md, err := m.pipeline.Render(item.doc)
		if err == nil {
			_, err = m.corpus.WriteDocument(item.doc, md)
		}
		if err != nil {
			logger.Error("link pass failed", "title", item.doc.Title, "error", err)
			report.Failures = append(report.Failures, output.Failure{
				Title: item.doc.Title,
				URL:   item.doc.SourceURL,
				Stage: StageLinks,
				Error: err.Error(),
			})
		}
	}

	logger.Info("links resolved",
		"documents", index.Len(),
		"resolved", total.Resolved,
		"dropped", total.Dropped,
		"stripped", total.Stripped)
}

// writeCategories writes _category_.json for every category in use.
// Positions follow the sorted wiki categories, then categories only known
// from assignment in order of first use.
func (m *Migrator) writeCategories(sorted []wiki.Category, docs []*migrated) []output.CategoryEntry {
	used := make(map[string]int)
	var firstUse []*wiki.Category
	for _, item := range docs {
		c := item.doc.Category
		if c == nil || c.Text == "" {
			continue
		}
		if _, ok := used[c.Text]; !ok {
			firstUse = append(firstUse, c)
		}
		used[c.Text]++
	}

	var ordered []wiki.Category
	placed := make(map[string]bool)
	for _, c := range sorted {
		if used[c.Text] > 0 && !placed[c.Text] {
			placed[c.Text] = true
			ordered = append(ordered, c)
		}
	}
	for _, c := range firstUse {
		if !placed[c.Text] {
			placed[c.Text] = true
			ordered = append(ordered, *c)
		}
	}

	entries := make([]output.CategoryEntry, 0, len(ordered))
	for i, c := range ordered {
		position := i + 1
		if _, err := m.corpus.WriteCategory(c, position); err != nil {
			logger.Warn("category metadata not written", "category", c.Text, "error", err)
			continue
		}
		entries = append(entries, output.CategoryEntry{
			Text:      c.Text,
			Count:     c.Count,
			Position:  position,
			Documents: used[c.Text],
		})
	}
	return entries
}

func documents(items []*migrated) []*wiki.Document {
	docs := make([]*wiki.Document, len(items))
	for i, item := range items {
		docs[i] = item.doc
	}
	return docs
}

// partition drops special and category pages and splits redirects off.
func partition(records []fetcher.PageRecord) (pages, redirects []fetcher.PageRecord) {
	for _, rec := range records {
		if skipPage(rec.URL) {
			continue
		}
		if rec.Redirect {
			redirects = append(redirects, rec)
		} else {
			pages = append(pages, rec)
		}
	}
	return pages, redirects
}

func skipPage(rawURL string) bool {
	for _, marker := range skipMarkers {
		if strings.Contains(rawURL, marker) {
			return true
		}
	}
	return false
}

// NoRedirectURL asks MediaWiki for the redirect page itself instead of its
// target.
func NoRedirectURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("redirect", "no")
	u.RawQuery = q.Encode()
	return u.String()
}
