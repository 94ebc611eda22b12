package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/wiki2docs/internal/logger"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

const (
	allPagesTitle   = "Special:AllPages"
	categoriesTitle = "Special:Categories"
)

var memberCount = regexp.MustCompile(`\(([0-9,]+) (?:pages?|members?)\)`)

// ListPages walks Special:AllPages following its pagination.
func (f *Client) ListPages(ctx context.Context) ([]PageRecord, error) {
	var records []PageRecord
	err := f.walk(ctx, f.ArticleURL(allPagesTitle), func(doc *goquery.Document, page *url.URL) string {
		found, next := ParsePageList(doc, page)
		records = append(records, found...)
		return next
	})
	if err != nil {
		return records, err
	}
	logger.Info("page index loaded", "pages", len(records))
	return records, nil
}

// ListCategories walks Special:Categories following its pagination.
func (f *Client) ListCategories(ctx context.Context) ([]wiki.Category, error) {
	var categories []wiki.Category
	err := f.walk(ctx, f.ArticleURL(categoriesTitle), func(doc *goquery.Document, page *url.URL) string {
		found, next := ParseCategoryList(doc, page)
		categories = append(categories, found...)
		return next
	})
	if err != nil {
		return categories, err
	}
	logger.Info("category index loaded", "categories", len(categories))
	return categories, nil
}

// walk fetches listing pages until parse reports no further page or a page
// repeats.
func (f *Client) walk(ctx context.Context, start string, parse func(*goquery.Document, *url.URL) string) error {
	queue := NewURLQueue()
	queue.Add(start)

	for {
		target, ok := queue.Pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		content, err := f.FetchHTML(ctx, target)
		if err != nil {
			return err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(content.HTML))
		if err != nil {
			return fmt.Errorf("%w: parse %s: %v", wiki.ErrFetch, target, err)
		}
		page, err := url.Parse(target)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", wiki.ErrFetch, target, err)
		}

		if next := parse(doc, page); next != "" {
			if !queue.Add(next) {
				logger.Debug("listing pagination revisits a page", "url", next)
			}
		}
	}
}

// ParsePageList extracts page records and the next-page link from one
// Special:AllPages page. Links are resolved against base.
func ParsePageList(doc *goquery.Document, base *url.URL) ([]PageRecord, string) {
	var records []PageRecord
	doc.Find("table.mw-allpages-table-chunk a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := resolve(base, href)
		if abs == "" {
			return
		}
		title := strings.TrimSpace(a.AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(a.Text())
		}
		records = append(records, PageRecord{
			URL:      abs,
			Title:    title,
			Redirect: a.HasClass("mw-redirect") || a.ParentFiltered(".allpagesredirect").Length() > 0,
		})
	})

	next := ""
	doc.Find(".mw-allpages-nav a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(a.Text()), "next") {
			href, _ := a.Attr("href")
			next = resolve(base, href)
			return false
		}
		return true
	})
	return records, next
}

// ParseCategoryList extracts categories with member counts and the next-page
// link from one Special:Categories page.
func ParseCategoryList(doc *goquery.Document, base *url.URL) ([]wiki.Category, string) {
	var categories []wiki.Category
	doc.Find("ul > li").Each(func(_ int, li *goquery.Selection) {
		a := li.ChildrenFiltered("a[href]").First()
		if a.Length() == 0 {
			return
		}
		title := strings.TrimSpace(a.AttrOr("title", ""))
		if !strings.Contains(title, "Category:") {
			return
		}
		text := strings.TrimSpace(a.Text())
		if text == "" {
			text = strings.TrimPrefix(title, "Category:")
		}
		category := wiki.Category{Title: title, Text: text}
		if m := memberCount.FindStringSubmatch(li.Text()); m != nil {
			if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
				category.Count = &n
			}
		}
		categories = append(categories, category)
	})

	next := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(a.Text()), "next") {
			href, _ := a.Attr("href")
			next = resolve(base, href)
			return false
		}
		return true
	})
	return categories, next
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
