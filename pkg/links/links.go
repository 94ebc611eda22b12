// Package links rewrites internal wiki hyperlinks to corpus routes once every
// document is known.
package links

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

const (
	queryLinkMarker = "/index.php?title="
	pathLinkPrefix  = "/wiki/"
)

// Stats counts what a Rewrite pass did.
type Stats struct {
	Resolved  int `json:"resolved" yaml:"resolved"`
	Dropped   int `json:"dropped" yaml:"dropped"`
	Stripped  int `json:"stripped" yaml:"stripped"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
}

// Add folds other into s.
func (s *Stats) Add(other Stats) {
	s.Resolved += other.Resolved
	s.Dropped += other.Dropped
	s.Stripped += other.Stripped
	s.Unchanged += other.Unchanged
}

// Resolver rewrites anchors against a corpus-wide title index.
type Resolver struct {
	Index *wiki.TitleIndex
}

// NewResolver creates a Resolver for index.
func NewResolver(index *wiki.TitleIndex) *Resolver {
	return &Resolver{Index: index}
}

// Rewrite updates the href of internal links in content. Query-form links
// ("/index.php?title=X") resolve to the target's route or lose their href
// when X is unknown. Path-form links ("/wiki/X") lose the prefix and any
// "Category:" qualifier, then resolve to the target's route when X is known.
// Only the href attribute is touched.
func (r *Resolver) Rewrite(content *goquery.Selection) Stats {
	var stats Stats

	content.Find(`a[href*="` + queryLinkMarker + `"]`).Each(func(_ int, a *goquery.Selection) {
		title := queryTitle(a.AttrOr("href", ""))
		if doc, ok := r.Index.Lookup(title); ok && title != "" {
			a.SetAttr("href", doc.Route())
			stats.Resolved++
			return
		}
		a.RemoveAttr("href")
		stats.Dropped++
	})

	content.Find(`a[href^="` + pathLinkPrefix + `"]`).Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		stripped := strings.Replace(href, pathLinkPrefix, "/", 1)
		stripped = strings.ReplaceAll(stripped, "Category:", "")

		if doc, ok := r.Index.Lookup(pathTitle(stripped)); ok {
			a.SetAttr("href", doc.Route()+fragment(stripped))
			stats.Resolved++
			return
		}
		if stripped == href {
			stats.Unchanged++
			return
		}
		a.SetAttr("href", stripped)
		stats.Stripped++
	})

	return stats
}

// queryTitle extracts the title parameter of a query-form link.
func queryTitle(href string) string {
	decoded, err := url.QueryUnescape(href)
	if err != nil {
		decoded = href
	}
	i := strings.Index(decoded, "?")
	if i < 0 {
		return ""
	}
	// The decoded query may contain reserved characters again; re-split by hand.
	for _, pair := range strings.Split(decoded[i+1:], "&") {
		if k, v, ok := strings.Cut(pair, "="); ok && k == "title" {
			v, _, _ = strings.Cut(v, "#")
			return v
		}
	}
	return ""
}

// pathTitle returns the page title of a stripped root-relative path.
func pathTitle(p string) string {
	if i := strings.IndexAny(p, "#?"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimPrefix(p, "/")
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	return p
}

func fragment(p string) string {
	if i := strings.IndexByte(p, '#'); i >= 0 {
		return p[i:]
	}
	return ""
}
