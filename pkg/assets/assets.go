// Package assets finds binary files referenced from a page, decides their
// on-disk names and rewrites the references to point at them.
package assets

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/wiki2docs/pkg/sanitize"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// Config controls which references count as assets.
type Config struct {
	// Extensions are the lowercase file extensions (with dot) that make a
	// hyperlink an asset download. Images are always assets.
	Extensions []string `json:"extensions" yaml:"extensions"`

	// DescriptionPageMarkers identify links to wiki file description pages,
	// which are pages and not files.
	DescriptionPageMarkers []string `json:"description_page_markers" yaml:"description_page_markers"`
}

// DefaultConfig returns the extension list used by most wikis.
func DefaultConfig() *Config {
	return &Config{
		Extensions: []string{
			".mid", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp",
			".pdf", ".zip", ".gz", ".tar",
		},
		DescriptionPageMarkers: []string{"File:", "Datei:", "Image:"},
	}
}

// Result is the asset manifest of one document.
type Result struct {
	// Assets is keyed by the original reference string.
	Assets map[string]wiki.AssetReference `json:"assets" yaml:"assets"`

	// Refs lists the keys of Assets in discovery order.
	Refs []string `json:"refs" yaml:"refs"`

	Rewritten int `json:"rewritten" yaml:"rewritten"`

	Warnings []wiki.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// AddWarning adds a warning to the result.
func (r *Result) AddWarning(message, context string) {
	r.Warnings = append(r.Warnings, wiki.Warning{Stage: "assets", Message: message, Context: context})
}

// Ordered returns the asset references in discovery order.
func (r *Result) Ordered() []wiki.AssetReference {
	out := make([]wiki.AssetReference, 0, len(r.Refs))
	for _, ref := range r.Refs {
		out = append(out, r.Assets[ref])
	}
	return out
}

// Locator discovers and rewrites asset references.
type Locator struct {
	config *Config
	exts   map[string]bool
}

// NewLocator creates a Locator. If config is nil, DefaultConfig() is used.
func NewLocator(config *Config) *Locator {
	if config == nil {
		config = DefaultConfig()
	}
	exts := make(map[string]bool, len(config.Extensions))
	for _, e := range config.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return &Locator{config: config, exts: exts}
}

type match struct {
	sel  *goquery.Selection
	attr string
	ref  string
}

// LocateAndRewrite scans content for images and binary downloads, builds
// the manifest keyed by original reference and then rewrites every matched
// attribute to the bare file name. base resolves relative references.
func (l *Locator) LocateAndRewrite(content *goquery.Selection, base *url.URL) *Result {
	result := &Result{Assets: make(map[string]wiki.AssetReference)}

	matches := l.scan(content)

	// owner tracks which absolute URL holds each file name
	owner := make(map[string]string)
	unusable := make(map[string]string)

	for _, m := range matches {
		if _, seen := result.Assets[m.ref]; seen {
			continue
		}
		if _, seen := unusable[m.ref]; seen {
			continue
		}

		name, err := fileName(m.ref)
		if err != nil {
			unusable[m.ref] = err.Error()
			continue
		}
		abs := resolve(base, m.ref)

		name = l.claim(owner, name, abs, result)
		result.Assets[m.ref] = wiki.AssetReference{Ref: m.ref, AbsURL: abs, FileName: name}
		result.Refs = append(result.Refs, m.ref)
	}

	warned := make(map[string]bool)
	for _, m := range matches {
		asset, ok := result.Assets[m.ref]
		if !ok {
			if !warned[m.ref] {
				warned[m.ref] = true
				result.AddWarning("asset reference left unrewritten: "+unusable[m.ref], m.ref)
			}
			continue
		}
		m.sel.SetAttr(m.attr, asset.FileName)
		if m.attr == "src" {
			m.sel.RemoveAttr("srcset")
		}
		result.Rewritten++
	}

	return result
}

// scan collects images first, then download links, in document order.
func (l *Locator) scan(content *goquery.Selection) []match {
	var matches []match

	content.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		ref := strings.TrimSpace(s.AttrOr("src", ""))
		if ref == "" || strings.HasPrefix(ref, "data:") {
			return
		}
		matches = append(matches, match{sel: s, attr: "src", ref: ref})
	})

	content.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		ref := strings.TrimSpace(s.AttrOr("href", ""))
		if ref == "" || !l.isDownload(ref) {
			return
		}
		matches = append(matches, match{sel: s, attr: "href", ref: ref})
	})

	return matches
}

func (l *Locator) isDownload(ref string) bool {
	decoded := ref
	if d, err := url.QueryUnescape(ref); err == nil {
		decoded = d
	}
	for _, marker := range l.config.DescriptionPageMarkers {
		if strings.Contains(decoded, marker) {
			return false
		}
	}

	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return l.exts[strings.ToLower(path.Ext(u.Path))]
}

// claim returns name, or a numbered variant when another resource already
// owns it.
func (l *Locator) claim(owner map[string]string, name, abs string, result *Result) string {
	holder, taken := owner[name]
	if !taken || holder == abs {
		owner[name] = abs
		return name
	}

	stem, ext := sanitize.SplitExt(name)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if other, used := owner[candidate]; used && other != abs {
			continue
		}
		owner[candidate] = abs
		result.AddWarning(fmt.Sprintf("file name %q already used by %s, renamed to %q", name, holder, candidate), abs)
		return candidate
	}
}

// fileName derives the sanitized file name from the last path segment of ref.
func fileName(ref string) (string, error) {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.EscapedPath()
	}
	segment := p[strings.LastIndex(p, "/")+1:]
	if decoded, err := url.PathUnescape(segment); err == nil {
		segment = decoded
	}

	name := sanitize.AssetName(segment)
	if name == "" {
		return "", fmt.Errorf("%w: %q", wiki.ErrNoUsableName, segment)
	}
	return name, nil
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
