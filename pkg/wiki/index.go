package wiki

import (
	"fmt"
	"net/url"
	"strings"
)

// TitleIndex maps page titles to documents. It is built once after every
// page has been processed and is read-only afterwards.
type TitleIndex struct {
	docs map[string]*Document
}

// NewTitleIndex builds the index. When two documents share a title the later one wins.
func NewTitleIndex(docs []*Document) *TitleIndex {
	idx := &TitleIndex{docs: make(map[string]*Document, len(docs))}
	for _, d := range docs {
		idx.docs[normalizeTitle(d.Title)] = d
	}
	return idx
}

// Lookup finds a document by title. "Main_Page" and "Main Page" are equivalent.
func (i *TitleIndex) Lookup(title string) (*Document, bool) {
	if i == nil {
		return nil, false
	}
	d, ok := i.docs[normalizeTitle(title)]
	return d, ok
}

// Len returns the number of indexed titles.
func (i *TitleIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.docs)
}

func normalizeTitle(title string) string {
	return strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
}

// TitleFromURL determines a page title from its URL: the "title" query
// parameter when present, otherwise the decoded path after "/wiki/" with
// underscores turned into spaces.
func TitleFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: title from %q: %v", ErrMissingElement, rawURL, err)
	}

	if title := strings.TrimSpace(u.Query().Get("title")); title != "" {
		return title, nil
	}

	p := u.EscapedPath()
	if i := strings.LastIndex(p, "/wiki/"); i >= 0 {
		raw := p[i+len("/wiki/"):]
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			decoded = raw
		}
		title := strings.TrimSpace(strings.ReplaceAll(decoded, "_", " "))
		if title != "" {
			return title, nil
		}
	}

	return "", fmt.Errorf("%w: title from %q", ErrMissingElement, rawURL)
}
