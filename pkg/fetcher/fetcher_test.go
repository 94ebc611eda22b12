package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

const allPagesFirst = `<html><body>
<div class="mw-allpages-nav"><a href="/index.php?title=Special:AllPages&amp;from=Moved">Next page (Moved)</a></div>
<table class="mw-allpages-table-chunk"><tr>
<td><a href="/wiki/Main_Page" title="Main Page">Main Page</a></td>
<td><a href="/wiki/FTP/Setup" title="FTP/Setup">FTP/Setup</a></td>
</tr></table>
</body></html>`

const allPagesSecond = `<html><body>
<div class="mw-allpages-nav"><a href="/wiki/Special:AllPages">Previous page (Main Page)</a></div>
<table class="mw-allpages-table-chunk"><tr>
<td class="allpagesredirect"><a href="/index.php?title=Moved&amp;redirect=no" class="mw-redirect" title="Moved">Moved</a></td>
</tr></table>
</body></html>`

const categoriesPage = `<html><body>
<ul>
<li><a href="/wiki/Category:Connectors" title="Category:Connectors">Connectors</a> (12 pages)</li>
<li><a href="/wiki/Category:Troubleshooting" title="Category:Troubleshooting">Troubleshooting</a> (1,204 members)</li>
<li><a href="/wiki/Category:Empty" title="Category:Empty">Empty</a></li>
<li><a href="/wiki/Help" title="Help">Help</a> (3 pages)</li>
</ul>
<a href="/wiki/Special:Categories">previous 50</a>
</body></html>`

func newTestClient(t *testing.T, server *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:      server.URL + "/",
		Timeout:      5 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "wiki.example.com", "://bad"} {
		if _, err := NewClient(Config{BaseURL: raw}); err == nil {
			t.Errorf("NewClient(%q) should fail", raw)
		}
	}
}

func TestClient_ArticleURL(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "https://wiki.example.com/"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		title string
		want  string
	}{
		{"Main Page", "https://wiki.example.com/wiki/Main_Page"},
		{"Special:AllPages", "https://wiki.example.com/wiki/Special:AllPages"},
		{"FTP/Setup", "https://wiki.example.com/wiki/FTP/Setup"},
	}
	for _, tt := range tests {
		if got := client.ArticleURL(tt.title); got != tt.want {
			t.Errorf("ArticleURL(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestClient_FetchHTML(t *testing.T) {
	var gotAuth, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1 id=\"firstHeading\">Hello</h1></body></html>")
	}))
	defer server.Close()

	client := newTestClient(t, server, func(c *Config) {
		c.Username = "user"
		c.Password = "secret"
		c.UserAgent = "wiki2docs-test"
	})

	content, err := client.FetchHTML(context.Background(), server.URL+"/wiki/Hello")
	if err != nil {
		t.Fatalf("FetchHTML() error = %v", err)
	}
	if !strings.Contains(content.HTML, "firstHeading") {
		t.Errorf("unexpected HTML: %q", content.HTML)
	}
	if content.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", content.StatusCode)
	}
	if gotAuth != "Basic dXNlcjpzZWNyZXQ=" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAgent != "wiki2docs-test" {
		t.Errorf("User-Agent = %q", gotAgent)
	}
}

func TestClient_FetchHTML_NotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	_, err := client.FetchHTML(context.Background(), server.URL+"/wiki/Missing")

	if !errors.Is(err, wiki.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected StatusError with 404, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("404 should not be retried, got %d calls", calls.Load())
	}
}

func TestClient_FetchHTML_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "<p>ok</p>")
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	content, err := client.FetchHTML(context.Background(), server.URL+"/wiki/Flaky")
	if err != nil {
		t.Fatalf("FetchHTML() error = %v", err)
	}
	if !strings.Contains(content.HTML, "ok") {
		t.Errorf("unexpected HTML: %q", content.HTML)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_FetchHTML_GivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server, func(c *Config) { c.MaxRetries = 1 })
	if _, err := client.FetchHTML(context.Background(), server.URL+"/wiki/Broken"); !errors.Is(err, wiki.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClient_FetchAsset(t *testing.T) {
	payload := strings.Repeat("x", 64)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/images/logo.png":
			w.Header().Set("Content-Type", "image/png")
			fmt.Fprint(w, payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("ok", func(t *testing.T) {
		client := newTestClient(t, server, nil)
		data, err := client.FetchAsset(context.Background(), server.URL+"/images/logo.png")
		if err != nil {
			t.Fatalf("FetchAsset() error = %v", err)
		}
		if string(data) != payload {
			t.Errorf("got %d bytes", len(data))
		}
	})

	t.Run("exact size limit", func(t *testing.T) {
		client := newTestClient(t, server, func(c *Config) { c.MaxAssetSize = int64(len(payload)) })
		if _, err := client.FetchAsset(context.Background(), server.URL+"/images/logo.png"); err != nil {
			t.Errorf("asset at the limit should pass, got %v", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		client := newTestClient(t, server, func(c *Config) { c.MaxAssetSize = 10 })
		_, err := client.FetchAsset(context.Background(), server.URL+"/images/logo.png")
		if !errors.Is(err, wiki.ErrAssetFetch) {
			t.Errorf("expected ErrAssetFetch, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, server, nil)
		_, err := client.FetchAsset(context.Background(), server.URL+"/images/missing.png")
		if !errors.Is(err, wiki.ErrAssetFetch) {
			t.Errorf("expected ErrAssetFetch, got %v", err)
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		client := newTestClient(t, server, nil)
		for _, raw := range []string{"ftp://files.example.com/a.zip", "ftps://files.example.com/a.zip", "data:image/png;base64,AAAA"} {
			_, err := client.FetchAsset(context.Background(), raw)
			if !errors.Is(err, wiki.ErrUnsupportedScheme) {
				t.Errorf("FetchAsset(%q) error = %v, want ErrUnsupportedScheme", raw, err)
			}
		}
	})
}

func TestClient_ListPages(t *testing.T) {
	var listings atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listings.Add(1)
		switch {
		case r.URL.Path == "/wiki/Special:AllPages":
			fmt.Fprint(w, allPagesFirst)
		case r.URL.Query().Get("from") == "Moved":
			fmt.Fprint(w, allPagesSecond)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	pages, err := client.ListPages(context.Background())
	if err != nil {
		t.Fatalf("ListPages() error = %v", err)
	}

	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d: %+v", len(pages), pages)
	}
	if pages[0].Title != "Main Page" || pages[0].URL != server.URL+"/wiki/Main_Page" || pages[0].Redirect {
		t.Errorf("unexpected first page: %+v", pages[0])
	}
	if !pages[2].Redirect || pages[2].Title != "Moved" {
		t.Errorf("expected redirect record, got %+v", pages[2])
	}
	if listings.Load() != 2 {
		t.Errorf("expected 2 listing requests, got %d", listings.Load())
	}
}

func TestClient_ListCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, categoriesPage)
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	categories, err := client.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}

	if len(categories) != 3 {
		t.Fatalf("expected 3 categories, got %+v", categories)
	}
	if categories[0].Text != "Connectors" || categories[0].Title != "Category:Connectors" || *categories[0].Count != 12 {
		t.Errorf("unexpected first category: %+v", categories[0])
	}
	if *categories[1].Count != 1204 {
		t.Errorf("expected count 1204, got %d", *categories[1].Count)
	}
	if categories[2].Count != nil {
		t.Errorf("expected nil count, got %d", *categories[2].Count)
	}
}

func TestParsePageList_NoNext(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(allPagesSecond))
	if err != nil {
		t.Fatal(err)
	}
	base, _ := url.Parse("https://wiki.example.com/wiki/Special:AllPages")

	records, next := ParsePageList(doc, base)
	if next != "" {
		t.Errorf("expected no next link, got %q", next)
	}
	if len(records) != 1 || records[0].URL != "https://wiki.example.com/index.php?title=Moved&redirect=no" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestDecodeBody(t *testing.T) {
	latin1 := []byte("Gr\xfc\xdfe")
	if got := decodeBody(latin1, "text/html; charset=iso-8859-1"); got != "Grüße" {
		t.Errorf("decodeBody() = %q", got)
	}
	if got := decodeBody([]byte("plain"), ""); got != "plain" {
		t.Errorf("decodeBody() = %q", got)
	}
}
