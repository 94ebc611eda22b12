package migrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmylchreest/wiki2docs/internal/output"
	"github.com/jmylchreest/wiki2docs/internal/pipeline"
	"github.com/jmylchreest/wiki2docs/pkg/fetcher"
	"github.com/jmylchreest/wiki2docs/pkg/markdown"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

const categoriesHTML = `<html><body><ul>
<li><a href="/wiki/Category:Connectors" title="Category:Connectors">Connectors</a> (2 pages)</li>
<li><a href="/wiki/Category:General_Information" title="Category:General Information">General Information</a> (5 pages)</li>
</ul></body></html>`

const allPagesHTML = `<html><body><table class="mw-allpages-table-chunk"><tr>
<td><a href="/wiki/Main_Page" title="Main Page">Main Page</a></td>
<td><a href="/wiki/Shopify_Connector" title="Shopify Connector">Shopify Connector</a></td>
<td><a href="/wiki/Special:Version" title="Special:Version">Special:Version</a></td>
<td><a href="/wiki/Category:Connectors" title="Category:Connectors">Category:Connectors</a></td>
<td class="allpagesredirect"><a href="/index.php?title=Old_Name&amp;redirect=no" class="mw-redirect" title="Old Name">Old Name</a></td>
<td><a href="/wiki/Broken" title="Broken">Broken</a></td>
</tr></table></body></html>`

func article(heading, categories, body string) string {
	return `<html><body><h1 id="firstHeading">` + heading + `</h1>` +
		`<div id="bodyContent"><div class="mw-parser-output">` + body + `</div>` +
		`<div id="catlinks" class="catlinks"><div class="mw-normal-catlinks"><ul>` + categories + `</ul></div></div>` +
		`</div></body></html>`
}

type fakeWiki struct {
	*httptest.Server
	assetHits atomic.Int32
}

func newFakeWiki(t *testing.T) *fakeWiki {
	t.Helper()
	fw := &fakeWiki{}
	fw.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wiki/Special:Categories":
			fmt.Fprint(w, categoriesHTML)
		case r.URL.Path == "/wiki/Special:AllPages":
			fmt.Fprint(w, allPagesHTML)
		case r.URL.Path == "/wiki/Main_Page":
			fmt.Fprint(w, article("Main Page", "",
				`<p>See <a href="/wiki/Shopify_Connector">Shopify</a> and `+
					`<a href="/index.php?title=Missing_Page&amp;action=edit">Missing</a>.</p>`+
					`<p><a href="/wiki/File:Logo.png" class="image"><img alt="Logo" src="/images/a/ab/Logo.png"></a></p>`+
					`<p><a href="ftp://files.example.com/manual.pdf">Manual</a></p>`))
		case r.URL.Path == "/wiki/Shopify_Connector":
			fmt.Fprint(w, article("Shopify Connector",
				`<li><a href="/wiki/Category:Connectors">Connectors</a></li>`,
				`<p>Back to <a href="/wiki/Main_Page">home</a>.</p><pre>curl {token}</pre>`))
		case r.URL.Path == "/index.php" && r.URL.Query().Get("title") == "Old_Name":
			if r.URL.Query().Get("redirect") != "no" {
				http.Error(w, "redirect followed", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, article("Old Name", "",
				`<div class="redirectMsg"><ul class="redirectText"><li><a href="/wiki/Shopify_Connector">Shopify Connector</a></li></ul></div>`))
		case r.URL.Path == "/images/a/ab/Logo.png":
			fw.assetHits.Add(1)
			w.Header().Set("Content-Type", "image/png")
			fmt.Fprint(w, "PNGDATA")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fw.Close)
	return fw
}

func newMigrator(t *testing.T, fw *fakeWiki, outDir string, includeRedirects bool) *Migrator {
	t.Helper()

	client, err := fetcher.NewClient(fetcher.Config{
		BaseURL:      fw.URL + "/",
		Timeout:      5 * time.Second,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	p, err := pipeline.New(pipeline.Options{Rewrites: markdown.DefaultRewrites("")})
	if err != nil {
		t.Fatal(err)
	}

	corpus, err := output.NewCorpus(filepath.Join(outDir, "wiki"))
	if err != nil {
		t.Fatal(err)
	}

	return New(client, p, corpus, Options{
		WikiURL:          fw.URL + "/",
		IncludeRedirects: includeRedirects,
		SidebarPath:      filepath.Join(outDir, "sidebars.js"),
		Policy: pipeline.CategoryPolicy{
			Rules:    wiki.DefaultCategoryRules(),
			Default:  "General Information",
			Redirect: "Weiterleitung",
		},
	})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRun(t *testing.T) {
	fw := newFakeWiki(t)
	out := t.TempDir()
	wikiDir := filepath.Join(out, "wiki")

	report, err := newMigrator(t, fw, out, true).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Documents land in category directories
	mainPage := readFile(t, filepath.Join(wikiDir, "General_Information", "Main_Page", "index.md"))
	shopify := readFile(t, filepath.Join(wikiDir, "Connectors", "Shopify_Connector", "index.md"))
	oldName := readFile(t, filepath.Join(wikiDir, "Weiterleitung", "Old_Name", "index.md"))

	checks := []struct {
		name string
		doc  string
		want []string
		not  []string
	}{
		{
			name: "main page",
			doc:  mainPage,
			want: []string{
				"title: \"Main Page\"",
				"[Shopify](/Connectors/Shopify_Connector)",
				"Missing",
				"![Logo](Logo.png)",
			},
			not: []string{"Missing_Page", "/images/a/ab/"},
		},
		{
			name: "linked page",
			doc:  shopify,
			want: []string{"[home](/General_Information/Main_Page)", "```\ncurl {token}\n```"},
		},
		{
			name: "redirect",
			doc:  oldName,
			want: []string{"/Connectors/Shopify_Connector"},
		},
	}
	for _, c := range checks {
		for _, want := range c.want {
			if !strings.Contains(c.doc, want) {
				t.Errorf("%s: expected %q in:\n%s", c.name, want, c.doc)
			}
		}
		for _, unwanted := range c.not {
			if strings.Contains(c.doc, unwanted) {
				t.Errorf("%s: unexpected %q in:\n%s", c.name, unwanted, c.doc)
			}
		}
	}

	if got := readFile(t, filepath.Join(wikiDir, "General_Information", "Main_Page", "Logo.png")); got != "PNGDATA" {
		t.Errorf("asset content = %q", got)
	}

	// Category metadata follows member counts
	var meta map[string]any
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(wikiDir, "General_Information", output.CategoryFile))), &meta); err != nil {
		t.Fatal(err)
	}
	if meta["position"] != float64(1) {
		t.Errorf("General Information position = %v", meta["position"])
	}

	sidebar := readFile(t, filepath.Join(out, "sidebars.js"))
	for _, want := range []string{"id: 'General_Information/Main_Page/index'", "label: 'Connectors'", "label: 'Weiterleitung'"} {
		if !strings.Contains(sidebar, want) {
			t.Errorf("sidebar missing %q:\n%s", want, sidebar)
		}
	}

	// Report
	if len(report.Documents) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(report.Documents))
	}
	if len(report.Failures) != 1 || report.Failures[0].Stage != StageFetch {
		t.Errorf("failures = %+v", report.Failures)
	}
	var categories []string
	for _, c := range report.Categories {
		categories = append(categories, c.Text)
	}
	if got := strings.Join(categories, ","); got != "General Information,Connectors,Weiterleitung" {
		t.Errorf("categories = %q", got)
	}

	summary := report.Summary()
	if summary.AssetsWritten != 1 || summary.AssetsFailed != 1 || summary.Redirects != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.LinksResolved < 3 || summary.LinksDropped != 1 {
		t.Errorf("link totals = %+v", summary)
	}
	if report.Documents[0].Warnings == nil {
		t.Error("ftp asset should leave a warning on the main page")
	}
}

func TestRun_AssetsWrittenOnce(t *testing.T) {
	fw := newFakeWiki(t)
	out := t.TempDir()

	if _, err := newMigrator(t, fw, out, true).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	report, err := newMigrator(t, fw, out, true).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if hits := fw.assetHits.Load(); hits != 1 {
		t.Errorf("asset fetched %d times, want 1", hits)
	}
	if s := report.Summary(); s.AssetsExisting != 1 || s.AssetsWritten != 0 {
		t.Errorf("second run summary = %+v", s)
	}
}

func TestRun_WithoutRedirects(t *testing.T) {
	fw := newFakeWiki(t)
	out := t.TempDir()

	report, err := newMigrator(t, fw, out, false).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Documents) != 2 {
		t.Errorf("expected 2 documents, got %d", len(report.Documents))
	}
	if _, err := os.Stat(filepath.Join(out, "wiki", "Weiterleitung")); !os.IsNotExist(err) {
		t.Error("redirect category directory should not exist")
	}

	// The redirect is no longer in the index, so its link stays a plain path
	if s := report.Summary(); s.Redirects != 0 {
		t.Errorf("summary = %+v", s)
	}
}

func TestRun_ListingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	fw := &fakeWiki{Server: server}
	_, err := newMigrator(t, fw, t.TempDir(), true).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "list categories") {
		t.Errorf("expected listing error, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	fw := newFakeWiki(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newMigrator(t, fw, t.TempDir(), true).Run(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestPartition(t *testing.T) {
	records := []fetcher.PageRecord{
		{URL: "https://w/wiki/A"},
		{URL: "https://w/wiki/Special:Version"},
		{URL: "https://w/index.php?title=Category:X"},
		{URL: "https://w/index.php?title=B&redirect=no", Redirect: true},
	}
	pages, redirects := partition(records)
	if len(pages) != 1 || pages[0].URL != "https://w/wiki/A" {
		t.Errorf("pages = %+v", pages)
	}
	if len(redirects) != 1 {
		t.Errorf("redirects = %+v", redirects)
	}
}

func TestNoRedirectURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://w/wiki/Old", "https://w/wiki/Old?redirect=no"},
		{"https://w/index.php?title=Old", "https://w/index.php?redirect=no&title=Old"},
		{"https://w/index.php?title=Old&redirect=no", "https://w/index.php?redirect=no&title=Old"},
	}
	for _, tt := range tests {
		if got := NoRedirectURL(tt.in); got != tt.want {
			t.Errorf("NoRedirectURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
