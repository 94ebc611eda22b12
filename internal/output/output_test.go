package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/wiki2docs/pkg/links"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

func sampleReport() *Report {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &Report{
		WikiURL:    "https://wiki.example.com/",
		OutputDir:  "out/wiki",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Documents: []DocumentEntry{
			{
				Title:    "Main Page",
				Heading:  "Main Page",
				Category: "General Information",
				Path:     "out/wiki/General_Information/Main_Page/index.md",
				Assets: []AssetEntry{
					{FileName: "logo.png", URL: "https://wiki.example.com/images/logo.png", Status: AssetWritten, Bytes: 2048},
					{FileName: "manual.pdf", URL: "ftp://files.example.com/manual.pdf", Status: AssetFailed, Error: "unsupported url scheme"},
				},
				Links:    links.Stats{Resolved: 3, Dropped: 1},
				Warnings: []wiki.Warning{{Stage: "assets", Message: "name collision"}},
			},
			{Title: "Old", Heading: "Old", Category: "Weiterleitung", Redirect: true, Assets: []AssetEntry{{FileName: "logo.png", Status: AssetExisting}}},
		},
		Failures: []Failure{{URL: "https://wiki.example.com/wiki/Broken", Stage: "fetch", Error: "HTTP 500"}},
	}
}

// --- Format and factory ---

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{" YAML ", FormatYAML, false},
		{"jsonl", FormatJSONL, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewReportWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	tests := []struct {
		format Format
		want   string
	}{
		{FormatJSON, "*output.JSONWriter"},
		{FormatJSONL, "*output.JSONLWriter"},
		{FormatYAML, "*output.YAMLWriter"},
	}
	for _, tt := range tests {
		w, err := NewReportWriter(buf, tt.format)
		if err != nil {
			t.Fatalf("NewReportWriter(%s) error = %v", tt.format, err)
		}
		switch w.(type) {
		case *JSONWriter, *JSONLWriter, *YAMLWriter:
		default:
			t.Errorf("NewReportWriter(%s) returned %T, want %s", tt.format, w, tt.want)
		}
	}

	if _, err := NewReportWriter(buf, Format("unsupported")); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

// --- Report writers ---

func TestJSONWriter_WriteReport(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSONWriter(buf, true, "  ").WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded.Documents) != 2 || decoded.Documents[0].Links.Resolved != 3 {
		t.Errorf("unexpected documents: %+v", decoded.Documents)
	}
	if !strings.Contains(buf.String(), "\n  \"wiki_url\"") {
		t.Errorf("expected pretty output, got:\n%s", buf.String())
	}
}

func TestJSONWriter_Compact(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSONWriter(buf, false, "").WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	if lines := strings.Count(strings.TrimSpace(buf.String()), "\n"); lines != 0 {
		t.Errorf("compact output should be one line, got %d newlines", lines)
	}
}

func TestJSONLWriter_WriteReport(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSONLWriter(buf).WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines (2 documents, 1 failure, summary), got %d", len(lines))
	}

	kinds := make([]string, 0, len(lines))
	for _, line := range lines {
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		kinds = append(kinds, record.Kind)
	}
	if strings.Join(kinds, ",") != "document,document,failure,summary" {
		t.Errorf("record kinds = %v", kinds)
	}
}

func TestYAMLWriter_WriteReport(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewYAMLWriter(buf).WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if decoded["wiki_url"] != "https://wiki.example.com/" {
		t.Errorf("wiki_url = %v", decoded["wiki_url"])
	}
	if !strings.Contains(buf.String(), "file_name: logo.png") {
		t.Errorf("expected asset entries in YAML:\n%s", buf.String())
	}
}

func TestWriteReportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	if err := WriteReportFile(path, FormatYAML, sampleReport()); err != nil {
		t.Fatalf("WriteReportFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "documents:") {
		t.Errorf("unexpected report:\n%s", data)
	}
}

func TestReport_Summary(t *testing.T) {
	s := sampleReport().Summary()

	if s.Documents != 2 || s.Redirects != 1 || s.Failures != 1 {
		t.Errorf("document totals = %+v", s)
	}
	if s.AssetsWritten != 1 || s.AssetsExisting != 1 || s.AssetsFailed != 1 || s.BytesWritten != 2048 {
		t.Errorf("asset totals = %+v", s)
	}
	if s.Warnings != 1 || s.LinksResolved != 3 || s.LinksDropped != 1 {
		t.Errorf("warning/link totals = %+v", s)
	}
	if s.Duration != "1.5s" {
		t.Errorf("Duration = %q", s.Duration)
	}
	if str := s.String(); !strings.Contains(str, "2 documents") || !strings.Contains(str, "2.0 kB") {
		t.Errorf("String() = %q", str)
	}
}

// --- Corpus ---

func newDoc(t *testing.T, title, category string) *wiki.Document {
	t.Helper()
	dom, err := goquery.NewDocumentFromReader(strings.NewReader("<div><p>x</p></div>"))
	if err != nil {
		t.Fatal(err)
	}
	doc := &wiki.Document{Title: title, Heading: title, Content: dom.Find("div")}
	if category != "" {
		doc.Category = wiki.NewCategory(category)
	}
	return doc
}

func TestCorpus_WriteDocument(t *testing.T) {
	root := t.TempDir()
	corpus, err := NewCorpus(root)
	if err != nil {
		t.Fatal(err)
	}

	doc := newDoc(t, "FTP/Setup Guide", "General Information")
	path, err := corpus.WriteDocument(doc, "# first")
	if err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}
	if path != corpus.DocumentPath(doc) {
		t.Errorf("path = %q, want %q", path, corpus.DocumentPath(doc))
	}
	if !strings.HasPrefix(path, root) || filepath.Base(path) != DocumentFile {
		t.Errorf("unexpected path %q", path)
	}

	// Documents are overwritten
	if _, err := corpus.WriteDocument(doc, "# second"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "# second" {
		t.Errorf("content = %q", data)
	}
}

func TestCorpus_WriteAsset_OnlyWhenAbsent(t *testing.T) {
	corpus, err := NewCorpus(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	doc := newDoc(t, "Guide", "Connectors")

	if corpus.HasAsset(doc, "logo.png") {
		t.Fatal("asset should not exist yet")
	}
	written, err := corpus.WriteAsset(doc, "logo.png", []byte("first"))
	if err != nil || !written {
		t.Fatalf("WriteAsset() = %v, %v", written, err)
	}
	written, err = corpus.WriteAsset(doc, "logo.png", []byte("second"))
	if err != nil || written {
		t.Fatalf("second WriteAsset() = %v, %v", written, err)
	}

	data, _ := os.ReadFile(filepath.Join(corpus.Dir(doc), "logo.png"))
	if string(data) != "first" {
		t.Errorf("existing asset was overwritten: %q", data)
	}
	if !corpus.HasAsset(doc, "logo.png") {
		t.Error("HasAsset() should be true after write")
	}
}

func TestCorpus_WriteAsset_RejectsPaths(t *testing.T) {
	corpus, _ := NewCorpus(t.TempDir())
	doc := newDoc(t, "Guide", "")

	for _, name := range []string{"", "../escape.png", "sub/dir.png"} {
		if _, err := corpus.WriteAsset(doc, name, []byte("x")); err == nil {
			t.Errorf("WriteAsset(%q) should fail", name)
		}
	}
}

func TestCorpus_WriteCategory(t *testing.T) {
	corpus, _ := NewCorpus(t.TempDir())

	path, err := corpus.WriteCategory(*wiki.NewCategory("Magento 2 Extensions"), 3)
	if err != nil {
		t.Fatalf("WriteCategory() error = %v", err)
	}

	var meta map[string]any
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if meta["label"] != "Magento 2 Extensions" || meta["position"] != float64(3) {
		t.Errorf("meta = %v", meta)
	}
	if filepath.Base(filepath.Dir(path)) != "Magento_2_Extensions" {
		t.Errorf("unexpected directory for %q", path)
	}
}

// --- Sidebar ---

func TestBuildSidebar(t *testing.T) {
	count := func(n int) *int { return &n }
	categories := []wiki.Category{
		{Text: "Connectors", Count: count(10)},
		{Text: "Troubleshooting", Count: count(5)},
		{Text: "Unused", Count: count(1)},
	}
	docs := []*wiki.Document{
		newDoc(t, "Error 42", "Troubleshooting"),
		newDoc(t, "Main_Page", "General Information"),
		newDoc(t, "FTP Setup", "General Information"),
		newDoc(t, "Shopify", "Connectors"),
		newDoc(t, "Loose", ""),
	}

	s := BuildSidebar(categories, docs)

	if s.Main == nil || s.Main.ID != "General_Information/Main_Page/index" {
		t.Fatalf("Main = %+v", s.Main)
	}

	var labels []string
	for _, c := range s.Categories {
		labels = append(labels, c.Label)
	}
	want := "Connectors,Troubleshooting,General Information,General"
	if got := strings.Join(labels, ","); got != want {
		t.Errorf("category order = %q, want %q", got, want)
	}
	if items := s.Categories[2].Items; len(items) != 1 || items[0].Label != "FTP Setup" {
		t.Errorf("main page should not repeat inside its category: %+v", items)
	}
}

func TestSidebar_Render(t *testing.T) {
	s := Sidebar{
		Main: &SidebarItem{ID: "Main_Page/index", Label: "Main Page"},
		Categories: []SidebarCategory{
			{Label: "Bob's Guides", Items: []SidebarItem{{ID: "Bobs_Guides/Intro/index", Label: `Say "hi"`}}},
		},
	}

	buf := &bytes.Buffer{}
	if err := s.Render(buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	contains := []string{
		"const sidebars = {\n  mainSidebar: [\n    {\n      type: 'doc',\n      id: 'Main_Page/index',",
		"label: 'Bob\\'s Guides',",
		"id: 'Bobs_Guides/Intro/index',",
		`label: 'Say \"hi\"',`,
		"  ],\n};\n\nexport default sidebars;\n",
	}
	for _, want := range contains {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSidebarFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", "sidebars.js")
	if err := WriteSidebarFile(path, Sidebar{}); err != nil {
		t.Fatalf("WriteSidebarFile() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "mainSidebar: [\n  ],") {
		t.Errorf("unexpected empty sidebar:\n%s", data)
	}
}
