package output

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/wiki2docs/pkg/links"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// AssetStatus tells what happened to one asset.
type AssetStatus string

const (
	AssetWritten  AssetStatus = "written"
	AssetExisting AssetStatus = "existing"
	AssetFailed   AssetStatus = "failed"
)

// Report is the manifest of one migration run.
type Report struct {
	WikiURL    string          `json:"wiki_url" yaml:"wiki_url"`
	OutputDir  string          `json:"output_dir" yaml:"output_dir"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	Categories []CategoryEntry `json:"categories" yaml:"categories"`
	Documents  []DocumentEntry `json:"documents" yaml:"documents"`
	Failures   []Failure       `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// CategoryEntry is a category that received at least one document.
type CategoryEntry struct {
	Text      string `json:"text" yaml:"text"`
	Count     *int   `json:"count,omitempty" yaml:"count,omitempty"`
	Position  int    `json:"position" yaml:"position"`
	Documents int    `json:"documents" yaml:"documents"`
}

// DocumentEntry describes one written document.
type DocumentEntry struct {
	Title     string         `json:"title" yaml:"title"`
	Heading   string         `json:"heading" yaml:"heading"`
	Category  string         `json:"category" yaml:"category"`
	SourceURL string         `json:"source_url" yaml:"source_url"`
	Path      string         `json:"path" yaml:"path"`
	Redirect  bool           `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Assets    []AssetEntry   `json:"assets,omitempty" yaml:"assets,omitempty"`
	Links     links.Stats    `json:"links" yaml:"links"`
	Warnings  []wiki.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// AssetEntry describes one asset of a document.
type AssetEntry struct {
	FileName string      `json:"file_name" yaml:"file_name"`
	URL      string      `json:"url" yaml:"url"`
	Status   AssetStatus `json:"status" yaml:"status"`
	Bytes    int64       `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failure is a page that could not be migrated.
type Failure struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	URL   string `json:"url" yaml:"url"`
	Stage string `json:"stage" yaml:"stage"`
	Error string `json:"error" yaml:"error"`
}

// Summary holds the run totals.
type Summary struct {
	Documents      int    `json:"documents" yaml:"documents"`
	Redirects      int    `json:"redirects" yaml:"redirects"`
	Failures       int    `json:"failures" yaml:"failures"`
	Warnings       int    `json:"warnings" yaml:"warnings"`
	AssetsWritten  int    `json:"assets_written" yaml:"assets_written"`
	AssetsExisting int    `json:"assets_existing" yaml:"assets_existing"`
	AssetsFailed   int    `json:"assets_failed" yaml:"assets_failed"`
	BytesWritten   int64  `json:"bytes_written" yaml:"bytes_written"`
	LinksResolved  int    `json:"links_resolved" yaml:"links_resolved"`
	LinksDropped   int    `json:"links_dropped" yaml:"links_dropped"`
	Duration       string `json:"duration" yaml:"duration"`
}

// Summary totals the report.
func (r *Report) Summary() Summary {
	s := Summary{
		Documents: len(r.Documents),
		Failures:  len(r.Failures),
	}
	if !r.FinishedAt.IsZero() {
		s.Duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
	}
	for _, d := range r.Documents {
		if d.Redirect {
			s.Redirects++
		}
		s.Warnings += len(d.Warnings)
		s.LinksResolved += d.Links.Resolved
		s.LinksDropped += d.Links.Dropped
		for _, a := range d.Assets {
			switch a.Status {
			case AssetWritten:
				s.AssetsWritten++
				s.BytesWritten += a.Bytes
			case AssetExisting:
				s.AssetsExisting++
			case AssetFailed:
				s.AssetsFailed++
			}
		}
	}
	return s
}

// String renders the totals for a log line.
func (s Summary) String() string {
	return fmt.Sprintf("%s documents (%s redirects), %s failed, %s assets written (%s), %s existing, %s failed, %s warnings",
		humanize.Comma(int64(s.Documents)),
		humanize.Comma(int64(s.Redirects)),
		humanize.Comma(int64(s.Failures)),
		humanize.Comma(int64(s.AssetsWritten)),
		humanize.Bytes(uint64(s.BytesWritten)),
		humanize.Comma(int64(s.AssetsExisting)),
		humanize.Comma(int64(s.AssetsFailed)),
		humanize.Comma(int64(s.Warnings)))
}

// Record is one line of a JSONL report. Exactly one payload field is set.
type Record struct {
	Kind     string         `json:"kind"`
	Document *DocumentEntry `json:"document,omitempty"`
	Failure  *Failure       `json:"failure,omitempty"`
	Summary  *Summary       `json:"summary,omitempty"`
}

// Records flattens the report into JSONL records.
func (r *Report) Records() []Record {
	records := make([]Record, 0, len(r.Documents)+len(r.Failures)+1)
	for i := range r.Documents {
		records = append(records, Record{Kind: "document", Document: &r.Documents[i]})
	}
	for i := range r.Failures {
		records = append(records, Record{Kind: "failure", Failure: &r.Failures[i]})
	}
	summary := r.Summary()
	return append(records, Record{Kind: "summary", Summary: &summary})
}
