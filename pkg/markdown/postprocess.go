package markdown

import (
	"regexp"
	"strings"

	"github.com/jmylchreest/wiki2docs/pkg/shield"
)

// FrontMatter carries the header fields of a document.
type FrontMatter struct {
	Heading  string
	Category string
}

// Postprocessor turns converted Markdown into a finished MDX-safe document.
// The stage order in Process is fixed: code is restored only after every
// text substitution and before escaping.
type Postprocessor struct {
	rewrites []compiledRewrite
	hooks    []Hook
}

// NewPostprocessor compiles the rewrites. Pass DefaultHooks() for the usual
// video and asset-path fixups.
func NewPostprocessor(rewrites []Rewrite, hooks ...Hook) (*Postprocessor, error) {
	compiled, err := compileRewrites(rewrites)
	if err != nil {
		return nil, err
	}
	return &Postprocessor{rewrites: compiled, hooks: hooks}, nil
}

// Process runs all stages on a converted body.
func (p *Postprocessor) Process(body string, meta FrontMatter, table *shield.Table) string {
	md := StripResidualTags(body)
	md = UnescapeUnderscores(md)
	md = WithFrontMatter(md, meta)
	md = p.Rewrite(md)
	for _, hook := range p.hooks {
		md = hook(md)
	}
	md = shield.Restore(md, table)
	return EscapeMDX(md)
}

// Rewrite applies the configured rewrites in order, then collapses ") :".
func (p *Postprocessor) Rewrite(md string) string {
	for _, r := range p.rewrites {
		md = r.apply(md)
	}
	return md
}

var residualTag = regexp.MustCompile(`<([^>]+)>`)

// StripResidualTags reduces markup the converter left behind to its inner
// text ("<br>" becomes "br") outside fenced code regions.
func StripResidualTags(md string) string {
	lines := strings.Split(md, "\n")
	inFence := false
	for i, line := range lines {
		if isFence(line, false) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		lines[i] = residualTag.ReplaceAllString(line, "$1")
	}
	return strings.Join(lines, "\n")
}

// UnescapeUnderscores undoes the converter's escaping of underscores.
func UnescapeUnderscores(md string) string {
	return strings.ReplaceAll(md, `\_`, "_")
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// WithFrontMatter prepends the YAML header and a level-1 heading.
// sidebar_label is only written when a category is set.
func WithFrontMatter(body string, meta FrontMatter) string {
	quoted := quoteEscaper.Replace(meta.Heading)

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString(`title: "` + quoted + "\"\n")
	if meta.Category != "" {
		sb.WriteString(`sidebar_label: "` + quoted + "\"\n")
	}
	sb.WriteString("---\n\n")
	sb.WriteString("# " + meta.Heading + "\n\n")
	sb.WriteString(body)
	return sb.String()
}
