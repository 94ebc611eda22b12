// Package shield protects literal code blocks while markup is converted to
// Markdown and escaped.
//
// Extract swaps every <pre> region for an opaque marker and returns a Table
// holding the decoded code. Restore puts the code back as fenced blocks.
// A Table belongs to one document: it is created by Extract and consumed by
// Restore, so concurrent documents never share markers.
package shield

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// MarkerPrefix starts every marker. Markers only use [A-Z0-9_], which no
// conversion or escaping stage treats specially.
const MarkerPrefix = "___CODEBLOCK_MARKER_"

const markerSuffix = "___"

var (
	preBlock = regexp.MustCompile(`(?is)<pre[^>]*>(.*?)</pre>`)
	codeTag  = regexp.MustCompile(`(?i)</?code[^>]*>`)
)

// Block is one shielded code region.
type Block struct {
	Marker string
	Code   string
}

// Table maps markers to the literal code they replaced, in extraction order.
type Table struct {
	blocks []Block
}

// Len returns the number of shielded blocks.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.blocks)
}

// Blocks returns the shielded blocks in extraction order.
func (t *Table) Blocks() []Block {
	if t == nil {
		return nil
	}
	out := make([]Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}

func (t *Table) add(code string) string {
	marker := MarkerPrefix + strconv.Itoa(len(t.blocks)) + markerSuffix
	t.blocks = append(t.blocks, Block{Marker: marker, Code: code})
	return marker
}

// Extract replaces every <pre> region in markup with a marker surrounded by
// blank lines. Nested <code> tags are dropped and entities decoded before the
// trimmed code is recorded.
func Extract(markup string) (string, *Table) {
	table := &Table{}
	shielded := preBlock.ReplaceAllStringFunc(markup, func(match string) string {
		inner := preBlock.FindStringSubmatch(match)[1]
		code := codeTag.ReplaceAllString(inner, "")
		code = strings.TrimSpace(html.UnescapeString(code))
		return "\n\n" + table.add(code) + "\n\n"
	})
	return shielded, table
}

// Restore replaces each marker with a fenced code block. The replacement is
// literal, so code content is never interpreted.
func Restore(text string, table *Table) string {
	if table == nil {
		return text
	}
	for _, b := range table.blocks {
		text = strings.ReplaceAll(text, b.Marker, "\n```\n"+b.Code+"\n```\n")
	}
	return text
}
