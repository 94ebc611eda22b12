// Package markdown converts cleaned wiki markup to Markdown and post-processes
// the result into MDX-safe documents.
package markdown

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// Converter turns shielded HTML into Markdown using html-to-markdown.
// It uses fenced code blocks and keeps tables as Markdown tables.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a Converter. It is safe for concurrent use.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithCodeBlockFence("```"),
			),
			table.NewTablePlugin(),
		),
	)

	// Inline images are never downloaded; keep their alt text instead of the
	// data URI. PriorityEarly runs before the commonmark renderer.
	conv.Register.RendererFor("img", converter.TagTypeInline,
		func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
			src := dom.GetAttributeOr(n, "src", "")
			if !strings.HasPrefix(src, "data:") {
				return converter.RenderTryNext
			}
			if alt := strings.TrimSpace(dom.GetAttributeOr(n, "alt", "")); alt != "" {
				w.WriteString("[Image: " + alt + "]")
			}
			return converter.RenderSuccess
		},
		converter.PriorityEarly,
	)

	return &Converter{conv: conv}
}

// Convert converts markup to Markdown.
func (c *Converter) Convert(markup string) (string, error) {
	markdown, err := c.conv.ConvertString(markup)
	if err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}

	// Clean up excessive whitespace
	return cleanWhitespace(markdown), nil
}

// cleanWhitespace normalizes whitespace in the output.
func cleanWhitespace(s string) string {
	// Replace multiple blank lines with a single blank line (max 2 consecutive newlines)
	lines := strings.Split(s, "\n")
	var result []string
	blankCount := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			blankCount++
			// Allow only 1 blank line (2 consecutive newlines: content\n + blank\n)
			if blankCount <= 1 {
				result = append(result, "")
			}
		} else {
			blankCount = 0
			result = append(result, line)
		}
	}

	return strings.TrimSpace(strings.Join(result, "\n"))
}
