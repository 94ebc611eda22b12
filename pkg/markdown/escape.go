package markdown

import (
	"regexp"
	"strings"
)

var autolink = regexp.MustCompile(`^<(https?://|mailto:|ftp://)[^>]+>`)

// isFence reports whether a line opens or closes a fenced code region.
func isFence(line string, tilde bool) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "```") || (tilde && strings.HasPrefix(trimmed, "~~~"))
}

// EscapeMDX escapes the characters MDX reads as JSX: { and } always, < unless
// it starts an autolink. Lines inside fenced code regions pass through, as
// does a leading front-matter block. Characters already escaped with a
// backslash are left alone, so the function is idempotent.
func EscapeMDX(md string) string {
	lines := strings.Split(md, "\n")
	var sb strings.Builder
	sb.Grow(len(md) + len(md)/16)

	start := frontMatterEnd(lines)
	inFence := false

	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch {
		case i < start:
			sb.WriteString(line)
		case isFence(line, true):
			inFence = !inFence
			sb.WriteString(line)
		case inFence:
			sb.WriteString(line)
		default:
			escapeLine(&sb, line)
		}
	}
	return sb.String()
}

func escapeLine(sb *strings.Builder, line string) {
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if escaped {
			sb.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
			sb.WriteByte(c)
		case '{', '}':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '<':
			if !autolink.MatchString(line[i:]) {
				sb.WriteByte('\\')
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
}

// frontMatterEnd returns the index of the first line after a leading
// "---" delimited block, or 0 when the document has none.
func frontMatterEnd(lines []string) int {
	if len(lines) == 0 || lines[0] != "---" {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if lines[i] == "---" {
			return i + 1
		}
	}
	return 0
}
