package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

// Rewrite is one literal or regular-expression replacement applied to the
// Markdown body. Regex rewrites use Go regexp syntax and $1-style expansion.
type Rewrite struct {
	From  string `mapstructure:"from" yaml:"from" json:"from" validate:"required"`
	To    string `mapstructure:"to" yaml:"to" json:"to"`
	Regex bool   `mapstructure:"regex" yaml:"regex" json:"regex"`
}

// DefaultRewrites returns the fixups every migration needs: percent-encoded
// umlauts left in link targets become the digraphs the path sanitizer uses,
// and plain-http links to the wiki host are upgraded when host is set.
func DefaultRewrites(host string) []Rewrite {
	rewrites := []Rewrite{
		{From: "%C3%B6", To: "oe"},
		{From: "%C3%BC", To: "ue"},
		{From: "%C3%A4", To: "ae"},
		{From: "%C3%96", To: "Oe"},
		{From: "%C3%9C", To: "Ue"},
		{From: "%C3%84", To: "Ae"},
		{From: "%C3%9F", To: "ss"},
		{From: "%2C", To: ""},
		{From: "%27", To: ""},
	}
	if host != "" {
		rewrites = append(rewrites, Rewrite{From: "http://" + host, To: "https://" + host})
	}
	return rewrites
}

// colonFix always runs after the configured rewrites.
var colonFix = Rewrite{From: ") :", To: "):"}

type compiledRewrite struct {
	Rewrite
	re *regexp.Regexp
}

func compileRewrites(rewrites []Rewrite) ([]compiledRewrite, error) {
	all := append(append([]Rewrite(nil), rewrites...), colonFix)
	out := make([]compiledRewrite, 0, len(all))
	for _, r := range all {
		c := compiledRewrite{Rewrite: r}
		if r.Regex {
			re, err := regexp.Compile(r.From)
			if err != nil {
				return nil, fmt.Errorf("invalid rewrite pattern %q: %w", r.From, err)
			}
			c.re = re
		}
		out = append(out, c)
	}
	return out, nil
}

func (c compiledRewrite) apply(s string) string {
	if c.re != nil {
		return c.re.ReplaceAllString(s, c.To)
	}
	if c.From == "" {
		return s
	}
	return strings.ReplaceAll(s, c.From, c.To)
}
