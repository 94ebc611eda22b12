// Package sanitize turns wiki titles and asset names into safe path segments.
//
// Both functions are pure and idempotent: sanitizing an already sanitized
// value returns it unchanged. An empty result means the input had no usable
// name and callers must not build a path from it.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	extPattern      = regexp.MustCompile(`^\.[A-Za-z0-9]{2,4}$`)
	multiUnderscore = regexp.MustCompile(`_{2,}`)
	multiSlash      = regexp.MustCompile(`/{2,}`)
)

// removed are characters with no safe meaning in a path.
var removed = []string{
	"'", "", "´", "", ",", "", "!", "", "?", "", "Â", "",
	`"`, "", "<", "", ">", "", "*", "",
}

var umlauts = []string{
	"ü", "ue", "ä", "ae", "ö", "oe",
	"Ü", "Ue", "Ä", "Ae", "Ö", "Oe",
	"ß", "ss",
}

// pathReplacer keeps the wiki namespace separator as a directory boundary.
var pathReplacer = strings.NewReplacer(concat(
	removed,
	umlauts,
	[]string{
		":", "/",
		`\`, "/",
		"&", "_",
		".", "_",
		"|", "_",
		"(", "_",
		")", "_",
		" ", "_",
	},
)...)

// assetReplacer flattens everything, assets never live in subdirectories.
var assetReplacer = strings.NewReplacer(concat(
	removed,
	umlauts,
	[]string{
		":", "_",
		"/", "_",
		`\`, "_",
		"&", "_",
		".", "_",
		"|", "_",
		"(", "_",
		")", "_",
		" ", "_",
	},
)...)

// Path sanitizes a page or category title into a corpus-relative path.
// "Magento_2_Extensions:Custom_SMTP" becomes "Magento_2_Extensions/Custom_SMTP".
func Path(raw string) string {
	stem, ext := SplitExt(raw)

	s := pathReplacer.Replace(stem)
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = multiSlash.ReplaceAllString(s, "/")

	segments := strings.Split(s, "/")
	kept := segments[:0]
	for _, seg := range segments {
		seg = strings.Trim(seg, "_")
		if seg != "" {
			kept = append(kept, seg)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "/") + ext
}

// AssetName sanitizes a file name for flat storage next to a document.
// Unlike Path it never produces a "/".
func AssetName(raw string) string {
	stem, ext := SplitExt(raw)

	s := assetReplacer.Replace(stem)
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return ""
	}
	return s + ext
}

// SplitExt splits off a trailing extension of 2-4 alphanumeric characters.
// The dot must be preceded by at least one character; otherwise the whole
// name is treated as the stem.
func SplitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	if extPattern.MatchString(name[i:]) {
		return name[:i], name[i:]
	}
	return name, ""
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
