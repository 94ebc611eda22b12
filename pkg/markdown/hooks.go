package markdown

import "regexp"

// Hook is a Markdown-to-Markdown transform run after the link rewrites and
// before code blocks are restored. Hooks must not have side effects.
type Hook func(string) string

// DefaultHooks returns the hooks run on every document.
func DefaultHooks() []Hook {
	return []Hook{RewriteVideoEmbeds, StripAssetPaths}
}

var (
	videoLink = regexp.MustCompile(`\[([^\]]*)\]\(https?://(?:www\.|m\.)?(?:youtube(?:-nocookie)?\.com/(?:watch\?v=|embed/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{6,})[^)\s]*\)`)
	assetPath = regexp.MustCompile(`/images/[a-f0-9]/[a-f0-9]{2}/`)
)

// RewriteVideoEmbeds turns links to YouTube videos into a clickable
// thumbnail image pointing at the watch page.
func RewriteVideoEmbeds(md string) string {
	return videoLink.ReplaceAllString(md, "[![$1](https://img.youtube.com/vi/$2/hqdefault.jpg)](https://www.youtube.com/watch?v=$2)")
}

// StripAssetPaths removes MediaWiki upload directories from references the
// asset rewriter did not see, leaving the bare file name.
func StripAssetPaths(md string) string {
	return assetPath.ReplaceAllString(md, "")
}
