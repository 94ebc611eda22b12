package cleaner

import (
	"fmt"
	stdhtml "html"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Config defines the rules of the MediaWiki cleaner.
type Config struct {
	// RemoveSelectors lists wiki chrome removed wherever it appears.
	RemoveSelectors []string `json:"remove_selectors" yaml:"remove_selectors"`

	// Placeholders are element ids of template placeholders (disambiguation
	// boxes and similar) that carry no article content.
	Placeholders []string `json:"placeholders" yaml:"placeholders"`

	// ImageLinkSelectors match anchors wrapping embedded images. Matching
	// anchors that contain an <img> are replaced by their contents.
	ImageLinkSelectors []string `json:"image_link_selectors" yaml:"image_link_selectors"`

	// FlattenCodeBlocks replaces the inner markup of every <pre> with its text.
	FlattenCodeBlocks bool `json:"flatten_code_blocks" yaml:"flatten_code_blocks"`

	// StripComments removes HTML comments (parser limit reports and the like).
	StripComments bool `json:"strip_comments" yaml:"strip_comments"`

	// ReplaceVideoEmbeds turns YouTube iframes into plain links so they
	// survive Markdown conversion.
	ReplaceVideoEmbeds bool `json:"replace_video_embeds" yaml:"replace_video_embeds"`
}

// DefaultConfig returns the rules for a stock MediaWiki skin.
func DefaultConfig() *Config {
	return &Config{
		RemoveSelectors: []string{
			"#toc",
			".mw-parser-output sup a",
			".mw-parser-output .image[href*=\"Loudspeaker\"]",
			".magnify",
			"a[title=Enlarge]",
			"img[src*=magnify-clip]",
			"#catlinks",
			".printfooter",
			".mw-redirectedfrom",
			".mw-editsection",
		},
		Placeholders: []string{
			"Vorlage_Begriffsklaerung",
		},
		ImageLinkSelectors: []string{
			"a.image",
			"a.mw-file-description",
		},
		FlattenCodeBlocks:  true,
		StripComments:      true,
		ReplaceVideoEmbeds: true,
	}
}

var youtubeEmbed = regexp.MustCompile(`^(?:https?:)?//(?:www\.)?youtube(?:-nocookie)?\.com/embed/([A-Za-z0-9_-]{6,})`)

// MediaWikiCleaner removes MediaWiki chrome from a rendered page.
type MediaWikiCleaner struct {
	config *Config
}

// NewMediaWiki creates a new cleaner with the given configuration.
// If config is nil, DefaultConfig() is used.
func NewMediaWiki(config *Config) *MediaWikiCleaner {
	if config == nil {
		config = DefaultConfig()
	}
	return &MediaWikiCleaner{config: config}
}

// Name returns the cleaner name for logging.
func (c *MediaWikiCleaner) Name() string {
	return "mediawiki"
}

// Clean applies all configured rules to root.
func (c *MediaWikiCleaner) Clean(root *goquery.Selection) *Result {
	start := time.Now()
	result := &Result{Stats: NewStats()}

	// Order matters: drop chrome first, so the unwrap pass never sees it
	c.removeBySelectors(root, result)
	c.removePlaceholders(root, result)
	if c.config.StripComments {
		c.removeComments(root, result)
	}
	c.unwrapImageLinks(root, result)
	if c.config.ReplaceVideoEmbeds {
		c.replaceVideoEmbeds(root, result)
	}
	if c.config.FlattenCodeBlocks {
		c.flattenCodeBlocks(root, result)
	}

	result.Stats.TotalDuration = time.Since(start)
	return result
}

// removeBySelectors removes elements matching the configured selectors.
func (c *MediaWikiCleaner) removeBySelectors(root *goquery.Selection, result *Result) {
	for _, selector := range c.config.RemoveSelectors {
		selection := root.Find(selector)
		count := selection.Length()
		if count == 0 {
			continue
		}
		result.Stats.RecordSelectorMatch(selector, count)
		selection.Each(func(_ int, s *goquery.Selection) {
			result.Stats.RecordRemoval(goquery.NodeName(s))
		})
		selection.Remove()
	}
}

func (c *MediaWikiCleaner) removePlaceholders(root *goquery.Selection, result *Result) {
	for _, id := range c.config.Placeholders {
		root.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("id")
			return v == id
		}).Each(func(_ int, s *goquery.Selection) {
			result.Stats.RecordSelectorMatch("#"+id, 1)
			result.Stats.RecordRemoval(goquery.NodeName(s))
			s.Remove()
		})
	}
}

// removeComments walks the underlying nodes since selectors never match comments.
func (c *MediaWikiCleaner) removeComments(root *goquery.Selection, result *Result) {
	var comments []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.CommentNode {
				comments = append(comments, child)
				continue
			}
			walk(child)
		}
	}
	for _, n := range root.Nodes {
		walk(n)
	}
	for _, n := range comments {
		n.Parent.RemoveChild(n)
		result.Stats.RecordRemoval("#comment")
	}
}

// unwrapImageLinks keeps the image and drops the anchor around it.
func (c *MediaWikiCleaner) unwrapImageLinks(root *goquery.Selection, result *Result) {
	for _, selector := range c.config.ImageLinkSelectors {
		root.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) != "a" || s.Find("img").Length() == 0 {
				return
			}
			s.ReplaceWithSelection(s.Contents())
			result.Stats.ImagesUnwrapped++
		})
	}
}

func (c *MediaWikiCleaner) replaceVideoEmbeds(root *goquery.Selection, result *Result) {
	root.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		m := youtubeEmbed.FindStringSubmatch(src)
		if m == nil {
			return
		}
		title := s.AttrOr("title", "Video")
		link := fmt.Sprintf(`<a href="https://www.youtube.com/watch?v=%s">%s</a>`, m[1], stdhtml.EscapeString(title))
		s.ReplaceWithHtml(link)
		result.Stats.EmbedsReplaced++
	})
}

// flattenCodeBlocks replaces the inner markup of every <pre> with its own
// text, so highlighting spans never reach the Markdown stage.
func (c *MediaWikiCleaner) flattenCodeBlocks(root *goquery.Selection, result *Result) {
	root.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		if pre.Children().Length() == 0 {
			return
		}
		pre.Find("br").Each(func(_ int, br *goquery.Selection) {
			br.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: "\n"})
		})
		pre.SetText(pre.Text())
		result.Stats.BlocksFlattened++
	})
}
