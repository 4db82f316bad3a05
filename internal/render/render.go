// Package render converts Markdown bodies to the HTML the CMS stores, and
// strips HTML back to plain text for excerpt derivation.
package render

import (
	"html"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// HTML renders a Markdown body to HTML with the common extensions the
// corpus relies on (tables, fenced code, autolinks, footnotes).
func HTML(body string) string {
	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough |
			parser.SpaceHeadings | parser.HeadingIDs | parser.AutoHeadingIDs |
			parser.Footnotes | parser.DefinitionLists,
	).Parse(markdown.NormalizeNewlines([]byte(body)))

	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags,
	}
	return string(markdown.Render(doc, md_html.NewRenderer(opts)))
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// PlainText strips markup tags from rendered HTML, unescapes entities,
// and collapses whitespace runs to single spaces. Used to derive excerpts
// from the rendered body.
func PlainText(rendered string) string {
	text := tagRe.ReplaceAllString(rendered, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}
