// Package markdown renders the small markdown subset used in release notes
// and plugin descriptions to HTML.
//
// The renderer is a fixed chain of regular expression replacements. Every
// pass works on the output of the previous one, so the order of passes is
// part of the output format. Headings are not supported and ordered lists
// are rendered as unordered lists. Malformed input is never rejected.
package markdown

import "regexp"

type pass struct {
	pattern     *regexp.Regexp
	replacement string
}

var passes = []pass{
	// unordered list items and their grouping
	{regexp.MustCompile(`(?m)^[*-]\s+(.+)\s`), `<li>${1}</li>`},
	{regexp.MustCompile(`(?s)(<li>.*?</li>\s*)+`), "<ul>${0}</ul>\n"},

	// ordered list items get a placeholder tag so they are grouped separately
	{regexp.MustCompile(`(?m)^(\d+\.)\s+(.+)\s`), `<olli>${2}</olli>`},
	{regexp.MustCompile(`(?s)(<olli>.*?</olli>\s*)+`), "<ul>${0}</ul>\n"},
	{regexp.MustCompile(`olli>`), `li>`},

	// whitespace in front of list tags
	{regexp.MustCompile(`\s*(<.(li|ul)>)`), `${1}`},

	{regexp.MustCompile(`> (.+)`), `<blockquote>${1}</blockquote>`},
	{regexp.MustCompile(`\s*<.blockquote>`), `</blockquote>`},
	{regexp.MustCompile(`<.blockquote>\n<blockquote>`), `<br />`},

	{regexp.MustCompile(`(?m)^([^<\r\n]+)`), `<p>${1}</p>`},

	{regexp.MustCompile(`(https://[/\w\-.+?&%]+)`), `<a href="${1}">${1}</a>`},
	// [text](url) after the url has already been turned into an anchor
	{regexp.MustCompile(`\[(.+)\]\((<a href=[^>]+>).+<.a>\)`), `${2}${1}</a>`},

	{regexp.MustCompile(`\*\*([^*]+)\*\*`), `<strong>${1}</strong>`},
	{regexp.MustCompile(`_([^_]+)_`), `<em>${1}</em>`},
	{regexp.MustCompile("`([^`]+)`"), `<code>${1}</code>`},
}

// Render converts md to HTML.
func Render(md string) string {
	// a trailing line break lets the line based patterns match the last line
	out := md + "\r\n"
	for _, p := range passes {
		out = p.pattern.ReplaceAllString(out, p.replacement)
	}
	return out
}
