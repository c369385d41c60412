package markdown

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	headerPattern = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	listPattern   = regexp.MustCompile(`(?m)^\s*([\-\*\+]|\d+[.)])\s+\S`)
	linkPattern   = regexp.MustCompile(`\[.+?\]\(.+?\)`)
	emphasis      = regexp.MustCompile(`(\*\*|__)\S.*?\S(\*\*|__)`)
)

// blockElements are tags that mark a generated response as HTML rather than
// markdown with some inline markup.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "pre": true,
	"table": true, "html": true, "body": true, "br": true,
}

// IsMarkdownContent uses heuristics to detect if content is markdown.
func IsMarkdownContent(content string) bool {
	if content == "" {
		return false
	}

	trimmed := strings.TrimSpace(content)

	// If it looks like HTML, it's not markdown
	if IsHTMLContent(trimmed) {
		return false
	}

	return hasMarkdownPatterns(trimmed)
}

// IsHTMLContent reports whether text is an HTML document or fragment.
// A leading block-level element is required; inline tags inside prose are
// valid markdown and do not count.
func IsHTMLContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || trimmed[0] != '<' {
		return false
	}
	if looksLikeHTMLDocument(trimmed) {
		return true
	}

	z := html.NewTokenizer(strings.NewReader(trimmed))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockElements[string(name)] {
				return true
			}
		}
	}
}

// looksLikeHTMLDocument checks if content appears to be a full HTML page.
func looksLikeHTMLDocument(content string) bool {
	lower := strings.ToLower(content)
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(lower, "<head") ||
		strings.HasPrefix(lower, "<body")
}

// hasMarkdownPatterns checks for common markdown syntax.
func hasMarkdownPatterns(content string) bool {
	return headerPattern.MatchString(content) ||
		listPattern.MatchString(content) ||
		linkPattern.MatchString(content) ||
		emphasis.MatchString(content)
}
