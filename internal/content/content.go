// ABOUTME: Content processing for request descriptions
// ABOUTME: Converts imported HTML to Markdown and builds one-line excerpts for the feed

package content

import (
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// htmlTagPattern matches common HTML tags
var htmlTagPattern = regexp.MustCompile(`<\s*(p|div|span|a|br|img|h[1-6]|ul|ol|li|table|tr|td|th|strong|em|b|i|code|pre|blockquote)[^>]*>`)

// IsHTML checks if content appears to be HTML
func IsHTML(content string) bool {
	// Quick checks for obvious HTML markers
	if strings.Contains(content, "<!DOCTYPE") || strings.Contains(content, "<html") {
		return true
	}

	// Check for common HTML tags
	return htmlTagPattern.MatchString(content)
}

// ToMarkdown converts HTML content to Markdown
// If the content doesn't appear to be HTML, returns it unchanged
func ToMarkdown(content string) string {
	if content == "" {
		return content
	}

	if !IsHTML(content) {
		return content
	}

	markdown, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		// If conversion fails, return original content
		return content
	}

	// Clean up excessive whitespace
	markdown = strings.TrimSpace(markdown)

	return markdown
}

// Excerpt collapses whitespace and Markdown emphasis into a single line of at
// most width runes, ending in an ellipsis when truncated.
func Excerpt(s string, width int) string {
	s = strings.NewReplacer("**", "", "__", "", "`", "", "#", "").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:width-1]), " ")
	return cut + "…"
}
