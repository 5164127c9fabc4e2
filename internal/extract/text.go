package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	fencedCode = regexp.MustCompile("(?s)```.*?```")
	inlineCode = regexp.MustCompile("`[^`\n]*`")
	htmlTag    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// RoleAssistant is the only message role claims are extracted from
const RoleAssistant = "assistant"

// IsClaimSource reports whether messages from role can carry claims
func IsClaimSource(role string) bool {
	return strings.EqualFold(strings.TrimSpace(role), RoleAssistant)
}

// PlainText prepares a conversational message for claim extraction:
// code blocks are dropped and HTML markup is reduced to its visible text.
func PlainText(content string) string {
	text := fencedCode.ReplaceAllString(content, "\n")
	text = inlineCode.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Trim(m, "`")
	})

	if htmlTag.MatchString(text) {
		if doc, err := html.Parse(strings.NewReader(text)); err == nil {
			text = extractVisibleText(doc)
		}
	}

	return strings.TrimSpace(text)
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles.
// Block elements end a line so list items stay separate sentences.
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "pre", "code":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "li", "div", "br", "h1", "h2", "h3", "h4", "tr":
				buf.WriteString("\n")
			}
		}
	}

	walk(n)
	return buf.String()
}
