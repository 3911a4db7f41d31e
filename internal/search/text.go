package search

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var whitespaceRe = regexp.MustCompile(`[\n\t\r\s\xA0]+`)

// PlainText strips markup and entities from a provider string and collapses
// whitespace.
func PlainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	text := s
	if doc, err := html.Parse(strings.NewReader(s)); err == nil {
		text = extractText(doc)
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

func extractText(n *html.Node) string {
	var extract func(*html.Node) string

	extract = func(n *html.Node) string {
		if n.Type == html.TextNode {
			return n.Data
		}
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			sb.WriteString(extract(c))
		}
		return sb.String()
	}

	return extract(n)
}
