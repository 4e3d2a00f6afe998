package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CleanedPage is the readable view of a fetched HTML document.
type CleanedPage struct {
	Title       string
	Description string
	Text        string
	Truncated   bool
}

// CleanHTML parses raw HTML and extracts its readable text, dropping
// scripts, styles, and other noise. Extraction prefers the article or main
// region when present. Text beyond maxChars is cut with a marker; maxChars
// of zero or less means no limit.
func CleanHTML(rawHTML string, maxChars int) (*CleanedPage, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &CleanedPage{
		Title:       findTitle(doc),
		Description: findMetaDescription(doc),
	}

	root := findFirst(doc, "article")
	if root == nil {
		root = findFirst(doc, "main")
	}
	if root == nil {
		root = findFirst(doc, "body")
	}
	if root == nil {
		root = doc
	}

	var builder strings.Builder
	collectText(root, &builder)
	text := collapseBlankLines(builder.String())

	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars] + "..."
		page.Truncated = true
	}
	page.Text = text
	return page, nil
}

// collectText walks the node tree appending readable text, inserting line
// breaks at block boundaries.
func collectText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && isNoiseElement(strings.ToLower(n.Data)) {
		return
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			builder.WriteString(text)
			builder.WriteString(" ")
		}
		return
	}

	isBlock := n.Type == html.ElementNode && isBlockElement(strings.ToLower(n.Data))
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, builder)
	}
	if isBlock {
		builder.WriteString("\n")
	}
}

// collapseBlankLines trims trailing spaces per line and squeezes runs of
// blank lines down to one.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// isNoiseElement reports elements whose content never contributes readable
// text.
func isNoiseElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "iframe", "embed", "object", "svg", "head", "template":
		return true
	}
	return false
}

// isBlockElement reports block-level elements, used to place line breaks.
func isBlockElement(tagName string) bool {
	switch tagName {
	case "div", "p", "section", "article", "header", "footer", "nav", "main",
		"aside", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li",
		"table", "tr", "td", "th", "form", "fieldset", "blockquote", "pre", "br":
		return true
	}
	return false
}

// findFirst returns the first element with the given tag name, depth first.
func findFirst(n *html.Node, tagName string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tagName {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tagName); found != nil {
			return found
		}
	}
	return nil
}

// findTitle extracts the document title.
func findTitle(doc *html.Node) string {
	node := findFirst(doc, "title")
	if node != nil && node.FirstChild != nil && node.FirstChild.Type == html.TextNode {
		return strings.TrimSpace(node.FirstChild.Data)
	}
	return ""
}

// findMetaDescription extracts the meta description, if any.
func findMetaDescription(doc *html.Node) string {
	var description string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var isDescription bool
			var content string
			for _, attr := range n.Attr {
				if attr.Key == "name" && attr.Val == "description" {
					isDescription = true
				}
				if attr.Key == "content" {
					content = attr.Val
				}
			}
			if isDescription && content != "" {
				description = strings.TrimSpace(content)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if description != "" {
				return
			}
		}
	}
	traverse(doc)
	return description
}
