package tools

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// htmlToMarkdown renders an HTML fragment as markdown. Scripts, styles,
// and other non-content nodes are dropped.
func htmlToMarkdown(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template, iframe").Remove()

	var b strings.Builder
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			renderNode(&b, node, 0)
		}
	})
	return collapseBlankLines(strings.TrimSpace(b.String())) + "\n", nil
}

func renderNode(b *strings.Builder, node *html.Node, listDepth int) {
	if node.Type == html.TextNode {
		text := strings.Join(strings.Fields(node.Data), " ")
		if text != "" {
			b.WriteString(text)
			b.WriteString(" ")
		}
		return
	}
	if node.Type != html.ElementNode && node.Type != html.DocumentNode {
		return
	}

	switch node.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(node.Data[1] - '0')
		b.WriteString("\n\n" + strings.Repeat("#", level) + " ")
		renderChildren(b, node, listDepth)
		b.WriteString("\n\n")
	case "p", "div", "section", "article", "header", "footer", "main":
		b.WriteString("\n")
		renderChildren(b, node, listDepth)
		b.WriteString("\n")
	case "br":
		b.WriteString("\n")
	case "hr":
		b.WriteString("\n\n---\n\n")
	case "a":
		href := attr(node, "href")
		var inner strings.Builder
		renderChildren(&inner, node, listDepth)
		text := strings.TrimSpace(inner.String())
		if href != "" && text != "" {
			fmt.Fprintf(b, "[%s](%s) ", text, href)
		} else {
			b.WriteString(text + " ")
		}
	case "img":
		if alt := attr(node, "alt"); alt != "" {
			fmt.Fprintf(b, "![%s](%s) ", alt, attr(node, "src"))
		}
	case "strong", "b":
		wrapInline(b, node, "**", listDepth)
	case "em", "i":
		wrapInline(b, node, "*", listDepth)
	case "code":
		if node.Parent != nil && node.Parent.Data == "pre" {
			renderChildren(b, node, listDepth)
		} else {
			wrapInline(b, node, "`", listDepth)
		}
	case "pre":
		b.WriteString("\n\n```\n")
		b.WriteString(rawText(node))
		b.WriteString("\n```\n\n")
	case "blockquote":
		var inner strings.Builder
		renderChildren(&inner, node, listDepth)
		for _, line := range strings.Split(strings.TrimSpace(inner.String()), "\n") {
			b.WriteString("\n> " + strings.TrimSpace(line))
		}
		b.WriteString("\n")
	case "ul", "ol":
		b.WriteString("\n")
		index := 1
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && child.Data == "li" {
				b.WriteString(strings.Repeat("  ", listDepth))
				if node.Data == "ol" {
					fmt.Fprintf(b, "%d. ", index)
					index++
				} else {
					b.WriteString("- ")
				}
				renderChildren(b, child, listDepth+1)
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	default:
		renderChildren(b, node, listDepth)
	}
}

func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func renderChildren(b *strings.Builder, node *html.Node, listDepth int) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		renderNode(b, child, listDepth)
	}
}

func wrapInline(b *strings.Builder, node *html.Node, marker string, listDepth int) {
	var inner strings.Builder
	renderChildren(&inner, node, listDepth)
	text := strings.TrimSpace(inner.String())
	if text != "" {
		b.WriteString(marker + text + marker + " ")
	}
}

func rawText(node *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return strings.TrimSpace(b.String())
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " ")
		if strings.TrimSpace(trimmed) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, strings.TrimSpace(trimmed))
	}
	return strings.Join(out, "\n")
}
