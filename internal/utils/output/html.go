package output

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const strippedTags = "script, style, link, meta, noscript, iframe, svg, form, input, button, select, textarea, canvas"

// keptAttrs lists the attributes CleanHTML preserves per tag; every other
// attribute is dropped
var keptAttrs = map[string]map[string]bool{
	"a":   {"href": true, "title": true},
	"img": {"src": true, "alt": true, "title": true},
	"td":  {"colspan": true, "rowspan": true},
	"th":  {"colspan": true, "rowspan": true},
}

// CleanHTML strips scripts, styles, form controls, comments and
// presentational attributes from a bulletin page, leaving markup that
// converts cleanly to Markdown
func CleanHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find(strippedTags).Remove()

	for _, root := range doc.Nodes {
		removeComments(root)
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node == nil {
			return
		}
		allowed := keptAttrs[node.Data]
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if allowed[attr.Key] {
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	})

	out, err := doc.Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func removeComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			removeComments(c)
		}
		c = next
	}
}

// PrettyPrint returns an indented outline of an HTML node tree, one element
// or non-blank text node per line. Useful for checking which cells the
// extractors will see.
func PrettyPrint(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node, int)
	walk = func(n *html.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		switch n.Type {
		case html.DocumentNode:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, depth)
			}
		case html.DoctypeNode:
			fmt.Fprintf(&sb, "<!DOCTYPE %s>\n", n.Data)
		case html.ElementNode:
			fmt.Fprintf(&sb, "%s<%s", indent, n.Data)
			for _, a := range n.Attr {
				fmt.Fprintf(&sb, " %s=%q", a.Key, a.Val)
			}
			sb.WriteString(">\n")
			if isVoidElement(n.Data) {
				return
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, depth+1)
			}
			fmt.Fprintf(&sb, "%s</%s>\n", indent, n.Data)
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				fmt.Fprintf(&sb, "%s%s\n", indent, text)
			}
		}
	}
	walk(n, 0)
	return sb.String()
}

func isVoidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}
