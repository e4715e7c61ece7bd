// Package crawler downloads a family's pages from the source site and
// stores them cleaned: presentational markup stripped, layout tables
// reduced to the content cell, so parsers work on small stable fragments.
package crawler

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// unwrapTags are presentational wrappers replaced by their children.
// Links survive because member pages encode parentage in them.
var unwrapTags = map[string]bool{
	"p":    true,
	"span": true,
	"font": true,
	"img":  true,
}

// keptAttrs survive attribute stripping, per tag.
var keptAttrs = map[string]string{
	"a": "href",
}

// CleanMemberPage reduces a member detail page to its content cell. When
// the expected cell is missing the page is kept as-is so the parser can
// still account for it.
func CleanMemberPage(raw []byte) []byte {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return raw
	}
	target := findContentCell(doc)
	if target == nil {
		slog.Debug("member page content cell not found, keeping page as-is")
		return raw
	}
	node := target.Get(0)
	cleanNode(node)
	return wrapChildren(node)
}

// CleanOverviewPage reduces the family overview page to the first row of
// its content table, which holds the banner and narrative blocks. Unlike
// member pages the markup is kept intact: the family extractor keys off
// font colors and div alignment.
func CleanOverviewPage(raw []byte) []byte {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return raw
	}
	cell := findContentCell(doc)
	if cell == nil {
		return raw
	}
	row := cell.Find("table").First().Find("tr").First()
	if row.Length() == 0 {
		return raw
	}
	return wrapRow(row.Get(0))
}

// findContentCell locates the site's single content cell: the full-height
// td painted with the paper background.
func findContentCell(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find(`td[valign="top"][height="100%"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		bg, ok := s.Attr("background")
		if !ok || !strings.Contains(bg, "bg") {
			return true
		}
		found = s
		return false
	})
	return found
}

// cleanNode unwraps presentational tags and strips attributes in place.
func cleanNode(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		cleanNode(child)
		if child.Type == html.ElementNode && unwrapTags[child.Data] {
			unwrap(n, child)
		}
		child = next
	}
	if n.Type == html.ElementNode {
		stripAttrs(n)
	}
}

// unwrap replaces child with its own children inside parent.
func unwrap(parent, child *html.Node) {
	for grand := child.FirstChild; grand != nil; {
		next := grand.NextSibling
		child.RemoveChild(grand)
		parent.InsertBefore(grand, child)
		grand = next
	}
	parent.RemoveChild(child)
}

// stripAttrs drops every attribute except the per-tag keep list.
func stripAttrs(n *html.Node) {
	keep := keptAttrs[n.Data]
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key == keep {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// wrapChildren renders a node's children inside a minimal document shell.
// The content cell itself is dropped; its nested tables carry the rows
// the parsers read.
func wrapChildren(n *html.Node) []byte {
	var buf bytes.Buffer
	buf.WriteString("<html><body>")
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return nil
		}
	}
	buf.WriteString("</body></html>")
	return buf.Bytes()
}

// wrapRow renders a single table row inside a minimal table shell.
func wrapRow(n *html.Node) []byte {
	var buf bytes.Buffer
	buf.WriteString("<html><body><table>")
	if err := html.Render(&buf, n); err != nil {
		return nil
	}
	buf.WriteString("</table></body></html>")
	return buf.Bytes()
}
