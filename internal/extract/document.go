// Package extract turns parsed product pages into nutrition records.
package extract

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page.
type Document struct {
	doc *goquery.Document
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}
	return &Document{doc: doc}, nil
}

// ParseBytes parses an in-memory HTML document.
func ParseBytes(body []byte) (*Document, error) {
	return Parse(bytes.NewReader(body))
}

// Find runs a CSS selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	if len(d.doc.Nodes) == 0 {
		return nil
	}
	return d.doc.Nodes[0]
}

// StripText concatenates every descendant text node of n, each trimmed of
// surrounding whitespace, with no separator.
func StripText(n *html.Node) string {
	var b strings.Builder
	stripTextRecursive(n, &b)
	return b.String()
}

func stripTextRecursive(n *html.Node, b *strings.Builder) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(strings.TrimSpace(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stripTextRecursive(c, b)
	}
}

// SelectionText applies StripText to every node of sel and joins the results.
func SelectionText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		b.WriteString(StripText(n))
	}
	return b.String()
}
