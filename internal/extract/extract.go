package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// Page is the readable content of a fetched result page.
type Page struct {
	Title       string
	Description string // <meta name="description">, when present
	Text        string
}

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Aside:    true,
	atom.Iframe:   true,
	atom.Template: true,
	atom.Form:     true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Li: true, atom.Br: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Pre: true, atom.Blockquote: true, atom.Tr: true, atom.Dt: true, atom.Dd: true,
}

// Read decodes r using the charset implied by contentType and the document
// itself, then extracts its readable content.
func Read(r io.Reader, contentType string, maxRunes int) (Page, error) {
	utf8r, err := charset.NewReader(r, contentType)
	if err != nil {
		return Page{}, fmt.Errorf("charset: %w", err)
	}
	doc, err := html.Parse(utf8r)
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	return fromNode(doc, maxRunes), nil
}

// FromHTML extracts content from UTF-8 HTML. Unparseable input yields an
// empty Page.
func FromHTML(input []byte) Page {
	doc, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return Page{}
	}
	return fromNode(doc, 0)
}

func fromNode(doc *html.Node, maxRunes int) Page {
	var p Page
	if t := first(doc, atom.Title); t != nil {
		p.Title = collapse(textOf(t))
	}
	p.Description = metaDescription(doc)

	root := first(doc, atom.Main)
	if root == nil {
		root = first(doc, atom.Article)
	}
	if root == nil {
		root = first(doc, atom.Body)
	}
	if root != nil {
		var b strings.Builder
		walk(&b, root)
		p.Text = truncate(tidy(b.String()), maxRunes)
	}
	return p
}

func first(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := first(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func metaDescription(doc *html.Node) string {
	var desc string
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			var name, content string
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case "name", "property":
					name = strings.ToLower(a.Val)
				case "content":
					content = a.Val
				}
			}
			if name == "description" || name == "og:description" {
				desc = collapse(content)
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(doc)
	return desc
}

func walk(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
	}
	block := n.Type == html.ElementNode && blocks[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// tidy collapses runs of whitespace within lines and drops empty lines.
func tidy(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(r[:maxRunes]))
}
