// Package dom loads a markup file into a read-only document tree.
//
// Parsing follows the HTML5 tree construction algorithm as implemented by
// golang.org/x/net/html, so missing head/body elements are inserted, void
// elements are closed and the doctype is recognized. Selector queries use
// CSS selector syntax compiled by cascadia.
//
// A Document is never mutated after Load returns. It is safe to share one
// Document between any number of readers.
package dom

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the parsed form of one markup file.
type Document struct {
	path    string
	source  []byte
	node    *html.Node // html.DocumentNode
	doctype string
	hasDT   bool
}

// Load reads path and parses it into a Document.
//
// Returns *LoadError if the file is missing or unreadable and *ParseError
// if the content is not UTF-8 or the parser rejects it.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return Parse(path, data)
}

// Parse builds a Document from in-memory content. name is used as the
// document path in errors and reports.
func Parse(name string, data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, &ParseError{Path: name, Reason: "content is not valid UTF-8"}
	}

	node, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Path: name, Reason: "markup rejected by parser", Err: err}
	}

	doc := &Document{
		path:   name,
		source: data,
		node:   node,
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			doc.doctype = c.Data
			doc.hasDT = true
			break
		}
	}
	if doc.Root() == nil {
		return nil, &ParseError{Path: name, Reason: "no root element"}
	}
	return doc, nil
}

// Close releases the parsed tree. Queries on a closed Document behave as
// if the document were empty.
func (d *Document) Close() error {
	d.node = nil
	d.source = nil
	return nil
}

// Path returns the file path the document was loaded from.
func (d *Document) Path() string { return d.path }

// Dir returns the directory containing the document.
func (d *Document) Dir() string { return filepath.Dir(d.path) }

// Source returns the raw file content. Callers must not modify it.
func (d *Document) Source() []byte { return d.source }

// Doctype returns the doctype name and whether a doctype was declared.
func (d *Document) Doctype() (string, bool) {
	return d.doctype, d.hasDT
}

// Root returns the document element (normally <html>).
func (d *Document) Root() *Element {
	if d.node == nil {
		return nil
	}
	for c := d.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return &Element{node: c}
		}
	}
	return nil
}

// Head returns the <head> child of the root, or nil.
func (d *Document) Head() *Element {
	return d.rootChild(atom.Head)
}

// Body returns the <body> child of the root, or nil.
func (d *Document) Body() *Element {
	return d.rootChild(atom.Body)
}

func (d *Document) rootChild(a atom.Atom) *Element {
	root := d.Root()
	if root == nil {
		return nil
	}
	for c := root.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return &Element{node: c}
		}
	}
	return nil
}

// QueryAll returns every element matching selector in document order.
func (d *Document) QueryAll(selector string) ([]*Element, error) {
	if d.node == nil {
		return nil, nil
	}
	return queryAll(d.node, selector)
}

// Query returns the first element matching selector, or nil.
func (d *Document) Query(selector string) (*Element, error) {
	els, err := d.QueryAll(selector)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

// Elements returns all elements in document order.
func (d *Document) Elements() []*Element {
	if d.node == nil {
		return nil
	}
	var out []*Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, &Element{node: c})
			}
			walk(c)
		}
	}
	walk(d.node)
	return out
}

// Before reports whether a starts before b in document order.
func (d *Document) Before(a, b *Element) bool {
	if a == nil || b == nil || d.node == nil {
		return false
	}
	seenA := false
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c {
			case a.node:
				seenA = true
			case b.node:
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.node)
	return seenA
}

func queryAll(n *html.Node, selector string) ([]*Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	nodes := cascadia.QueryAll(n, sel)
	out := make([]*Element, len(nodes))
	for i, node := range nodes {
		out[i] = &Element{node: node}
	}
	return out, nil
}

// CompileSelector reports whether selector is valid CSS selector syntax.
func CompileSelector(selector string) error {
	if _, err := cascadia.Compile(selector); err != nil {
		return fmt.Errorf("compile selector %q: %w", selector, err)
	}
	return nil
}
