package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Attribute is one name/value pair on an element.
type Attribute struct {
	Name  string
	Value string
}

// Element is a read-only view of one element node.
type Element struct {
	node *html.Node
}

// Tag returns the lower-cased tag name.
func (e *Element) Tag() string {
	return strings.ToLower(e.node.Data)
}

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// Attrs returns attributes in source order. The parser drops duplicate
// names, keeping the first.
func (e *Element) Attrs() []Attribute {
	out := make([]Attribute, 0, len(e.node.Attr))
	for _, a := range e.node.Attr {
		out = append(out, Attribute{Name: a.Key, Value: a.Val})
	}
	return out
}

// Parent returns the parent element, or nil for the document element.
func (e *Element) Parent() *Element {
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return &Element{node: p}
}

// Children returns the child elements in order. Text nodes are skipped;
// use Text for character data.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{node: c})
		}
	}
	return out
}

// Text returns the concatenation of all descendant text nodes, untrimmed.
func (e *Element) Text() string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
			case html.ElementNode:
				walk(c)
			}
		}
	}
	walk(e.node)
	return b.String()
}

// QueryAll returns descendants of e matching selector.
func (e *Element) QueryAll(selector string) ([]*Element, error) {
	return queryAll(e.node, selector)
}

// Is reports whether e and other wrap the same node.
func (e *Element) Is(other *Element) bool {
	return e != nil && other != nil && e.node == other.node
}
