package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tx mutates a Document inside Update. It must not escape the callback.
type Tx struct {
	doc   *Document
	added []*html.Node
}

// Root returns the document node.
func (tx *Tx) Root() *html.Node {
	return tx.doc.root
}

// AppendChild adds child as the last child of parent.
func (tx *Tx) AppendChild(parent, child *html.Node) {
	detach(child)
	parent.AppendChild(child)
	tx.inserted(child)
}

// Prepend adds child as the first child of parent.
func (tx *Tx) Prepend(parent, child *html.Node) {
	detach(child)
	if parent.FirstChild == nil {
		parent.AppendChild(child)
	} else {
		parent.InsertBefore(child, parent.FirstChild)
	}
	tx.inserted(child)
}

// InsertAfter adds child as the next sibling of ref.
func (tx *Tx) InsertAfter(ref, child *html.Node) {
	detach(child)
	parent := ref.Parent
	if ref.NextSibling == nil {
		parent.AppendChild(child)
	} else {
		parent.InsertBefore(child, ref.NextSibling)
	}
	tx.inserted(child)
}

// Remove detaches n from its parent.
func (tx *Tx) Remove(n *html.Node) {
	detach(n)
}

// SetText replaces the children of n with a single text node.
func (tx *Tx) SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// SetAttr sets or replaces attribute key on n.
func (tx *Tx) SetAttr(n *html.Node, key, val string) {
	SetAttr(n, key, val)
}

func (tx *Tx) inserted(n *html.Node) {
	if n.Type == html.ElementNode {
		tx.added = append(tx.added, n)
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// NewElement builds a detached element with the given attributes, given as
// key/value pairs.
func NewElement(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Attr returns the value of attribute key and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces attribute key on a node outside of a
// transaction, e.g. on a detached element.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether n carries class name in its class attribute.
func HasClass(n *html.Node, name string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == name {
			return true
		}
	}
	return false
}
