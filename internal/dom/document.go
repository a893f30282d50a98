// Package dom provides an observable HTML document tree.
//
// A Document wraps a golang.org/x/net/html tree behind a read/write lock.
// Reads go through View, writes through Update transactions. Every element
// inserted by a transaction is reported to the observers whose target
// contains it, in batches, the way a browser MutationObserver reports
// childList mutations with subtree observation.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"golang.org/x/net/html"
)

// Document is an HTML tree that can be observed for insertions.
type Document struct {
	mu        sync.RWMutex
	root      *html.Node
	observers map[*Observer]struct{}
}

// NewDocument wraps an already parsed tree.
func NewDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		observers: make(map[*Observer]struct{}),
	}
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML document: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString is Parse for in-memory markup.
func ParseString(s string) (*Document, error) {
	return Parse(bytes.NewBufferString(s))
}

// Root returns the document node. Callers must hold a View or Update
// transaction while walking the tree.
func (d *Document) Root() *html.Node {
	return d.root
}

// View runs fn with the document read-locked.
func (d *Document) View(fn func()) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn()
}

// Update runs fn with the document write-locked. Nodes inserted through
// the transaction are queued to the interested observers once fn returns.
func (d *Document) Update(fn func(tx *Tx)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx := &Tx{doc: d}
	fn(tx)
	for obs := range d.observers {
		var batch []*html.Node
		for _, n := range tx.added {
			if n.Parent != nil && Contains(obs.target, n) {
				batch = append(batch, n)
			}
		}
		if len(batch) > 0 {
			obs.enqueue(batch)
		}
	}
}

// QuerySelector returns the first element of the document matching sel.
func (d *Document) QuerySelector(sel Selector) *html.Node {
	var n *html.Node
	d.View(func() {
		n = QuerySelector(d.root, sel)
	})
	return n
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	var err error
	d.View(func() {
		err = html.Render(w, d.root)
	})
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	return nil
}

// Observe registers fn for insertions anywhere below target. Batches are
// delivered on a dedicated goroutine, never while the document is locked.
func (d *Document) Observe(target *html.Node, fn func(added []*html.Node)) *Observer {
	obs := &Observer{
		doc:    d,
		target: target,
		fn:     fn,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		idle:   make(chan struct{}),
	}
	d.mu.Lock()
	d.observers[obs] = struct{}{}
	d.mu.Unlock()

	go obs.loop()
	return obs
}

func (d *Document) unobserve(obs *Observer) {
	d.mu.Lock()
	delete(d.observers, obs)
	d.mu.Unlock()
}

// Contains reports whether n is ancestor or the same node as other.
func Contains(n, other *html.Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}
