// Package dedup guards against processing the same message more than once.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/mikey/phish-detect/internal/core"
	"github.com/mikey/phish-detect/internal/dom"
	"golang.org/x/net/html"
)

// Key strategies
const (
	StrategyNode      = "node"
	StrategyMessageID = "message-id"
	StrategyContent   = "content"
)

// DefaultIDAttributes are the host attributes carrying a stable message id
var DefaultIDAttributes = []string{"data-message-id", "data-legacy-message-id"}

// Tracker records claimed keys. A key is claimed at most once and is never
// released.
type Tracker struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{claimed: make(map[string]struct{})}
}

// TryClaim returns true the first time key is seen and false afterwards
func (t *Tracker) TryClaim(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.claimed[key]; ok {
		return false
	}
	t.claimed[key] = struct{}{}
	return true
}

// Len returns the number of claimed keys
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.claimed)
}

// NodeKey identifies a node by its pointer. A re-rendered message gets a new
// key.
func NodeKey(node *html.Node) string {
	return fmt.Sprintf("node:%p", node)
}

// MessageIDKey identifies a node by the first id attribute found on the node
// or one of its descendants, falling back to NodeKey.
func MessageIDKey(attrs []string) core.KeyFunc {
	if len(attrs) == 0 {
		attrs = DefaultIDAttributes
	}
	return func(node *html.Node) string {
		for _, attr := range attrs {
			if id, ok := findAttr(node, attr); ok && id != "" {
				return "id:" + id
			}
		}
		return NodeKey(node)
	}
}

// ContentKey identifies a node by a hash of its text
func ContentKey(node *html.Node) string {
	sum := sha256.Sum256([]byte(dom.InnerText(node)))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// KeyFuncFor returns the key function for a strategy name
func KeyFuncFor(strategy string, attrs []string) (core.KeyFunc, error) {
	switch strategy {
	case StrategyNode:
		return NodeKey, nil
	case "", StrategyMessageID:
		return MessageIDKey(attrs), nil
	case StrategyContent:
		return ContentKey, nil
	default:
		return nil, fmt.Errorf("unsupported dedup key strategy: %s", strategy)
	}
}

func findAttr(n *html.Node, key string) (string, bool) {
	if v, ok := dom.Attr(n, key); ok {
		return v, true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if v, ok := findAttr(c, key); ok {
			return v, true
		}
	}
	return "", false
}
