package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector group
type Selector struct {
	source string
	group  cascadia.SelectorGroup
}

// Compile parses a selector group.
func Compile(source string) (Selector, error) {
	if strings.TrimSpace(source) == "" {
		return Selector{}, errors.New("empty selector")
	}
	group, err := cascadia.ParseGroup(source)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid selector %q: %w", source, err)
	}
	return Selector{source: source, group: group}, nil
}

// MustCompile is Compile for selectors known at build time.
func MustCompile(source string) Selector {
	sel, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return sel
}

// String returns the selector source.
func (s Selector) String() string {
	return s.source
}

// IsZero reports whether the selector was never compiled.
func (s Selector) IsZero() bool {
	return len(s.group) == 0
}

// Match reports whether element n matches any selector of the group.
// Ancestors outside of any query scope take part in matching, as in the
// browser.
func (s Selector) Match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || s.IsZero() {
		return false
	}
	return s.group.Match(n)
}

// QuerySelector returns the first descendant of root (root excluded) in
// document order matching sel.
func QuerySelector(root *html.Node, sel Selector) *html.Node {
	if sel.IsZero() {
		return nil
	}
	return cascadia.Query(root, sel.group)
}

// QuerySelectorAll returns every descendant of root matching sel.
func QuerySelectorAll(root *html.Node, sel Selector) []*html.Node {
	if sel.IsZero() {
		return nil
	}
	return cascadia.QueryAll(root, sel.group)
}
