// Package watcher discovers candidate message nodes in a document, both
// those present at start and those inserted later.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mikey/phish-detect/internal/dom"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ErrRootNotFound is returned by Start when the observation root is missing
var ErrRootNotFound = errors.New("observation root not found")

// Default selectors for the Gmail interface
const (
	DefaultRootSelector      = ".nH.oy8Mbf, .pY"
	DefaultCandidateSelector = `div[role="main"] .nH.nn`
	DefaultPreviewSelector   = ".AO .zA"
)

// Config selects the observation root and the nodes worth processing
type Config struct {
	RootSelector      string
	CandidateSelector string
	// PreviewSelector matches rows of the message list. It is exposed
	// through IsPreviewRow and not used for processing.
	PreviewSelector string
}

// DefaultConfig returns the Gmail selectors
func DefaultConfig() Config {
	return Config{
		RootSelector:      DefaultRootSelector,
		CandidateSelector: DefaultCandidateSelector,
		PreviewSelector:   DefaultPreviewSelector,
	}
}

// Predicate decides whether a node is a candidate
type Predicate func(n *html.Node) bool

// SubmitFunc receives every discovered candidate
type SubmitFunc func(ctx context.Context, n *html.Node) bool

// Option customises a Watcher
type Option func(*Watcher)

// WithPredicate replaces the candidate selector with an arbitrary predicate
func WithPredicate(p Predicate) Option {
	return func(w *Watcher) {
		w.isCandidate = p
	}
}

// Watcher feeds candidate nodes of a document to a submit function
type Watcher struct {
	doc         *dom.Document
	root        dom.Selector
	preview     dom.Selector
	isCandidate Predicate
	submit      SubmitFunc
	logger      *zap.Logger

	mu  sync.Mutex
	obs *dom.Observer
	ctx context.Context
}

// New creates a watcher. Selectors are compiled eagerly.
func New(doc *dom.Document, cfg Config, submit SubmitFunc, logger *zap.Logger, opts ...Option) (*Watcher, error) {
	root, err := dom.Compile(cfg.RootSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to compile root selector: %w", err)
	}

	w := &Watcher{
		doc:    doc,
		root:   root,
		submit: submit,
		logger: logger,
	}

	if cfg.PreviewSelector != "" {
		if w.preview, err = dom.Compile(cfg.PreviewSelector); err != nil {
			return nil, fmt.Errorf("failed to compile preview selector: %w", err)
		}
	}

	for _, opt := range opts {
		opt(w)
	}
	if w.isCandidate == nil {
		candidate, err := dom.Compile(cfg.CandidateSelector)
		if err != nil {
			return nil, fmt.Errorf("failed to compile candidate selector: %w", err)
		}
		w.isCandidate = candidate.Match
	}
	return w, nil
}

// Start locates the root, begins observing it and submits the candidates
// already present. When the root is missing it logs a warning and returns
// ErrRootNotFound without observing anything.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.obs != nil {
		w.mu.Unlock()
		return errors.New("watcher already started")
	}

	root := w.doc.QuerySelector(w.root)
	if root == nil {
		w.mu.Unlock()
		w.logger.Warn("Observation root not found, watcher is inert",
			zap.String("selector", w.root.String()))
		return ErrRootNotFound
	}

	w.ctx = ctx
	w.obs = w.doc.Observe(root, w.handle)
	w.mu.Unlock()

	var existing []*html.Node
	w.doc.View(func() {
		existing = w.collect(root, false)
	})
	w.logger.Info("Watching document",
		zap.String("root", w.root.String()),
		zap.Int("existing_candidates", len(existing)))

	for _, n := range existing {
		w.submit(ctx, n)
	}
	return nil
}

// Stop disconnects the observer. It must not be called from a submit
// function.
func (w *Watcher) Stop() {
	w.mu.Lock()
	obs := w.obs
	w.obs = nil
	w.mu.Unlock()

	if obs != nil {
		obs.Disconnect()
		w.logger.Debug("Watcher stopped")
	}
}

// Idle reports whether no insertion batch is queued or being handled
func (w *Watcher) Idle() bool {
	w.mu.Lock()
	obs := w.obs
	w.mu.Unlock()
	return obs == nil || !obs.Pending()
}

// IsPreviewRow reports whether n is a row of the message list
func (w *Watcher) IsPreviewRow(n *html.Node) bool {
	if w.preview.IsZero() {
		return false
	}
	var ok bool
	w.doc.View(func() {
		ok = w.preview.Match(n)
	})
	return ok
}

func (w *Watcher) handle(added []*html.Node) {
	var candidates []*html.Node
	w.doc.View(func() {
		seen := make(map[*html.Node]struct{})
		for _, n := range added {
			// Removed again before delivery
			if n.Parent == nil {
				continue
			}
			for _, c := range w.collect(n, true) {
				if _, ok := seen[c]; ok {
					continue
				}
				seen[c] = struct{}{}
				candidates = append(candidates, c)
			}
		}
	})

	for _, n := range candidates {
		w.submit(w.ctx, n)
	}
}

// collect returns the candidates in the subtree of n, n included when self
// is set
func (w *Watcher) collect(n *html.Node, self bool) []*html.Node {
	var out []*html.Node
	if self && w.isCandidate(n) {
		out = append(out, n)
	}
	var visit func(*html.Node)
	visit = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if w.isCandidate(c) {
				out = append(out, c)
			}
			visit(c)
		}
	}
	visit(n)
	return out
}
