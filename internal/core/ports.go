package core

import (
	"context"

	"github.com/mikey/phish-detect/internal/dom"
	"golang.org/x/net/html"
)

// Extractor reads the structured fields of a candidate node. It is called
// with the document locked and must not block.
type Extractor interface {
	// Extract never fails; missing fields come back as defaults
	Extract(node *html.Node) ExtractedFields
}

// ClassificationClient talks to the classification service
type ClassificationClient interface {
	// Classify returns a classification, or an error on any failure
	Classify(ctx context.Context, text string) (*Classification, error)
}

// BlocklistGate decides whether a sender is blocklisted
type BlocklistGate interface {
	IsBlocked(ctx context.Context, senderEmail string) (bool, error)
}

// Annotator draws annotations on a node inside a document transaction
type Annotator interface {
	// RenderClassification creates or updates the classification banner
	RenderClassification(tx *dom.Tx, node *html.Node, c *Classification)

	// RenderBlocklistWarning adds a blocklist warning
	RenderBlocklistWarning(tx *dom.Tx, node *html.Node)
}

// ClaimTracker guards against processing the same message twice
type ClaimTracker interface {
	// TryClaim returns true exactly once per key
	TryClaim(key string) bool
}

// KeyFunc derives the logical identity of a candidate node
type KeyFunc func(node *html.Node) string

// Publisher propagates the annotations of a node to wherever the document
// is displayed
type Publisher interface {
	Publish(ctx context.Context, node *html.Node) error
}

// Recorder receives pipeline events, e.g. for metrics
type Recorder interface {
	Submitted()
	Skipped()
	Transition(state State)
	ClassificationLatency(seconds float64, ok bool)
	InFlight(delta int)
}
