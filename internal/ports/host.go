package ports

import (
	"context"

	"github.com/mikey/phish-detect/internal/dom"
)

// Host populates the document the pipeline watches
type Host interface {
	// Start loads the document and begins feeding it
	Start(ctx context.Context) error

	// Stop releases the host
	Stop() error

	// Document returns the watched document
	Document() *dom.Document
}

// MirrorHost is implemented by hosts whose document is a mirror of the real
// display, with their own root and candidate selectors
type MirrorHost interface {
	Host
	MirrorSelectors() (root, candidate string)
}
