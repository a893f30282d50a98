package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mikey/phish-detect/internal/dom"
	"go.uber.org/zap"
)

// FileHost serves a saved HTML page. The pipeline annotates it in memory
// and Render writes the result back out.
type FileHost struct {
	path   string
	doc    *dom.Document
	logger *zap.Logger
}

// NewFileHost creates a host for the page at path
func NewFileHost(path string, logger *zap.Logger) *FileHost {
	return &FileHost{
		path:   path,
		logger: logger,
	}
}

// Start parses the page
func (h *FileHost) Start(ctx context.Context) error {
	if h.path == "" {
		return errors.New("no input file given")
	}
	f, err := os.Open(h.path)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return err
	}
	h.doc = doc
	h.logger.Info("Loaded page", zap.String("path", h.path))
	return nil
}

// Stop is a no-op
func (h *FileHost) Stop() error {
	return nil
}

// Document returns the parsed page, nil before Start
func (h *FileHost) Document() *dom.Document {
	return h.doc
}

// Render writes the current page as HTML
func (h *FileHost) Render(w io.Writer) error {
	if h.doc == nil {
		return errors.New("page not loaded")
	}
	return h.doc.Render(w)
}

// WriteFile writes the current page to path, replacing it atomically
func (h *FileHost) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := h.Render(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	h.logger.Info("Wrote annotated page", zap.String("path", path))
	return nil
}
