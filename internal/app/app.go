// Package app assembles the processing pipeline around a document host.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/phish-detect/internal/annotate"
	"github.com/mikey/phish-detect/internal/blocklist"
	"github.com/mikey/phish-detect/internal/core"
	"github.com/mikey/phish-detect/internal/dedup"
	"github.com/mikey/phish-detect/internal/dom"
	"github.com/mikey/phish-detect/internal/ports"
	"github.com/mikey/phish-detect/internal/watcher"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Params holds everything the application is built from. Recorder may be
// nil.
type Params struct {
	Host        ports.Host
	Store       ports.KeyValueStore
	Classifier  core.ClassificationClient
	Extractor   core.Extractor
	Annotator   core.Annotator
	Key         core.KeyFunc
	Recorder    core.Recorder
	Watcher     watcher.Config
	MaxInFlight int
	Logger      *zap.Logger
}

// App owns the host, the watcher and the pipeline coordinator
type App struct {
	p       Params
	tracker *dedup.Tracker
	coord   *core.PipelineCoordinator
	watcher *watcher.Watcher
	logger  *zap.Logger
}

// MessageSummary describes the outcome for one processed message
type MessageSummary struct {
	Key         string
	SenderEmail string
	Subject     string
	Banners     []string
}

// New creates an application. Nothing runs until Start.
func New(p Params) (*App, error) {
	if p.Host == nil || p.Store == nil || p.Classifier == nil {
		return nil, errors.New("host, store and classifier are required")
	}
	if p.Key == nil {
		p.Key = dedup.NodeKey
	}
	return &App{
		p:       p,
		tracker: dedup.NewTracker(),
		logger:  p.Logger,
	}, nil
}

// Start starts the host, then wires the coordinator and the watcher to its
// document. A document without an observation root leaves the application
// inert but running.
func (a *App) Start(ctx context.Context) error {
	if err := a.p.Host.Start(ctx); err != nil {
		return fmt.Errorf("failed to start host: %w", err)
	}
	doc := a.p.Host.Document()
	if doc == nil {
		return errors.New("host has no document")
	}

	opts := []core.CoordinatorOption{
		core.WithRecorder(a.p.Recorder),
		core.WithMaxInFlight(a.p.MaxInFlight),
	}
	if pub, ok := a.p.Host.(core.Publisher); ok {
		opts = append(opts, core.WithPublisher(pub))
	}
	a.coord = core.NewPipelineCoordinator(
		doc,
		a.tracker,
		a.p.Key,
		a.p.Extractor,
		a.p.Classifier,
		a.p.Annotator,
		blocklist.NewGate(a.p.Store, a.logger),
		a.logger,
		opts...,
	)

	wcfg := a.p.Watcher
	if mirror, ok := a.p.Host.(ports.MirrorHost); ok {
		wcfg.RootSelector, wcfg.CandidateSelector = mirror.MirrorSelectors()
		a.logger.Debug("Using mirror selectors",
			zap.String("root", wcfg.RootSelector),
			zap.String("candidate", wcfg.CandidateSelector))
	}

	w, err := watcher.New(doc, wcfg, a.coord.Submit, a.logger)
	if err != nil {
		return err
	}
	a.watcher = w
	if err := w.Start(ctx); err != nil && !errors.Is(err, watcher.ErrRootNotFound) {
		return err
	}
	return nil
}

// Wait blocks until no pipeline is running and no insertion batch is left
// to be handled
func (a *App) Wait() {
	if a.coord == nil {
		return
	}
	for {
		a.coord.Wait()
		if a.watcher.Idle() {
			// A batch handled just before going idle may have submitted
			a.coord.Wait()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop stops watching, waits for running pipelines and releases the host
// and the store
func (a *App) Stop() error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.coord != nil {
		a.coord.Wait()
	}

	var errs []error
	if err := a.p.Host.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop host: %w", err))
	}
	if err := a.p.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}

// Claimed returns the number of distinct messages claimed so far
func (a *App) Claimed() int {
	return a.tracker.Len()
}

// Summary lists the processed messages of the document in document order
func (a *App) Summary() []MessageSummary {
	doc := a.p.Host.Document()
	if doc == nil {
		return nil
	}

	sel := dom.MustCompile("[" + core.ProcessedAttr + "]")
	var out []MessageSummary
	doc.View(func() {
		for _, n := range dom.QuerySelectorAll(doc.Root(), sel) {
			s := MessageSummary{Key: a.p.Key(n)}
			if a.p.Extractor != nil {
				f := a.p.Extractor.Extract(n)
				s.SenderEmail, s.Subject = f.SenderEmail, f.Subject
			}
			s.Banners = bannerTexts(n)
			out = append(out, s)
		}
	})
	return out
}

func bannerTexts(n *html.Node) []string {
	var texts []string
	for _, b := range annotate.Banners(n) {
		texts = append(texts, dom.InnerText(b))
	}
	return texts
}
