package host

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/mikey/phish-detect/internal/annotate"
	"github.com/mikey/phish-detect/internal/dom"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

//go:embed observer.js
var observerJS string

//go:embed publish.js
var publishJS string

const (
	bindingName = "__phishDetectReport"

	// IDAttr tags live candidates and their mirrors
	IDAttr = "data-phish-detect-id"
)

// BrowserConfig configures the live browser host
type BrowserConfig struct {
	URL               string
	RemoteURL         string
	Headless          bool
	UserDataDir       string
	NavigationTimeout time.Duration
	// Selectors evaluated in the live page
	RootSelector      string
	CandidateSelector string
	HeaderSelector    string
}

type reportedNode struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// BrowserHost drives a webmail tab through the DevTools protocol. Every
// candidate the page reports is copied into a local mirror document, and
// annotations rendered on the mirror are pushed back to the live page.
type BrowserHost struct {
	cfg    BrowserConfig
	logger *zap.Logger

	doc  *dom.Document
	body *html.Node

	mu       sync.Mutex
	mirrored map[string]*html.Node

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	cancel   context.CancelFunc
}

// NewBrowserHost creates a browser host with an empty mirror document
func NewBrowserHost(cfg BrowserConfig, logger *zap.Logger) (*BrowserHost, error) {
	if cfg.URL == "" {
		return nil, errors.New("browser host URL is required")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}

	doc, err := dom.ParseString("<html><head></head><body></body></html>")
	if err != nil {
		return nil, err
	}
	return &BrowserHost{
		cfg:      cfg,
		logger:   logger,
		doc:      doc,
		body:     doc.QuerySelector(dom.MustCompile("body")),
		mirrored: make(map[string]*html.Node),
	}, nil
}

// Document returns the mirror document
func (h *BrowserHost) Document() *dom.Document {
	return h.doc
}

// MirrorSelectors returns the root and candidate selectors to watch the
// mirror document with
func (h *BrowserHost) MirrorSelectors() (root, candidate string) {
	return "body", "[" + IDAttr + "]"
}

// Start opens the page and installs the live observer
func (h *BrowserHost) Start(ctx context.Context) error {
	if err := h.connect(); err != nil {
		return err
	}

	page, err := stealth.Page(h.browser)
	if err != nil {
		h.Stop()
		return fmt.Errorf("failed to create tab: %w", err)
	}
	h.page = page

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		h.Stop()
		return fmt.Errorf("failed to add binding: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go page.Context(listenCtx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		if err := h.ingest(e.Payload); err != nil {
			h.logger.Warn("Failed to mirror reported nodes", zap.Error(err))
		}
	})()

	navCtx, navCancel := context.WithTimeout(ctx, h.cfg.NavigationTimeout)
	defer navCancel()
	if err := page.Context(navCtx).Navigate(h.cfg.URL); err != nil {
		h.Stop()
		return fmt.Errorf("failed to navigate to %s: %w", h.cfg.URL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		h.logger.Warn("Timed out waiting for page load", zap.String("url", h.cfg.URL), zap.Error(err))
	}

	if _, err := page.Eval(observerJS, bindingName, h.cfg.RootSelector, h.cfg.CandidateSelector); err != nil {
		h.Stop()
		return fmt.Errorf("failed to inject observer: %w", err)
	}

	h.logger.Info("Browser host started",
		zap.String("url", h.cfg.URL),
		zap.Bool("remote", h.cfg.RemoteURL != ""))
	return nil
}

func (h *BrowserHost) connect() error {
	controlURL := h.cfg.RemoteURL
	if controlURL == "" {
		l := launcher.New().
			Headless(h.cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if h.cfg.UserDataDir != "" {
			l = l.UserDataDir(h.cfg.UserDataDir)
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("failed to launch browser: %w", err)
		}
		h.launcher = l
		controlURL = u
		h.logger.Debug("Launched local browser", zap.String("control_url", controlURL))
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if h.launcher != nil {
			h.launcher.Kill()
			h.launcher = nil
		}
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	h.browser = b
	return nil
}

// Stop closes the tab and the browser
func (h *BrowserHost) Stop() error {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}

	var errs []error
	if h.page != nil {
		if err := h.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close tab: %w", err))
		}
		h.page = nil
	}
	if h.browser != nil && h.launcher != nil {
		if err := h.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	h.browser = nil
	if h.launcher != nil {
		h.launcher.Kill()
		h.launcher.Cleanup()
		h.launcher = nil
	}
	return errors.Join(errs...)
}

// ingest mirrors the nodes of a binding payload into the document
func (h *BrowserHost) ingest(payload string) error {
	var reports []reportedNode
	if err := json.Unmarshal([]byte(payload), &reports); err != nil {
		return fmt.Errorf("failed to parse binding payload: %w", err)
	}

	var nodes []*html.Node
	h.mu.Lock()
	for _, r := range reports {
		if r.ID == "" {
			continue
		}
		if _, ok := h.mirrored[r.ID]; ok {
			continue
		}
		n, err := mirrorNode(r)
		if err != nil {
			h.logger.Warn("Skipping unparsable node", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		h.mirrored[r.ID] = n
		nodes = append(nodes, n)
	}
	h.mu.Unlock()

	if len(nodes) == 0 {
		return nil
	}
	h.doc.Update(func(tx *dom.Tx) {
		for _, n := range nodes {
			tx.AppendChild(h.body, n)
		}
	})
	h.logger.Debug("Mirrored candidates", zap.Int("count", len(nodes)))
	return nil
}

func mirrorNode(r reportedNode) (*html.Node, error) {
	nodes, err := dom.ParseFragment(r.HTML)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			dom.SetAttr(n, IDAttr, r.ID)
			return n, nil
		}
	}
	return nil, errors.New("no element in reported markup")
}

// bannerMarkup returns the live id of a mirrored node and the HTML of its
// annotations
func bannerMarkup(doc *dom.Document, node *html.Node) (string, string, error) {
	var (
		id     string
		ok     bool
		markup strings.Builder
		err    error
	)
	doc.View(func() {
		id, ok = dom.Attr(node, IDAttr)
		if !ok {
			return
		}
		for _, b := range annotate.Banners(node) {
			if err = html.Render(&markup, b); err != nil {
				return
			}
		}
	})
	if !ok || id == "" {
		return "", "", errors.New("node is not mirrored from the live page")
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to render annotations: %w", err)
	}
	return id, markup.String(), nil
}

// Publish copies the annotations of a mirrored node onto its live element
func (h *BrowserHost) Publish(ctx context.Context, node *html.Node) error {
	id, markup, err := bannerMarkup(h.doc, node)
	if err != nil {
		return err
	}
	if h.page == nil {
		return errors.New("browser host is not started")
	}

	selector := "." + annotate.BannerClass + ", ." + annotate.BlocklistClass
	res, err := h.page.Context(ctx).Eval(publishJS, id, markup, h.cfg.HeaderSelector, selector)
	if err != nil {
		return fmt.Errorf("failed to publish annotations: %w", err)
	}
	if !res.Value.Bool() {
		h.logger.Debug("Live element is gone, annotations not published", zap.String("id", id))
	}
	return nil
}
