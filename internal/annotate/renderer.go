// Package annotate draws PhishDetect banners onto displayed messages.
package annotate

import (
	"fmt"

	"github.com/mikey/phish-detect/internal/core"
	"github.com/mikey/phish-detect/internal/dom"
	"golang.org/x/net/html"
)

// Marker classes
const (
	BannerClass    = "phish-detect-banner"
	BlocklistClass = "phish-detect-blocklist"
)

// BlocklistText is the fixed text of the blocklist warning
const BlocklistText = "⚠️ Sender is on your blocklist!"

const baseStyle = "padding: 5px 10px; margin: 5px 0; font-weight: bold; border-radius: 4px; text-align: center;"

// Palette is a banner color pair
type Palette struct {
	Background string
	Text       string
}

var (
	SuspiciousPalette = Palette{Background: "#ffcccc", Text: "#cc0000"}
	SafePalette       = Palette{Background: "#ccffcc", Text: "#006600"}
	BlocklistPalette  = Palette{Background: "#ffcc00", Text: "#993d00"}
)

func (p Palette) style() string {
	return fmt.Sprintf("%s background-color: %s; color: %s;", baseStyle, p.Background, p.Text)
}

// PaletteFor maps a label to its banner colors
func PaletteFor(label core.Label) Palette {
	if label == core.LabelSuspicious {
		return SuspiciousPalette
	}
	return SafePalette
}

// BannerText formats the classification banner text
func BannerText(c *core.Classification) string {
	return fmt.Sprintf("PhishDetect: %s (Score: %s)", c.Explanation, core.FormatScore(c.Score))
}

// Renderer implements core.Annotator
type Renderer struct {
	header dom.Selector
}

// DefaultHeaderSelector matches the Gmail message header container
const DefaultHeaderSelector = "div.nH.hx"

// NewRenderer creates a renderer inserting classification banners into the
// first element matching header, or at the top of the message when no
// header is found. An empty header always prepends.
func NewRenderer(header string) (*Renderer, error) {
	r := &Renderer{}
	if header != "" {
		sel, err := dom.Compile(header)
		if err != nil {
			return nil, fmt.Errorf("failed to compile header selector: %w", err)
		}
		r.header = sel
	}
	return r, nil
}

// RenderClassification updates the classification banner of node in place,
// creating it when missing
func (r *Renderer) RenderClassification(tx *dom.Tx, node *html.Node, c *core.Classification) {
	p := PaletteFor(c.Label)

	banner := findByClass(node, BannerClass)
	if banner == nil {
		banner = dom.NewElement("div", "class", BannerClass)
		tx.SetAttr(banner, "style", p.style())
		tx.SetText(banner, BannerText(c))
		if header := r.headerOf(node); header != nil {
			tx.Prepend(header, banner)
		} else {
			tx.Prepend(node, banner)
		}
		return
	}

	tx.SetAttr(banner, "style", p.style())
	tx.SetText(banner, BannerText(c))
}

// RenderBlocklistWarning adds a blocklist warning right after the
// classification banner, or at the top of node. Every call adds a new
// element.
func (r *Renderer) RenderBlocklistWarning(tx *dom.Tx, node *html.Node) {
	warning := dom.NewElement("div", "class", BlocklistClass)
	tx.SetAttr(warning, "style", BlocklistPalette.style())
	tx.SetText(warning, BlocklistText)

	if banner := findByClass(node, BannerClass); banner != nil {
		tx.InsertAfter(banner, warning)
		return
	}
	tx.Prepend(node, warning)
}

func (r *Renderer) headerOf(node *html.Node) *html.Node {
	if r.header.IsZero() {
		return nil
	}
	return dom.QuerySelector(node, r.header)
}

// Banners returns the annotation elements below node in document order
func Banners(node *html.Node) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if dom.HasClass(c, BannerClass) || dom.HasClass(c, BlocklistClass) {
				out = append(out, c)
				continue
			}
			visit(c)
		}
	}
	visit(node)
	return out
}

func findByClass(node *html.Node, class string) *html.Node {
	for _, b := range Banners(node) {
		if dom.HasClass(b, class) {
			return b
		}
	}
	return nil
}
