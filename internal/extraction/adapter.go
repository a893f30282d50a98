// Package extraction reads sender, subject and body out of a displayed
// message.
package extraction

import (
	"fmt"
	"strings"

	"github.com/mikey/phish-detect/internal/core"
	"github.com/mikey/phish-detect/internal/dom"
	"github.com/mikey/phish-detect/internal/utils"
	"golang.org/x/net/html"
)

// Selectors locate the fields of a message inside a candidate node
type Selectors struct {
	Sender      string
	SenderEmail string
	// EmailAttribute holds the address on the sender email element. The
	// element text is used when the attribute is missing.
	EmailAttribute string
	Subject        string
	Body           string
}

// DefaultSelectors match the Gmail message view
func DefaultSelectors() Selectors {
	return Selectors{
		Sender:         "span.go",
		SenderEmail:    "span.gD",
		EmailAttribute: "email",
		Subject:        "h2.hP",
		Body:           "div.msg > div.a3s",
	}
}

// Adapter implements core.Extractor with CSS selectors
type Adapter struct {
	sender      dom.Selector
	senderEmail dom.Selector
	subject     dom.Selector
	body        dom.Selector
	emailAttr   string
	maxBodySize int
	text        *utils.TextProcessor
}

// NewAdapter compiles the selectors. maxBodySize limits the body in bytes,
// zero disables the limit.
func NewAdapter(sel Selectors, maxBodySize int, text *utils.TextProcessor) (*Adapter, error) {
	a := &Adapter{
		emailAttr:   sel.EmailAttribute,
		maxBodySize: maxBodySize,
		text:        text,
	}
	if a.text == nil {
		a.text = utils.NewTextProcessor(nil)
	}

	for _, f := range []struct {
		name   string
		source string
		dst    *dom.Selector
	}{
		{"sender", sel.Sender, &a.sender},
		{"sender email", sel.SenderEmail, &a.senderEmail},
		{"subject", sel.Subject, &a.subject},
		{"body", sel.Body, &a.body},
	} {
		compiled, err := dom.Compile(f.source)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s selector: %w", f.name, err)
		}
		*f.dst = compiled
	}
	return a, nil
}

// Extract returns the fields of node. A missing element gives the field's
// default, an element with no text gives an empty value.
func (a *Adapter) Extract(node *html.Node) core.ExtractedFields {
	sender := a.textOf(node, a.sender, core.DefaultSender)
	subject := a.textOf(node, a.subject, core.DefaultSubject)

	body := core.DefaultBody
	if el := dom.QuerySelector(node, a.body); el != nil {
		body = a.text.TruncateText(a.clean(dom.InnerText(el)), a.maxBodySize)
	}

	senderEmail := core.DefaultSenderEmail
	if el := dom.QuerySelector(node, a.senderEmail); el != nil {
		if v, ok := dom.Attr(el, a.emailAttr); ok && a.emailAttr != "" {
			senderEmail = a.clean(v)
		} else {
			senderEmail = a.clean(dom.InnerText(el))
		}
	}

	return core.NewExtractedFields(sender, senderEmail, subject, body)
}

func (a *Adapter) textOf(node *html.Node, sel dom.Selector, def string) string {
	el := dom.QuerySelector(node, sel)
	if el == nil {
		return def
	}
	return a.clean(dom.InnerText(el))
}

func (a *Adapter) clean(s string) string {
	return strings.TrimSpace(a.text.Normalize(a.text.SanitizeUTF8(s)))
}
