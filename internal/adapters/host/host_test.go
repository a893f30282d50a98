package host

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikey/phish-detect/internal/annotate"
	"github.com/mikey/phish-detect/internal/core"
	"github.com/mikey/phish-detect/internal/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFileHost_LoadAndWrite(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.html")
	out := filepath.Join(dir, "out.html")
	require.NoError(t, os.WriteFile(in, []byte(`<div id="msg"><p>hello</p></div>`), 0o600))

	h := NewFileHost(in, zaptest.NewLogger(t))
	assert.Nil(t, h.Document())
	require.NoError(t, h.Start(context.Background()))

	doc := h.Document()
	node := doc.QuerySelector(dom.MustCompile("#msg"))
	doc.Update(func(tx *dom.Tx) {
		tx.Prepend(node, dom.NewElement("div", "class", annotate.BannerClass))
	})

	require.NoError(t, h.WriteFile(out))
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), `<div id="msg"><div class="phish-detect-banner"></div><p>hello</p></div>`)
	assert.NoError(t, h.Stop())
}

func TestFileHost_Errors(t *testing.T) {
	h := NewFileHost(filepath.Join(t.TempDir(), "missing.html"), zaptest.NewLogger(t))
	assert.Error(t, h.Start(context.Background()))
	assert.Error(t, h.Render(&strings.Builder{}))

	assert.Error(t, NewFileHost("", zaptest.NewLogger(t)).Start(context.Background()))
}

func newBrowserHost(t *testing.T) *BrowserHost {
	t.Helper()
	h, err := NewBrowserHost(BrowserConfig{URL: "https://mail.google.com/"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return h
}

func TestBrowserHost_IngestMirrorsReportedNodes(t *testing.T) {
	h := newBrowserHost(t)

	payload := `[{"id":"a-1","html":"<div class=\"nH nn\" data-phish-detect-id=\"a-1\"><h2 class=\"hP\">Hi</h2></div>"},` +
		`{"id":"a-2","html":"<div class=\"nH nn\">no tag yet</div>"},` +
		`{"id":"","html":"<div>anonymous</div>"}]`
	require.NoError(t, h.ingest(payload))
	require.NoError(t, h.ingest(`[{"id":"a-1","html":"<div>duplicate</div>"}]`))

	root, candidate := h.MirrorSelectors()
	doc := h.Document()
	require.NotNil(t, doc.QuerySelector(dom.MustCompile(root)))

	var ids []string
	doc.View(func() {
		for _, n := range dom.QuerySelectorAll(doc.Root(), dom.MustCompile(candidate)) {
			id, _ := dom.Attr(n, IDAttr)
			ids = append(ids, id)
		}
	})
	assert.Equal(t, []string{"a-1", "a-2"}, ids)

	assert.Error(t, h.ingest(`not json`))
}

func TestBannerMarkup(t *testing.T) {
	h := newBrowserHost(t)
	require.NoError(t, h.ingest(`[{"id":"x-1","html":"<div class=\"nH nn\"><p>body</p></div>"}]`))

	doc := h.Document()
	node := doc.QuerySelector(dom.MustCompile(`[data-phish-detect-id="x-1"]`))
	require.NotNil(t, node)

	renderer, err := annotate.NewRenderer(annotate.DefaultHeaderSelector)
	require.NoError(t, err)
	doc.Update(func(tx *dom.Tx) {
		renderer.RenderClassification(tx, node, &core.Classification{Label: core.LabelSuspicious, Score: 0.5, Explanation: "odd"})
		renderer.RenderBlocklistWarning(tx, node)
	})

	id, markup, err := bannerMarkup(doc, node)
	require.NoError(t, err)
	assert.Equal(t, "x-1", id)
	assert.Equal(t, 2, strings.Count(markup, "<div class=\"phish-detect-"))
	assert.Contains(t, markup, "PhishDetect: odd (Score: 0.50)")

	_, _, err = bannerMarkup(doc, dom.NewElement("div"))
	assert.Error(t, err)
}

func TestBrowserHost_PublishBeforeStart(t *testing.T) {
	h := newBrowserHost(t)
	require.NoError(t, h.ingest(`[{"id":"x-1","html":"<div></div>"}]`))
	node := h.Document().QuerySelector(dom.MustCompile(`[data-phish-detect-id]`))

	assert.ErrorContains(t, h.Publish(context.Background(), node), "not started")
	assert.NoError(t, h.Stop())
}

func TestNewBrowserHost_RequiresURL(t *testing.T) {
	_, err := NewBrowserHost(BrowserConfig{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
