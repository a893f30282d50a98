package dom

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]*html.Node
}

func (r *batchRecorder) record(added []*html.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, added)
}

func (r *batchRecorder) all() []*html.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*html.Node
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func TestDocument_ObserveReportsInsertionsBelowTarget(t *testing.T) {
	doc := parseInbox(t)
	main := doc.QuerySelector(MustCompile(`div[role=main]`))
	require.NotNil(t, main)

	rec := &batchRecorder{}
	obs := doc.Observe(main, rec.record)
	defer obs.Disconnect()

	inside := NewElement("div", "id", "inside")
	outside := NewElement("div", "id", "outside-new")
	doc.Update(func(tx *Tx) {
		tx.AppendChild(main, inside)
		tx.AppendChild(main.Parent, outside)
	})

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Same(t, inside, rec.all()[0])
}

func TestDocument_TextNodesAreNotReported(t *testing.T) {
	doc := parseInbox(t)
	body := doc.QuerySelector(MustCompile("body"))

	rec := &batchRecorder{}
	obs := doc.Observe(body, rec.record)

	doc.Update(func(tx *Tx) {
		tx.AppendChild(body, &html.Node{Type: html.TextNode, Data: "plain"})
	})
	assert.Never(t, func() bool { return len(rec.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	obs.Disconnect()
	doc.Update(func(tx *Tx) {
		tx.AppendChild(body, NewElement("p"))
	})
	assert.Never(t, func() bool { return len(rec.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestTx_PrependInsertAfterAndSetText(t *testing.T) {
	doc, err := ParseString(`<div id="n"><p id="a"></p></div>`)
	require.NoError(t, err)
	n := doc.QuerySelector(MustCompile("#n"))
	a := doc.QuerySelector(MustCompile("#a"))

	first := NewElement("span", "id", "first")
	after := NewElement("span", "id", "after")
	doc.Update(func(tx *Tx) {
		tx.Prepend(n, first)
		tx.InsertAfter(a, after)
		tx.SetText(first, "<b>x</b>")
		tx.SetAttr(a, "data-x", "1")
	})

	out, err := OuterHTML(n)
	require.NoError(t, err)
	assert.Equal(t, `<div id="n"><span id="first">&lt;b&gt;x&lt;/b&gt;</span><p id="a" data-x="1"></p><span id="after"></span></div>`, out)
}

func TestInnerText(t *testing.T) {
	doc, err := ParseString(`<div id="t"><p>Hello   <b>there</b></p><script>var x;</script><div>second
	line</div>bye<br>now</div>`)
	require.NoError(t, err)
	n := doc.QuerySelector(MustCompile("#t"))

	assert.Equal(t, "Hello there\nsecond line\nbye\nnow", InnerText(n))
}

func TestParseFragmentAndRender(t *testing.T) {
	nodes, err := ParseFragment(`<div class="x">a</div><span>b</span>`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.True(t, HasClass(nodes[0], "x"))

	doc, err := ParseString(`<p>hi</p>`)
	require.NoError(t, err)
	var sb strings.Builder
	require.NoError(t, doc.Render(&sb))
	assert.Contains(t, sb.String(), "<p>hi</p>")
}

func TestDocument_UpdateReleasesLockOnPanic(t *testing.T) {
	doc, err := ParseString(`<p id="a"></p>`)
	require.NoError(t, err)

	assert.Panics(t, func() {
		doc.Update(func(tx *Tx) {
			panic("extractor failed")
		})
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		doc.Update(func(tx *Tx) {
			tx.SetAttr(QuerySelector(tx.Root(), MustCompile("#a")), "data-x", "1")
		})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("document is still locked")
	}
}
