package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const inbox = `<html><body>
<div class="nH oy8Mbf">
  <div role="main">
    <div class="nH nn" id="m1">
      <div class="nH hx"><h2 class="hP">Invoice</h2></div>
      <span class="go">Eve</span><span class="gD" email="eve@evil.com">Eve</span>
      <div class="msg"><div class="a3s">Pay now</div></div>
    </div>
  </div>
  <div class="AO"><div class="zA">row</div></div>
  <div class="nH nn" id="outside"></div>
</div>
</body></html>`

func parseInbox(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(inbox)
	require.NoError(t, err)
	return doc
}

func ids(nodes []*html.Node) []string {
	var out []string
	for _, n := range nodes {
		v, _ := Attr(n, "id")
		out = append(out, v)
	}
	return out
}

func TestCompile_Errors(t *testing.T) {
	for _, src := range []string{"", "div >", "> div", "div[", ".", "div,,p", "[=x]"} {
		_, err := Compile(src)
		assert.Error(t, err, "selector %q", src)
	}
}

func TestSelector_DescendantWithAttribute(t *testing.T) {
	doc := parseInbox(t)
	sel := MustCompile(`div[role="main"] .nH.nn`)

	got := QuerySelectorAll(doc.Root(), sel)
	assert.Equal(t, []string{"m1"}, ids(got))
}

func TestSelector_ChildCombinator(t *testing.T) {
	doc := parseInbox(t)

	body := QuerySelector(doc.Root(), MustCompile("div.msg > div.a3s"))
	require.NotNil(t, body)
	assert.Equal(t, "Pay now", InnerText(body))

	assert.Nil(t, QuerySelector(doc.Root(), MustCompile("div.nH.nn > div.a3s")))
}

func TestSelector_Group(t *testing.T) {
	doc := parseInbox(t)
	sel := MustCompile(".missing, .nH.oy8Mbf")

	root := QuerySelector(doc.Root(), sel)
	require.NotNil(t, root)
	assert.True(t, HasClass(root, "oy8Mbf"))
}

func TestSelector_AttributePresence(t *testing.T) {
	doc := parseInbox(t)

	n := QuerySelector(doc.Root(), MustCompile("span[email]"))
	require.NotNil(t, n)
	v, ok := Attr(n, "email")
	assert.True(t, ok)
	assert.Equal(t, "eve@evil.com", v)
}

func TestSelector_MatchUsesAncestorsOutsideScope(t *testing.T) {
	doc := parseInbox(t)
	msg := QuerySelector(doc.Root(), MustCompile("#m1"))
	require.NotNil(t, msg)

	// The scope is the message, the ancestor [role=main] lives above it.
	assert.True(t, MustCompile(`div[role=main] .nH.nn`).Match(msg))
	assert.Nil(t, QuerySelector(msg, MustCompile("#m1")), "query excludes the scope root")
}

func TestSelector_UniversalAndTextNodes(t *testing.T) {
	sel := MustCompile("*")
	assert.False(t, sel.Match(&html.Node{Type: html.TextNode, Data: "x"}))
	assert.True(t, sel.Match(NewElement("p")))
	assert.True(t, Selector{}.IsZero())
}

func TestSelector_CommaInsideAttributeValue(t *testing.T) {
	doc, err := ParseString(`<p id="x" title="a,b"></p><p id="y" title="a"></p><p id="z" title="b"></p>`)
	require.NoError(t, err)

	got := QuerySelectorAll(doc.Root(), MustCompile(`p[title="a,b"], #y`))
	assert.Equal(t, []string{"x", "y"}, ids(got))
}
