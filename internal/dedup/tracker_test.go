package dedup

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mikey/phish-detect/internal/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ClaimsOnce(t *testing.T) {
	tr := NewTracker()

	assert.True(t, tr.TryClaim("a"))
	for i := 0; i < 5; i++ {
		assert.False(t, tr.TryClaim("a"))
	}
	assert.True(t, tr.TryClaim("b"))
	assert.Equal(t, 2, tr.Len())
}

func TestTracker_ConcurrentClaims(t *testing.T) {
	tr := NewTracker()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.TryClaim("same") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestMessageIDKey(t *testing.T) {
	doc, err := dom.ParseString(`
<div id="a"><h2 data-legacy-message-id="18c2">s</h2></div>
<div id="b" data-message-id="#msg-f:1"><h2 data-legacy-message-id="other">s</h2></div>
<div id="c">no id</div>`)
	require.NoError(t, err)
	key := MessageIDKey(nil)

	a := doc.QuerySelector(dom.MustCompile("#a"))
	b := doc.QuerySelector(dom.MustCompile("#b"))
	c := doc.QuerySelector(dom.MustCompile("#c"))

	assert.Equal(t, "id:18c2", key(a))
	assert.Equal(t, "id:#msg-f:1", key(b))
	assert.Equal(t, NodeKey(c), key(c))
}

func TestMessageIDKey_StableAcrossRerender(t *testing.T) {
	first, err := dom.ParseFragment(`<div data-message-id="m1">old</div>`)
	require.NoError(t, err)
	second, err := dom.ParseFragment(`<div data-message-id="m1">new</div>`)
	require.NoError(t, err)

	key := MessageIDKey(nil)
	tr := NewTracker()
	assert.True(t, tr.TryClaim(key(first[0])))
	assert.False(t, tr.TryClaim(key(second[0])))
}

func TestContentKey(t *testing.T) {
	nodes, err := dom.ParseFragment(`<div>Pay <b>now</b></div><p>Pay <i>now</i></p><div>Later</div>`)
	require.NoError(t, err)

	assert.Equal(t, ContentKey(nodes[0]), ContentKey(nodes[1]))
	assert.NotEqual(t, ContentKey(nodes[0]), ContentKey(nodes[2]))
}

func TestKeyFuncFor(t *testing.T) {
	for _, s := range []string{"", StrategyNode, StrategyMessageID, StrategyContent} {
		fn, err := KeyFuncFor(s, nil)
		require.NoError(t, err, s)
		assert.NotNil(t, fn)
	}
	_, err := KeyFuncFor("random", nil)
	assert.Error(t, err)
}
