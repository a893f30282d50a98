package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/mikey/phish-detect/internal/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_Records(t *testing.T) {
	p := NewPipeline()
	var _ core.Recorder = p

	p.Submitted()
	p.Submitted()
	p.Skipped()
	p.Transition(core.StateClaimed)
	p.Transition(core.StateDone)
	p.Transition(core.StateDone)
	p.ClassificationLatency(0.2, true)
	p.ClassificationLatency(0.4, false)
	p.InFlight(1)
	p.InFlight(1)
	p.InFlight(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.SubmittedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.SkippedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.TransitionsTotal.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.TransitionsTotal.WithLabelValues("claimed")))
	assert.Equal(t, 2, testutil.CollectAndCount(p.ClassificationDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.PipelinesInFlight))
}

func TestPipeline_Handler(t *testing.T) {
	p := NewPipeline()
	p.Submitted()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "phish_detect_nodes_submitted_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
