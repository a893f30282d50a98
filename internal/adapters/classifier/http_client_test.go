package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/phish-detect/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClassify_SendsTextAndParsesResponse(t *testing.T) {
	var gotPath, gotType, gotText string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		var req struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotText = req.Text
		_, _ = w.Write([]byte(`{"label":"LABEL_1","score":0.873,"explanation":"urgent payment request"}`))
	})

	c, err := NewHTTPClient(srv.URL+"/", Options{}, nil)
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "Sender: Eve")
	require.NoError(t, err)

	assert.Equal(t, "/classify/", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "Sender: Eve", gotText)
	assert.Equal(t, &core.Classification{
		Label:       core.LabelSuspicious,
		RawLabel:    "LABEL_1",
		Score:       0.873,
		Explanation: "urgent payment request",
	}, got)
}

func TestClassify_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"redirect status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotModified)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"label":`))
		},
		"missing score": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"label":"LABEL_0","explanation":"x"}`))
		},
		"score out of range": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"label":"LABEL_0","score":1.5,"explanation":"x"}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, handler)
			obsCore, logs := observer.New(zap.ErrorLevel)
			c, err := NewHTTPClient(srv.URL, Options{}, zap.New(obsCore))
			require.NoError(t, err)

			got, err := c.Classify(context.Background(), "text")
			assert.Nil(t, got)
			assert.Error(t, err)
			assert.Equal(t, 1, logs.FilterMessage("Error classifying email").Len())
		})
	}
}

func TestClassify_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, Options{Timeout: time.Second}, nil)
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), "text")
	assert.Nil(t, got)
	assert.Error(t, err)
}

func TestClassify_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c, err := NewHTTPClient(srv.URL, Options{}, nil)
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "text")
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClassify_BenignLabels(t *testing.T) {
	for _, label := range []string{"LABEL_0", "BENIGN", "", "label_2"} {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"label": label, "score": 0.1, "explanation": "ok"})
		})
		c, err := NewHTTPClient(srv.URL, Options{}, nil)
		require.NoError(t, err)

		got, err := c.Classify(context.Background(), "text")
		require.NoError(t, err)
		assert.Equal(t, core.LabelBenign, got.Label, label)
	}
}

func TestNewHTTPClient_Validation(t *testing.T) {
	_, err := NewHTTPClient("", Options{}, nil)
	assert.Error(t, err)
	_, err = NewHTTPClient("ftp://x", Options{}, nil)
	assert.Error(t, err)

	c, err := NewHTTPClient("http://localhost:8000", Options{RateLimit: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/classify/", c.Endpoint())
	assert.NotNil(t, c.limiter)
}
