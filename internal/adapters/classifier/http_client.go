package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/phish-detect/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClassifyPath is appended to the backend URL
const ClassifyPath = "/classify/"

// maxResponseSize caps the response body read from the service
const maxResponseSize = 1 << 20

// ErrInvalidResponse is returned when the service answers 2xx with a body
// that is not a usable classification
var ErrInvalidResponse = errors.New("invalid classification response")

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Label       string   `json:"label"`
	Score       *float64 `json:"score"`
	Explanation string   `json:"explanation"`
}

// HTTPClient implements core.ClassificationClient against the
// classification service HTTP API
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Options tune the HTTP client
type Options struct {
	// Timeout bounds a whole round-trip. Zero keeps the transport default.
	Timeout time.Duration
	// RateLimit is the maximum number of requests per second. Zero
	// disables limiting.
	RateLimit float64
	// Burst is the limiter bucket size, at least 1
	Burst int
}

// NewHTTPClient creates a client for the service at backendURL
func NewHTTPClient(backendURL string, opts Options, logger *zap.Logger) (*HTTPClient, error) {
	backendURL = strings.TrimSpace(backendURL)
	if backendURL == "" {
		return nil, errors.New("classification backend URL is required")
	}
	if !strings.HasPrefix(backendURL, "http://") && !strings.HasPrefix(backendURL, "https://") {
		return nil, fmt.Errorf("unsupported classification backend URL: %s", backendURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &HTTPClient{
		endpoint:   strings.TrimRight(backendURL, "/") + ClassifyPath,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c, nil
}

// Endpoint returns the full classification URL
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Classify sends text to the service. Every failure is logged here and
// returned as an error with a nil classification; there is no retry.
func (c *HTTPClient) Classify(ctx context.Context, text string) (*core.Classification, error) {
	result, err := c.classify(ctx, text)
	if err != nil {
		c.logger.Error("Error classifying email", zap.String("endpoint", c.endpoint), zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (c *HTTPClient) classify(ctx context.Context, text string) (*core.Classification, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	payload, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call classification service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
	}

	var parsed classifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Score == nil {
		return nil, fmt.Errorf("%w: missing score", ErrInvalidResponse)
	}
	score := *parsed.Score
	if math.IsNaN(score) || score < 0 || score > 1 {
		return nil, fmt.Errorf("%w: score %v out of range", ErrInvalidResponse, score)
	}

	c.logger.Debug("Received classification",
		zap.String("label", parsed.Label),
		zap.Float64("score", score))

	return &core.Classification{
		Label:       core.ParseLabel(parsed.Label),
		RawLabel:    parsed.Label,
		Score:       score,
		Explanation: parsed.Explanation,
	}, nil
}
