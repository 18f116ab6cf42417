package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"assistbot/internal/metrics"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrGenerator is returned when the generator gave up after exhausting its
// retry budget on transient failures.
var ErrGenerator = errors.New("generator unavailable")

// ErrMalformedResponse is returned when the generator answered but the answer
// is not a JSON object. It is not retried.
var ErrMalformedResponse = errors.New("generator returned malformed JSON")

// RetryPolicy bounds the retry-with-backoff loop around transient failures.
// Delay for attempt n is BaseDelay * 2^n plus up to BaseDelay of jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Client talks to the Gemini generateContent REST endpoint and returns
// structured JSON answers. Retries are owned entirely by the client; callers
// only ever see the final result or ErrGenerator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	policy     RetryPolicy
	logger     *logrus.Logger
}

// NewClient creates a generator client for the given model.
func NewClient(apiKey, model string, policy RetryPolicy, logger *logrus.Logger) *Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 500 * time.Millisecond
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      model,
		policy:     policy,
		logger:     logger,
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateStructured sends the prompt and returns the model's answer as a raw
// JSON object. Transient failures (429, 5xx, network errors) are retried with
// exponential backoff and jitter; a well-formed HTTP answer carrying invalid
// JSON fails immediately with ErrMalformedResponse.
func (c *Client) GenerateStructured(ctx context.Context, prompt string) (json.RawMessage, error) {
	var attemptErrs *multierror.Error

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.policy.BaseDelay<<uint(attempt-1) +
				time.Duration(rand.Int63n(int64(c.policy.BaseDelay)))
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"delay":   delay,
			}).Debug("Retrying generator call")
			metrics.AIRetries.Inc()

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		raw, retryable, err := c.generateOnce(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		if !retryable {
			metrics.AIFailures.Inc()
			return nil, err
		}
		attemptErrs = multierror.Append(attemptErrs, err)
	}

	metrics.AIFailures.Inc()
	return nil, fmt.Errorf("%w after %d attempts: %v",
		ErrGenerator, c.policy.MaxAttempts, attemptErrs.ErrorOrNil())
}

// generateOnce performs a single HTTP round trip. The second return value
// reports whether the failure is worth retrying.
func (c *Client) generateOnce(ctx context.Context, prompt string) (json.RawMessage, bool, error) {
	start := time.Now()
	metrics.AIRequests.Inc()

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.1,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	metrics.AILatency.Observe(time.Since(start).Seconds())

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("generator returned status %d: %s", resp.StatusCode, body)
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, false, fmt.Errorf("%w: empty candidate list", ErrMalformedResponse)
	}

	text := StripCodeFences(gr.Candidates[0].Content.Parts[0].Text)
	if !json.Valid([]byte(text)) {
		return nil, false, fmt.Errorf("%w: %q", ErrMalformedResponse, truncate(text, 120))
	}

	return json.RawMessage(text), false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
