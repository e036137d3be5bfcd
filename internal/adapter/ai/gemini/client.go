// Package gemini implements the completion client backed by the Gemini
// generateContent API.
package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"log/slog"

	"github.com/fairyhunter13/ai-doc-companion/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-doc-companion/internal/adapter/observability"
	"github.com/fairyhunter13/ai-doc-companion/internal/config"
	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
	"github.com/fairyhunter13/ai-doc-companion/internal/service/keypool"
	"github.com/fairyhunter13/ai-doc-companion/internal/service/usagestats"
)

// TruncationMarker is appended to prompts cut down to the size limit.
const TruncationMarker = "... [truncated due to length]"

// Client implements domain.CompletionClient against the Gemini API. Every
// request dispenses the next credential from the pool, so load spreads evenly
// across configured keys.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	keys    *keypool.Pool
	stats   *usagestats.Tracker
	counter *tokencount.Counter
}

// New constructs a Gemini client with sensible timeouts. Outbound calls go
// through an otelhttp transport so completion round-trips show up as client
// spans alongside the server traces.
func New(cfg config.Config, keys *keypool.Pool, stats *usagestats.Tracker) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("Gemini %s %s", r.Method, r.URL.Host)
		}),
	)
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 120 * time.Second, Transport: transport},
		keys:    keys,
		stats:   stats,
		counter: tokencount.NewCounter(),
	}
}

// request/response envelope for the generateContent endpoint.

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// TruncatePrompt cuts a prompt exceeding max runes down to max and appends
// the truncation marker. Prompts at or under the limit pass through
// unmodified; the operation is stable under repeated application.
func TruncatePrompt(prompt string, max int) string {
	runes := []rune(prompt)
	if len(runes) <= max {
		return prompt
	}
	return string(runes[:max]) + TruncationMarker
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

func (c *Client) endpoint() string {
	return c.cfg.GeminiBaseURL + "/models/" + c.cfg.GeminiModel + ":generateContent"
}

// Complete sends one prompt and returns the first candidate's first text
// part. Oversized prompts are truncated before sending. Transient upstream
// failures are retried with exponential backoff; a fresh credential is
// dispensed for every attempt. All failures come back as typed errors;
// rendering them as user-facing placeholder text is the caller's concern.
func (c *Client) Complete(ctx domain.Context, prompt string) (string, error) {
	if c.keys.Size() == 0 {
		return "", fmt.Errorf("%w: set GEMINI_API_KEY_1..6 or GEMINI_API_KEY", domain.ErrNoCredentials)
	}

	prompt = TruncatePrompt(prompt, c.cfg.MaxPromptChars)
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", domain.ErrInternal, err)
	}

	observability.AIPromptTokens.WithLabelValues("completion").Observe(float64(c.counter.CountTokens(prompt)))

	var out generateResponse
	op := func() error {
		key, err := c.keys.Next()
		if err != nil {
			return backoff.Permanent(err)
		}
		start := time.Now()
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("x-goog-api-key", key)
		resp, err := c.hc.Do(r)
		c.stats.Increment()
		observability.AIRequestsTotal.WithLabelValues("completion").Inc()
		observability.AIRequestDuration.WithLabelValues("completion").Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			slog.Error("failed to read completion response body", slog.Any("error", err))
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			// Retryable: the next attempt carries the next key in rotation.
			slog.Warn("completion endpoint rate limited",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.GeminiModel))
			return fmt.Errorf("%w: status 429", domain.ErrUpstreamRateLimit)
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client error: non-retryable
			slog.Warn("completion endpoint 4xx",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.GeminiModel),
				slog.String("body", snippet(respBytes, 512)))
			return backoff.Permanent(fmt.Errorf("%w: completion status %d", domain.ErrUpstreamStatus, resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// 5xx and others: retryable
			slog.Error("completion endpoint non-2xx",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.GeminiModel),
				slog.String("body", snippet(respBytes, 512)))
			return fmt.Errorf("%w: completion status %d", domain.ErrUpstreamStatus, resp.StatusCode)
		}
		out = generateResponse{}
		if err := json.Unmarshal(respBytes, &out); err != nil {
			slog.Error("completion response decode error", slog.Any("error", err))
			return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
		return nil
	}

	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		slog.Error("completion failed after retries",
			slog.String("model", c.cfg.GeminiModel),
			slog.Any("error", err))
		return "", err
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		slog.Error("completion response missing candidates", slog.String("model", c.cfg.GeminiModel))
		return "", fmt.Errorf("%w: no candidates", domain.ErrMalformedResponse)
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		// The envelope decoded fine; the model just produced nothing.
		return "", fmt.Errorf("%w: blank text part", domain.ErrEmptyCompletion)
	}
	slog.Debug("completion succeeded",
		slog.String("model", c.cfg.GeminiModel),
		slog.Int("prompt_chars", len(prompt)),
		slog.Int("completion_chars", len(text)))
	return text, nil
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
