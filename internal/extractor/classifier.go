package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"review-insights-go/internal/logger"
	"review-insights-go/internal/types"
)

var ErrNotConfigured = errors.New("llm gateway not configured")

type Options struct {
	GatewayURL   string
	APIKey       string
	Model        string
	HTTPTimeout  time.Duration
	MaxRetryTime time.Duration
	Mock         bool
}

// Client classifies one review at a time against an OpenAI-compatible chat
// gateway.
type Client struct {
	opts Options
	http *http.Client
	log  *logger.Logger
}

func New(opts Options) *Client {
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 25 * time.Second
	}
	if opts.MaxRetryTime <= 0 {
		opts.MaxRetryTime = 45 * time.Second
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.HTTPTimeout},
		log:  logger.New().Component("extractor"),
	}
}

// BuildPrompt returns the system and user messages for one review.
func BuildPrompt(text string) (system, user string) {
	system = `You are a senior product manager analyzing app reviews.

Rules:
- Derive everything strictly from the review text.
- Determine the dominant intent: complaint, feature_request, or praise.
- Extract concrete issues as normalized snake_case identifiers.
- If the review contains any problem or request, issues must not be empty.
- Produce a concise executive summary (1-2 lines).

Respond with valid JSON only, matching:
{"intent": "complaint|feature_request|praise", "issues": [""], "summary": ""}`
	user = fmt.Sprintf("Review Text:\n%s\n\nAnalyze this review.", text)
	return system, user
}

// Classify returns the classification for text. In mock mode no network call
// is made.
func (c *Client) Classify(ctx context.Context, text string) (types.Classification, error) {
	if c.opts.Mock {
		return MockClassify(text), nil
	}
	if c.opts.GatewayURL == "" || c.opts.APIKey == "" {
		return types.Classification{}, ErrNotConfigured
	}

	system, user := BuildPrompt(text)
	data, err := json.Marshal(map[string]any{
		"model": c.opts.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0.0,
	})
	if err != nil {
		return types.Classification{}, fmt.Errorf("encode llm request: %w", err)
	}

	var body []byte
	var lastErr error
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.opts.HTTPTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.opts.GatewayURL, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()

		body, _ = io.ReadAll(resp.Body)
		c.log.WithField("http_status", resp.StatusCode).Debug("llm raw:\n" + string(body))

		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("llm gateway returned %d", resp.StatusCode)
			if resp.StatusCode < 500 {
				// Permanent: don't retry on client errors
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}
		if extractContentFromChoices(body) == "" && extractJSON(string(body)) == "" {
			lastErr = fmt.Errorf("no JSON found in LLM output")
			return lastErr
		}
		lastErr = nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.opts.MaxRetryTime
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return types.Classification{}, fmt.Errorf("llm classify failed: %w", lastErr)
	}
	return ParseClassification(body), nil
}

// ParseClassification reads a gateway response or a bare JSON object. It never
// fails: malformed output yields the zero Classification, and each field is
// decoded on its own so one bad field does not discard the others.
func ParseClassification(body []byte) types.Classification {
	raw := extractContentFromChoices(body)
	if raw == "" {
		raw = extractJSON(string(body))
	}
	if raw == "" {
		return types.Classification{}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return types.Classification{}
	}

	var out types.Classification
	var intent string
	if json.Unmarshal(fields["intent"], &intent) == nil && types.Intent(intent).Valid() {
		out.Intent = types.Intent(intent)
	}
	if v, ok := fields["issues"]; ok {
		_ = json.Unmarshal(v, &out.Issues)
	}
	_ = json.Unmarshal(fields["summary"], &out.Summary)
	return out
}
