package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

// Client talks to the inference service for summaries, sentiment and classification.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
}

var _ ports.Summarizer = (*Client)(nil)
var _ ports.SentimentModel = (*Client)(nil)
var _ ports.ContentTypeModel = (*Client)(nil)

// Options tune the client; zero values pick defaults.
type Options struct {
	Timeout time.Duration
	// RequestsPerSecond caps outbound calls; 0 disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// NewClient creates a reusable HTTP client. An empty endpoint yields a client
// that reports every call as unavailable.
func NewClient(endpoint, apiKey string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: opts.Timeout},
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// Summarize requests an abstractive summary of text.
func (c *Client) Summarize(ctx context.Context, text string, opts ports.SummaryOptions) (string, error) {
	payload := map[string]any{
		"text": text,
		"parameters": map[string]any{
			"min_length":           opts.MinLength,
			"max_length":           opts.MaxLength,
			"do_sample":            opts.DoSample,
			"no_repeat_ngram_size": opts.NoRepeatNgramSize,
		},
	}

	var resp struct {
		Summary string `json:"summary"`
	}
	if err := c.post(ctx, "/summarize", payload, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

// Sentiment scores text polarity.
func (c *Client) Sentiment(ctx context.Context, text string) (domain.Sentiment, error) {
	var resp struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := c.post(ctx, "/sentiment", map[string]any{"text": text}, &resp); err != nil {
		return domain.Sentiment{}, err
	}
	return domain.Sentiment{Label: resp.Label, Score: resp.Score}, nil
}

// ClassifyText asks for a content-type label for a link.
func (c *Client) ClassifyText(ctx context.Context, url, title string) (string, error) {
	payload := map[string]any{
		"url":    url,
		"title":  title,
		"labels": domain.ContentTypeLabels(),
	}
	var resp struct {
		Label string `json:"label"`
	}
	if err := c.post(ctx, "/classify", payload, &resp); err != nil {
		return "", err
	}
	return resp.Label, nil
}

// ClassifyImage asks for a content-type label for an image.
func (c *Client) ClassifyImage(ctx context.Context, imageURL string) (string, error) {
	payload := map[string]any{
		"image_url": imageURL,
		"labels":    domain.ContentTypeLabels(),
	}
	var resp struct {
		Label string `json:"label"`
	}
	if err := c.post(ctx, "/classify-image", payload, &resp); err != nil {
		return "", err
	}
	return resp.Label, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	if c.endpoint == "" {
		return fmt.Errorf("ml %s: %w", path, domain.ErrInferenceUnavailable)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Transient("ml "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Transient("ml "+path,
			fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet))))
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
