package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ContentEnricher/internal/config"
	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

// ChatGPTClient implements ports.ContentTypeModel backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.ContentTypeModel = (*ChatGPTClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether the client has everything it needs to call out.
func (c *ChatGPTClient) Configured() bool {
	return c != nil && c.apiKey != "" && c.endpoint != "" && c.model != ""
}

// ClassifyText asks the model to pick one label for a link.
func (c *ChatGPTClient) ClassifyText(ctx context.Context, url, title string) (string, error) {
	user := fmt.Sprintf("URL: %s\nTitle: %s", url, strings.TrimSpace(title))
	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: safePrompt(c.systemPrompt)},
		{Role: "user", Content: user},
	})
}

// ClassifyImage sends the image URL as a vision input.
func (c *ChatGPTClient) ClassifyImage(ctx context.Context, imageURL string) (string, error) {
	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: safePrompt(c.systemPrompt)},
		{Role: "user", Content: []map[string]any{
			{"type": "text", "text": "Classify this image."},
			{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
		}},
	})
}

func (c *ChatGPTClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("chatgpt client misconfigured: %w", domain.ErrInferenceUnavailable)
	}

	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0,
		"max_tokens":  8,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.Transient("chatgpt", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", domain.Transient("chatgpt", fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(payload))))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chatgpt returned no choices: %w", domain.ErrInferenceUnavailable)
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "Classify the saved item into exactly one of these labels: " +
			strings.Join(domain.ContentTypeLabels(), ", ") +
			". Answer with the label only."
	}
	return prompt
}
