package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"askrelay/internal/models"
)

// CompletionClient sends a chat history to the upstream chat-completion API
// and returns the first choice's text. An empty string means the upstream
// answered without usable content.
type CompletionClient interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// CompletionOptions configures an upstream client.
type CompletionOptions struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration

	// Temperature is omitted from the upstream request when nil.
	Temperature *float32
}

// HTTPCompletionClient talks to an OpenAI-compatible /chat/completions endpoint
// over plain net/http.
type HTTPCompletionClient struct {
	opts       CompletionOptions
	httpClient *http.Client
}

func NewHTTPCompletionClient(opts CompletionOptions) *HTTPCompletionClient {
	return &HTTPCompletionClient{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature *float32             `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *HTTPCompletionClient) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return "", newInternalError("failed to encode upstream request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(payload))
	if err != nil {
		return "", newInternalError("failed to create upstream request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", newUpstreamError("request cancelled", err)
		}
		return "", newUpstreamError("upstream request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newUpstreamError("failed reading upstream response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newUpstreamError(
			fmt.Sprintf("upstream returned status %d", resp.StatusCode),
			fmt.Errorf("body=%s", truncate(string(body), 400)),
		)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", newInternalError("failed to parse upstream response", fmt.Errorf("%w: %s", err, truncate(string(body), 400)))
	}

	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
