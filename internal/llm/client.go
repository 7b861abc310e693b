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

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
	"github.com/spherical/lecturecast/internal/retry"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "google/gemini-2.5-flash"
	defaultTimeout = 90 * time.Second
)

// Config configures the OpenRouter client.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
	MaxRetries     int
	Retry          *retry.Config // overrides backoff timings, used by tests
}

// Client handles communication with the OpenRouter chat-completions API
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	retry      retry.Config
	httpClient *http.Client
	logger     *observability.Logger
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Request represents the API request structure
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Response represents one streamed completion event
type Response struct {
	ID      string    `json:"id"`
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError is an error reported inside the stream after a 200 response.
type APIError struct {
	Code    interface{} `json:"code"`
	Message string      `json:"message"`
}

// Choice represents a single completion choice
type Choice struct {
	Delta        Delta  `json:"delta"`
	Message      Delta  `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Delta represents a message delta in streaming response
type Delta struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// NewClient creates a new LLM client
func NewClient(cfg Config, logger *observability.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if logger == nil {
		logger = observability.Nop()
	}

	rc := retry.DefaultConfig().WithMaxRetries(cfg.MaxRetries)
	if cfg.Retry != nil {
		rc = *cfg.Retry
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		timeout:    cfg.RequestTimeout,
		retry:      rc,
		httpClient: &http.Client{},
		logger:     logger.WithComponent("llm"),
	}
}

// Model returns the model identifier requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the streamed completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(c.buildRequest(prompt))
	if err != nil {
		return "", domain.ExpansionError("failed to marshal request", err)
	}

	start := time.Now()
	resp, err := retry.Do(ctx, c.retry, c.logger, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("HTTP-Referer", "https://github.com/spherical/lecturecast")
		req.Header.Set("X-Title", "Lecturecast")

		return c.httpClient.Do(req)
	})
	if err != nil {
		return "", domain.AsTimeout(domain.ExpansionError("failed to send request", err), "text expansion timed out")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.ExpansionError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))), nil)
	}

	var sb strings.Builder
	if err := NewStreamParser(resp.Body).Collect(&sb); err != nil {
		return "", domain.AsTimeout(domain.ExpansionError("failed to parse stream", err), "text expansion timed out")
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("chars", sb.Len()).
		Dur("duration", time.Since(start)).
		Msg("completion received")

	return sb.String(), nil
}

// buildRequest constructs the API request for a text-only prompt
func (c *Client) buildRequest(prompt string) *Request {
	return &Request{
		Model: c.model,
		Messages: []Message{{
			Role:    "user",
			Content: []ContentPart{{Type: "text", Text: prompt}},
		}},
		Stream: true,
	}
}
