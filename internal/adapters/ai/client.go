// Package ai provides the model provider client used for report generation.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hooplab/passport/internal/domain/prompt"
	"github.com/hooplab/passport/pkg/logger"
)

// Result is a single raw completion from the provider.
type Result struct {
	Text  string
	Model string
}

// Client produces one completion per call. Implementations make exactly one
// attempt; retry policy belongs to the RetryClient decorator.
type Client interface {
	Generate(ctx context.Context, req prompt.Request) (Result, error)
}

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
type HTTPClient struct {
	log        logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL overrides the provider base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithModel sets the model name sent with every request.
func WithModel(model string) ClientOption {
	return func(c *HTTPClient) {
		c.model = model
	}
}

// WithTimeout bounds a single attempt end to end.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client, used by tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(log logger.Logger) ClientOption {
	return func(c *HTTPClient) {
		c.log = log
	}
}

// NewHTTPClient creates a provider client with configuration options.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    "https://api.openai.com",
		model:      "gpt-4o",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("ai")
	}
	return c
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate makes exactly one chat completions call and returns the raw
// completion text. JSON mode is always requested.
func (c *HTTPClient) Generate(ctx context.Context, req prompt.Request) (Result, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: 0.2,
	}
	body.ResponseFormat.Type = "json_object"

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return Result{}, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			RetryAfter: retryAfter(resp),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return Result{}, ErrEmptyCompletion
	}
	if refusal := parsed.Choices[0].Message.Refusal; refusal != "" {
		return Result{}, fmt.Errorf("model refused: %s", refusal)
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}
	return Result{Text: parsed.Choices[0].Message.Content, Model: model}, nil
}

func retryAfter(resp *http.Response) time.Duration {
	ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
