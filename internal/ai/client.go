package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultModel   = "kwaipilot/kat-coder-pro:free"
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultReferer = "http://localhost:3000"
	defaultTitle   = "AI Recommender Project"

	systemInstruction = "You are a helpful product recommendation assistant. You MUST respond in valid JSON."
)

var (
	// ErrDisabled is returned when no credential is configured.
	ErrDisabled = errors.New("recommendation model disabled")
	// ErrModelCall wraps transport and API failures of the completion endpoint.
	ErrModelCall = errors.New("recommendation model call failed")
)

// Completer sends a prompt to a language model and returns its raw reply.
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds the OpenAI-compatible endpoint settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Referer string
	Title   string
}

// Client implements Completer against an OpenAI-compatible chat completions API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	referer    string
	title      string
}

// NewClient constructs a Client, or returns ErrDisabled when no API key is configured.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Referer) == "" {
		cfg.Referer = defaultReferer
	}
	if strings.TrimSpace(cfg.Title) == "" {
		cfg.Title = defaultTitle
	}
	return &Client{
		// No timeout: the call runs until the endpoint answers or the request context ends.
		httpClient: &http.Client{},
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		referer:    cfg.Referer,
		title:      cfg.Title,
	}, nil
}

// Enabled reports whether the client can make outbound calls.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete issues a single chat completion request and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	body, err := json.Marshal(c.buildPayload(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", ErrModelCall, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", ErrModelCall, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrModelCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return "", fmt.Errorf("%w: status %d: %v", ErrModelCall, resp.StatusCode, apiErr)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrModelCall, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrModelCall)
	}
	return decoded.Choices[0].Message.Content, nil
}

func (c *Client) buildPayload(prompt string) map[string]any {
	return map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemInstruction},
			{"role": "user", "content": prompt},
		},
	}
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
