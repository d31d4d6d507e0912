// Package llm talks to the summarization model.
package llm

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"memeboard/internal/apperr"
	"memeboard/internal/config"
	"memeboard/internal/metrics"
)

// maxErrorBody bounds how much of a failed response is read for the detail
const maxErrorBody = 4096

// Summarizer sends a single prompt and returns the model's text
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// AnthropicClient implements Summarizer on the Anthropic Messages API
type AnthropicClient struct {
	cfg    config.AnthropicConfig
	client anthropic.Client
}

var _ Summarizer = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration
func NewAnthropicClient(cfg config.AnthropicConfig) *AnthropicClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Version != "" {
		opts = append(opts, option.WithHeader("anthropic-version", cfg.Version))
	}

	return &AnthropicClient{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
	}
}

// Summarize posts prompt as a single user message and returns the first
// text block of the reply
func (c *AnthropicClient) Summarize(ctx context.Context, prompt string) (string, error) {
	if err := c.cfg.ValidateModel(); err != nil {
		return "", err
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			metrics.RecordModelCall(strconv.Itoa(apiErr.StatusCode), time.Since(start).Seconds())
			return "", apperr.Upstream("AI API error", apiErr.StatusCode, errorDetail(apiErr), err)
		}
		metrics.RecordModelCall("error", time.Since(start).Seconds())
		return "", apperr.Upstream("model request failed", 0, "", err)
	}
	metrics.RecordModelCall("200", time.Since(start).Seconds())

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

// errorDetail returns the body the API answered with, falling back to the
// SDK's rendering of the error
func errorDetail(apiErr *anthropic.Error) string {
	if apiErr.Response != nil && apiErr.Response.Body != nil {
		payload, err := io.ReadAll(io.LimitReader(apiErr.Response.Body, maxErrorBody))
		if err == nil && len(payload) > 0 {
			return strings.TrimSpace(string(payload))
		}
	}
	if raw := apiErr.RawJSON(); raw != "" {
		return raw
	}
	return apiErr.Error()
}
