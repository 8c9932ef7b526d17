package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Retry schedule for transient completion failures.
const (
	maxRetries       = 3
	initialBackoff   = 1 * time.Second
	maxBackoff       = 60 * time.Second
	defaultMaxTokens = 1024
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter. It is satisfied by *sdk.MessageService so tests can pass a mock.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements StructuredCompleter on the Anthropic Messages
// API with bounded retries on transient failures.
type AnthropicClient struct {
	msg    MessagesClient
	model  string
	logger *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAnthropicClient builds an adapter from a Messages client.
func NewAnthropicClient(msg MessagesClient, model string, logger *slog.Logger) (*AnthropicClient, error) {
	if msg == nil {
		return nil, errors.New("anthropic messages client is required")
	}
	if model == "" {
		return nil, errors.New("model identifier is required")
	}
	return &AnthropicClient{
		msg:    msg,
		model:  model,
		logger: logger.With("component", "llm_client"),
		sleep:  sleepContext,
	}, nil
}

// NewAnthropicClientFromAPIKey constructs an adapter using the default
// Anthropic HTTP client.
func NewAnthropicClientFromAPIKey(apiKey, model string, logger *slog.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClient(&ac.Messages, model, logger)
}

// Complete issues a non-streaming Messages.New request. Transient failures
// (rate limit, timeout, server error, network) are retried with exponential
// backoff; terminal failures surface immediately.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	params := c.prepareRequest(req)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff << (attempt - 1)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			c.logger.Warn("Retrying LLM completion after transient failure",
				"attempt", attempt, "backoff", backoff, "error", lastErr)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		msg, err := c.msg.New(ctx, params)
		if err == nil {
			return translateMessage(msg)
		}
		if !isTransient(err) {
			return nil, fmt.Errorf("anthropic messages.new: %w", err)
		}
		lastErr = err
	}

	if isRateLimited(lastErr) {
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, lastErr)
	}
	return nil, fmt.Errorf("anthropic messages.new after %d retries: %w", maxRetries, lastErr)
}

func (c *AnthropicClient) prepareRequest(req CompletionRequest) sdk.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	return params
}

func translateMessage(msg *sdk.Message) (*CompletionResult, error) {
	if msg == nil {
		return nil, errors.New("anthropic: response message is nil")
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	metadata, err := json.Marshal(map[string]any{
		"stop_reason":   msg.StopReason,
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation metadata: %w", err)
	}

	return &CompletionResult{
		Text:      text.String(),
		ModelUsed: string(msg.Model),
		Metadata:  metadata,
	}, nil
}

// isTransient classifies a completion error. Rate limits, timeouts, server
// errors and network failures are retriable; auth, permission and
// invalid-request errors are not.
func isTransient(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		}
		return apiErr.StatusCode >= 500
	}
	// Non-API errors are network-level failures.
	return true
}

func isRateLimited(err error) bool {
	var apiErr *sdk.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
