package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/disputalabs/disputa/internal/core"
)

const (
	maxAttempts      = 3
	baseRetryDelay   = 1 * time.Second
	defaultChatModel = "gpt-4o-mini"
)

// OpenAIOptions configure the chat-completions gateway. BaseURL may point at
// any OpenAI-compatible endpoint.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIGateway implements Gateway against the OpenAI chat-completions API.
type OpenAIGateway struct {
	client     openai.Client
	model      string
	retryDelay time.Duration
}

// NewOpenAI creates a gateway from options. Credentials fall back to the
// SDK's environment handling when left empty.
func NewOpenAI(optFns ...func(o *OpenAIOptions)) *OpenAIGateway {
	opts := OpenAIOptions{Model: defaultChatModel}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIGateway{
		client:     openai.NewClient(clientOpts...),
		model:      opts.Model,
		retryDelay: baseRetryDelay,
	}
}

// Name identifies the gateway for logging.
func (g *OpenAIGateway) Name() string { return "openai" }

// Generate calls the chat-completions endpoint, retrying transient failures
// with exponential backoff. Exhausted retries propagate the last error; the
// caller decides whether that aborts a turn or a whole run.
func (g *OpenAIGateway) Generate(ctx context.Context, msgs []core.Message, temperature float64, maxTokens int) (string, core.TokenUsage, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(msgs),
		Model:               g.model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := g.retryDelay << (attempt - 1)
			slog.Warn("Retrying gateway call", "attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", core.TokenUsage{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isTransient(err) {
				continue
			}
			return "", core.TokenUsage{}, &Error{Gateway: g.Name(), Message: "chat completion failed", Err: err}
		}
		if len(resp.Choices) == 0 {
			return "", core.TokenUsage{}, &Error{Gateway: g.Name(), Message: "no choices returned"}
		}

		usage := core.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), usage, nil
	}

	return "", core.TokenUsage{}, &Error{Gateway: g.Name(), Message: "retries exhausted", Err: lastErr}
}

// buildMessages converts transcript messages into SDK params. Agent tags are
// a transcript-level concern; the wire only sees role and content.
func buildMessages(msgs []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// isTransient reports whether an error is worth retrying: timeouts,
// connection drops, rate limits and server-side failures.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	// The SDK wraps raw connection failures in plain errors.
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}
