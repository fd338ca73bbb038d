// Package llm is the chat-completion collaborator used by the advisor.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	aerrors "github.com/hpungsan/asesor/internal/errors"
	"github.com/hpungsan/asesor/internal/upstream"
)

const (
	Service = "llm"

	DefaultMaxTokens   = 800
	DefaultTemperature = 0.7
	DefaultTimeout     = 30 * time.Second
)

// Roles of a chat message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one message of a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer turns a chat transcript into the assistant's reply.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

var errNoChoices = errors.New("response has no choices")

// Options configures a Client.
type Options struct {
	URL      string
	Model    string
	APIKey   string
	Timeout  time.Duration
	Logger   *zap.Logger
	Recorder upstream.Recorder
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	model string
	up    *upstream.Client
}

// New creates a completion client. A zero timeout uses DefaultTimeout.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		model: opts.Model,
		up: &upstream.Client{
			Service:  Service,
			BaseURL:  opts.URL,
			APIKey:   opts.APIKey,
			Timeout:  opts.Timeout,
			Logger:   opts.Logger,
			Recorder: opts.Recorder,
		},
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.up.Configured() }

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends messages and returns the first choice's content with code fences removed.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", aerrors.NewInvalidRequest("at least one message is required")
	}

	req := completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}

	var resp completionResponse
	if err := c.up.DoJSON(ctx, http.MethodPost, "", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", aerrors.NewUpstreamFailed(Service, errNoChoices)
	}
	return StripFences(resp.Choices[0].Message.Content), nil
}

// StripFences trims s and removes a leading ```json or ``` fence and a trailing ``` fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
