// Package openai implements ports.ChatModel against any endpoint speaking the
// OpenAI chat completions protocol.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/river-berlin/unibase/internal/logging"
	"github.com/river-berlin/unibase/pkg/domain"
)

// Defaults.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
)

// Config configures the client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Client talks to /chat/completions. It does not retry; the caller owns
// deadlines and failure handling.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	api        sdk.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client. Empty fields of cfg take the package defaults.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.api = sdk.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)
	return c
}

// Complete implements ports.ChatModel.
func (c *Client) Complete(ctx context.Context, req domain.ChatRequest) (domain.Message, error) {
	if c.cfg.APIKey == "" {
		return domain.Message{}, fmt.Errorf("openai: API key not configured")
	}

	params, err := c.encode(req)
	if err != nil {
		return domain.Message{}, err
	}

	start := time.Now()
	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return domain.Message{}, fmt.Errorf("API request failed with status %d: %s", apiErr.StatusCode, apiErr.Message)
		}
		return domain.Message{}, fmt.Errorf("request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return domain.Message{}, fmt.Errorf("no completion returned")
	}

	choice := completion.Choices[0]
	msg := decodeMessage(choice.Message)
	c.logger.Debug("Completion received",
		"model", c.cfg.Model,
		"duration", time.Since(start),
		"tool_calls", len(msg.ToolCalls),
		"finish_reason", choice.FinishReason,
	)
	return msg, nil
}

func (c *Client) encode(req domain.ChatRequest) (sdk.ChatCompletionNewParams, error) {
	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(c.cfg.Model),
		Temperature: sdk.Float(c.cfg.Temperature),
		Messages:    make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}

	for _, t := range req.Tools {
		fn, err := toParameters(t.Parameters)
		if err != nil {
			return params, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		params.Tools = append(params.Tools, sdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: sdk.String(t.Description),
				Parameters:  fn,
			},
		})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			params.Messages = append(params.Messages, sdk.SystemMessage(m.Content))
		case domain.RoleUser:
			params.Messages = append(params.Messages, sdk.UserMessage(m.Content))
		case domain.RoleTool:
			params.Messages = append(params.Messages, sdk.ToolMessage(m.Content, m.ToolCallID))
		case domain.RoleAssistant:
			params.Messages = append(params.Messages, assistantMessage(m))
		default:
			return params, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return params, nil
}

func assistantMessage(m domain.Message) sdk.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return sdk.AssistantMessage(m.Content)
	}

	asst := sdk.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		asst.Content.OfString = sdk.String(m.Content)
	}
	for _, call := range m.ToolCalls {
		args := call.Arguments
		if args == "" {
			args = "{}"
		}
		asst.ToolCalls = append(asst.ToolCalls, sdk.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: sdk.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: args,
			},
		})
	}
	return sdk.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

// toParameters converts the tool schema into the free-form map the API
// expects for function parameters.
func toParameters(s domain.Schema) (shared.FunctionParameters, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}
	var out shared.FunctionParameters
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}
	return out, nil
}

func decodeMessage(m sdk.ChatCompletionMessage) domain.Message {
	msg := domain.Message{Role: domain.RoleAssistant, Content: m.Content}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg
}
