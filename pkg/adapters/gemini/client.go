// Package gemini implements ports.ChatModel with the Google GenAI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/river-berlin/unibase/internal/logging"
	"github.com/river-berlin/unibase/pkg/domain"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Config configures the client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// generator is the part of genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client adapts the Gemini function-calling API to ports.ChatModel.
type Client struct {
	models generator
	model  string
	temp   float32
	logger *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Gemini API client.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newWithGenerator(gc.Models, cfg, opts...), nil
}

func newWithGenerator(g generator, cfg Config, opts ...Option) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	c := &Client{
		models: g,
		model:  cfg.Model,
		temp:   cfg.Temperature,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements ports.ChatModel.
func (c *Client) Complete(ctx context.Context, req domain.ChatRequest) (domain.Message, error) {
	system, contents := toContents(req.Messages)

	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(c.temp),
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toSchema(&t.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return domain.Message{}, fmt.Errorf("gemini generate: %w", err)
	}

	msg, err := fromResponse(resp)
	if err != nil {
		return domain.Message{}, err
	}
	c.logger.Debug("Completion received", "model", c.model, "duration", time.Since(start), "tool_calls", len(msg.ToolCalls))
	return msg, nil
}

// toSchema maps the tool parameter schema onto Gemini's OpenAPI subset,
// which spells types in upper case.
func toSchema(s *domain.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Required:    s.Required,
		Pattern:     s.Pattern,
		Items:       toSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	return out
}

// toContents splits the system prompt off and groups consecutive tool results
// into a single user turn.
func toContents(messages []domain.Message) (*genai.Content, []*genai.Content) {
	var (
		system   *genai.Content
		contents []*genai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: m.Content})

		case domain.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))

		case domain.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
			}
			for _, call := range m.ToolCalls {
				args, _ := call.DecodeArguments()
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: args,
				}})
			}
			contents = append(contents, content)

		case domain.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.Name,
				Response: toolResponse(m.Content),
			}}
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
		}
	}
	return system, contents
}

func isFunctionResponseTurn(c *genai.Content) bool {
	return c.Role == genai.RoleUser && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

func toolResponse(content string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(content), &out); err != nil || out == nil {
		return map[string]any{"output": content}
	}
	return out
}

func fromResponse(resp *genai.GenerateContentResponse) (domain.Message, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return domain.Message{}, fmt.Errorf("no completion returned")
	}
	msg := domain.Message{Role: domain.RoleAssistant}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return msg, nil
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil {
			continue
		}
		if part.Thought {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			args := fc.Args
			if args == nil {
				args = map[string]any{}
			}
			raw, err := json.Marshal(args)
			if err != nil {
				return domain.Message{}, fmt.Errorf("failed to encode %s arguments: %w", fc.Name, err)
			}
			msg.ToolCalls = append(msg.ToolCalls, domain.ToolCall{ID: fc.ID, Name: fc.Name, Arguments: string(raw)})
		}
	}
	msg.Content = text.String()
	return msg, nil
}
