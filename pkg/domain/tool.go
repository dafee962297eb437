package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToolCall is a function call requested by the model.
// Compatible with OpenAI/MCP tool call payloads.
type ToolCall struct {
	ID        string `json:"id" yaml:"id" mapstructure:"id"`                      // Correlates the tool result message
	Name      string `json:"name" yaml:"name" mapstructure:"name"`                // Function name to call
	Arguments string `json:"arguments" yaml:"arguments" mapstructure:"arguments"` // JSON object, as sent by the model
}

// DecodeArguments parses the raw JSON arguments. An empty payload is an
// empty object.
func (c ToolCall) DecodeArguments() (map[string]any, error) {
	raw := strings.TrimSpace(c.Arguments)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", c.Name, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// ToolOutcome records what happened to one dispatched call.
// Exactly one of Result or Error is set.
type ToolOutcome struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Failed reports whether the call produced an error.
func (o ToolOutcome) Failed() bool { return o.Error != "" }

// Content renders the outcome as the body of a tool result message.
func (o ToolOutcome) Content() string {
	payload := map[string]any{"result": o.Result}
	if o.Failed() {
		payload = map[string]any{"error": o.Error}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}

// Schema is the JSON Schema subset used to describe tool parameters.
type Schema struct {
	Type                 string             `json:"type" yaml:"type"`
	Description          string             `json:"description,omitempty" yaml:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	Pattern              string             `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// Tool describes an operation offered to the model.
type Tool struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  Schema `json:"parameters" yaml:"parameters" mapstructure:"parameters"`
}
