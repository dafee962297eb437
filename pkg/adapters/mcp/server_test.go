package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/river-berlin/unibase"
	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/ports"
)

type stubRenderer struct{}

func (stubRenderer) Render(context.Context, string) (string, error) {
	return "solid s\nendsolid s", nil
}

func newTestServer(t *testing.T, model ports.ChatModel) (*Server, *unibase.Engine) {
	t.Helper()
	if model == nil {
		model = ports.ChatModelFunc(func(context.Context, domain.ChatRequest) (domain.Message, error) {
			return domain.Message{Content: "nothing to do"}, nil
		})
	}
	eng, err := unibase.New(model, unibase.WithRenderer(stubRenderer{}))
	require.NoError(t, err)
	return NewServer(eng), eng
}

// rpc sends one JSON-RPC request and returns the decoded "result" member.
func rpc(t *testing.T, s *Server, method string, params any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp := s.mcpServer.HandleMessage(context.Background(), raw)
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var envelope struct {
		Result map[string]any `json:"result"`
		Error  map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	require.Nil(t, envelope.Error, "unexpected rpc error: %s", data)
	return envelope.Result
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) (string, bool) {
	t.Helper()
	result := rpc(t, s, "tools/call", map[string]any{"name": name, "arguments": args})
	content, ok := result["content"].([]any)
	require.True(t, ok, "missing content: %v", result)
	require.NotEmpty(t, content)
	first := content[0].(map[string]any)
	isError, _ := result["isError"].(bool)
	return fmt.Sprint(first["text"]), isError
}

func TestListTools(t *testing.T) {
	s, eng := newTestServer(t, nil)

	result := rpc(t, s, "tools/list", map[string]any{})
	tools := result["tools"].([]any)

	byName := map[string]map[string]any{}
	for _, raw := range tools {
		tool := raw.(map[string]any)
		byName[tool["name"].(string)] = tool
	}
	for _, def := range eng.Tools() {
		tool, ok := byName[def.Name]
		require.True(t, ok, "tool %s not exposed", def.Name)
		schema := tool["inputSchema"].(map[string]any)
		props := schema["properties"].(map[string]any)
		assert.Contains(t, props, ProjectParam)
		assert.Contains(t, schema["required"], ProjectParam)
	}
	assert.Contains(t, byName, "get_scene")
	assert.Contains(t, byName, "prompt_scene")
}

func TestSceneToolUpdatesProject(t *testing.T) {
	s, eng := newTestServer(t, nil)

	text, isErr := callTool(t, s, "add_or_replace_sphere", map[string]any{
		ProjectParam: "desk",
		"objectId":   "ball",
		"radius":     2,
	})
	require.False(t, isErr, text)

	var resp ToolResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	assert.Equal(t, "Added sphere ball", resp.Result)
	assert.Contains(t, resp.SCAD, "// Object: ball")

	p, err := eng.Project(context.Background(), "desk")
	require.NoError(t, err)
	assert.Equal(t, resp.SCAD, p.SCAD)

	scadText, isErr := callTool(t, s, "get_scene", map[string]any{ProjectParam: "desk"})
	require.False(t, isErr)
	assert.Equal(t, p.SCAD, scadText)
}

func TestSceneToolErrors(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"missing project", "remove_object", map[string]any{"objectId": "x"}, ProjectParam},
		{"missing object", "remove_object", map[string]any{ProjectParam: "desk", "objectId": "ghost"}, "object not found"},
		{"unknown project", "get_scene", map[string]any{ProjectParam: "nowhere"}, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callTool(t, s, tt.tool, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestPromptScene(t *testing.T) {
	model := ports.ChatModelFunc(func(_ context.Context, req domain.ChatRequest) (domain.Message, error) {
		if len(req.Messages) == 2 {
			return domain.Message{ToolCalls: []domain.ToolCall{{ID: "c1", Name: "add_or_replace_cuboid", Arguments: `{"objectId":"top","width":4,"height":1,"depth":2}`}}}, nil
		}
		return domain.Message{Content: "built a table top"}, nil
	})
	s, _ := newTestServer(t, model)

	text, isErr := callTool(t, s, "prompt_scene", map[string]any{ProjectParam: "desk", "instruction": "a table top"})
	require.False(t, isErr, text)

	var out struct {
		Reasoning string `json:"reasoning"`
		SCAD      string `json:"scad"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Contains(t, out.Reasoning, "built a table top")
	assert.Contains(t, out.SCAD, "cube([4, 1, 2], center=true);")
}

func TestWithProjectParamDoesNotMutate(t *testing.T) {
	params := domain.Schema{
		Type:       "object",
		Properties: map[string]*domain.Schema{"objectId": {Type: "string"}},
		Required:   []string{"objectId"},
	}
	raw := withProjectParam(params)

	var decoded domain.Schema
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{ProjectParam, "objectId"}, decoded.Required)
	assert.NotContains(t, params.Properties, ProjectParam)
	assert.Equal(t, []string{"objectId"}, params.Required)
}
