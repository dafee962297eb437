package unibase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/river-berlin/unibase"
	"github.com/river-berlin/unibase/pkg/adapters/memory"
	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/ports"
)

const ballSCAD = "// Object: ball\ntranslate([0, 0, 0]) rotate([0, 0, 0]) sphere(r=2, $fn=64);"

// twoStep answers every run with one tool call followed by a summary.
func twoStep(call domain.ToolCall, summary string) ports.ChatModel {
	return ports.ChatModelFunc(func(_ context.Context, req domain.ChatRequest) (domain.Message, error) {
		last := req.Messages[len(req.Messages)-1]
		if last.Role == domain.RoleUser && len(req.Messages) == 2 {
			return domain.Message{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{call}}, nil
		}
		return domain.Message{Role: domain.RoleAssistant, Content: summary}, nil
	})
}

type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(_ context.Context, text string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "solid s\nendsolid s", nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SceneEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.SceneEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, model ports.ChatModel, opts ...unibase.Option) *unibase.Engine {
	t.Helper()
	base := []unibase.Option{
		unibase.WithRenderer(stubRenderer{}),
		unibase.WithClock(func() time.Time { return fixedNow }),
	}
	eng, err := unibase.New(model, append(base, opts...)...)
	require.NoError(t, err)
	return eng
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := unibase.New(nil)
	assert.Error(t, err)
}

func TestEngine_Run(t *testing.T) {
	eng := newEngine(t, twoStep(domain.ToolCall{Name: "add_or_replace_sphere", Arguments: `{"objectId":"ball","radius":2}`}, "Added a ball."))

	res, err := eng.Run(context.Background(), unibase.Request{Instruction: "a ball"})
	require.NoError(t, err)
	assert.Equal(t, ballSCAD, res.SCAD)
	assert.Equal(t, "Added a ball.", res.Reasoning)

	ids, err := eng.Store().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids, "Run is stateless")
}

func TestEngine_RunRejectsBadInstruction(t *testing.T) {
	eng := newEngine(t, twoStep(domain.ToolCall{}, ""), unibase.WithInstructionLimit(8))

	_, err := eng.Run(context.Background(), unibase.Request{Instruction: "this is far too long"})
	assert.ErrorIs(t, err, domain.ErrInstructionTooLarge)

	_, err = eng.Run(context.Background(), unibase.Request{Instruction: "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyInstruction)
}

func TestEngine_PromptPersistsAndPublishes(t *testing.T) {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	eng := newEngine(t,
		twoStep(domain.ToolCall{Name: "add_or_replace_sphere", Arguments: `{"objectId":"ball","radius":2}`}, "Added a ball."),
		unibase.WithStore(store),
		unibase.WithPublisher(pub),
	)
	ctx := context.Background()

	res, err := eng.Prompt(ctx, "desk", unibase.PromptRequest{Instruction: "a ball"})
	require.NoError(t, err)

	project, err := store.Load(ctx, "desk")
	require.NoError(t, err)
	assert.Equal(t, ballSCAD, project.SCAD)
	assert.Equal(t, "solid s\nendsolid s", project.STL)
	assert.Equal(t, fixedNow, project.UpdatedAt)
	assert.Equal(t, []domain.ConversationEntry{
		{Role: domain.RoleUser, Content: "a ball", CreatedAt: fixedNow},
		{Role: domain.RoleAssistant, Content: "Added a ball.", CreatedAt: fixedNow},
	}, project.History)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventSceneUpdated, pub.events[0].Type)
	assert.Equal(t, "desk", pub.events[0].ProjectID)
	assert.Equal(t, res.RunID, pub.events[0].RunID)
	assert.Equal(t, ballSCAD, pub.events[0].SCAD)
}

func TestEngine_PromptBuildsOnStoredScene(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "desk", &domain.Project{SCAD: ballSCAD}))

	var seen string
	model := ports.ChatModelFunc(func(_ context.Context, req domain.ChatRequest) (domain.Message, error) {
		if seen == "" {
			seen = req.Messages[1].Content
			return domain.Message{ToolCalls: []domain.ToolCall{{Name: "place_object", Arguments: `{"objectId":"ball","x":1,"y":2,"z":3}`}}}, nil
		}
		return domain.Message{Content: "Moved."}, nil
	})
	eng := newEngine(t, model, unibase.WithStore(store))

	res, err := eng.Prompt(ctx, "desk", unibase.PromptRequest{Instruction: "move the ball"})
	require.NoError(t, err)

	assert.Contains(t, seen, ballSCAD)
	assert.Equal(t, "// Object: ball\ntranslate([1, 2, 3]) rotate([0, 0, 0]) sphere(r=2, $fn=64);", res.SCAD)
}

func TestEngine_PromptKeepsSceneWhenRenderFails(t *testing.T) {
	store := memory.NewStore()
	eng := newEngine(t,
		twoStep(domain.ToolCall{Name: "add_or_replace_sphere", Arguments: `{"objectId":"ball","radius":2}`}, "ok"),
		unibase.WithStore(store),
		unibase.WithRenderer(stubRenderer{err: errors.New("openscad: not found")}),
	)
	ctx := context.Background()

	res, err := eng.Prompt(ctx, "desk", unibase.PromptRequest{Instruction: "a ball"})
	require.NoError(t, err)
	assert.Empty(t, res.SCAD)
	assert.Empty(t, res.STL)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "openscad: not found")

	project, err := store.Load(ctx, "desk")
	require.NoError(t, err)
	assert.Equal(t, ballSCAD, project.SCAD)
	assert.Empty(t, project.STL)
}

func TestEngine_PromptModelErrorLeavesProjectUntouched(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "desk", &domain.Project{SCAD: ballSCAD}))

	boom := errors.New("provider unavailable")
	model := ports.ChatModelFunc(func(context.Context, domain.ChatRequest) (domain.Message, error) {
		return domain.Message{}, boom
	})
	pub := &recordingPublisher{}
	eng := newEngine(t, model, unibase.WithStore(store), unibase.WithPublisher(pub))

	_, err := eng.Prompt(ctx, "desk", unibase.PromptRequest{Instruction: "anything"})
	assert.ErrorIs(t, err, boom)

	project, err := store.Load(ctx, "desk")
	require.NoError(t, err)
	assert.Equal(t, ballSCAD, project.SCAD)
	assert.Empty(t, project.History)
	assert.Empty(t, pub.events)
}

func TestEngine_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	eng := newEngine(t, twoStep(domain.ToolCall{Name: "add_or_replace_sphere", Arguments: `{"radius":1}`}, "ok"), unibase.WithPublisher(pub))

	_, err := eng.Prompt(context.Background(), "p", unibase.PromptRequest{Instruction: "ball"})
	assert.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestEngine_PromptRequiresProjectID(t *testing.T) {
	eng := newEngine(t, twoStep(domain.ToolCall{}, ""))
	_, err := eng.Prompt(context.Background(), " ", unibase.PromptRequest{Instruction: "x"})
	assert.Error(t, err)
}

func TestEngine_ApplyTool(t *testing.T) {
	store := memory.NewStore()
	eng := newEngine(t, twoStep(domain.ToolCall{}, ""), unibase.WithStore(store))
	ctx := context.Background()

	result, text, err := eng.ApplyTool(ctx, "desk", "add_or_replace_sphere", map[string]any{"objectId": "ball", "radius": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "Added sphere ball", result)
	assert.Equal(t, ballSCAD, text)

	sc, err := eng.Scene(ctx, "desk")
	require.NoError(t, err)
	assert.Equal(t, []string{"ball"}, sc.IDs())

	_, _, err = eng.ApplyTool(ctx, "desk", "remove_object", map[string]any{"objectId": "missing"})
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)

	_, _, err = eng.ApplyTool(ctx, "desk", "explode", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownTool)

	project, err := store.Load(ctx, "desk")
	require.NoError(t, err)
	assert.Equal(t, ballSCAD, project.SCAD, "failed tools do not save")
}

func TestEngine_ProjectNotFound(t *testing.T) {
	eng := newEngine(t, twoStep(domain.ToolCall{}, ""))
	_, err := eng.Project(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestEngine_Tools(t *testing.T) {
	eng := newEngine(t, twoStep(domain.ToolCall{}, ""))
	var names []string
	for _, tool := range eng.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"add_or_replace_cuboid",
		"add_or_replace_sphere",
		"add_or_replace_cylinder",
		"add_or_replace_polyhedron",
		"place_object",
		"specify_rotation",
		"remove_object",
	}, names)
}
