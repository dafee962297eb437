package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart   EventType = "run_start"
	EventModelCall  EventType = "model_call"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
	EventRender     EventType = "render"
	EventRunEnd     EventType = "run_end"

	// EventSceneUpdated is published after a project run has been persisted.
	EventSceneUpdated EventType = "scene.updated"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// RunEvent marks the start and end of an orchestrator run.
type RunEvent struct {
	EventBase
	Instruction string        `json:"instruction,omitempty"`
	Iterations  int           `json:"iterations,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Err         error         `json:"-"`
}

// ModelEvent describes one completed model call.
type ModelEvent struct {
	EventBase
	Iteration int           `json:"iteration"`
	ToolCalls int           `json:"tool_calls"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	ToolName string         `json:"tool_name"`
	Input    map[string]any `json:"input,omitempty"`
	Output   any            `json:"output,omitempty"`
	IsError  bool           `json:"is_error,omitempty"`
}

// RenderEvent describes the mesh conversion at the end of a run.
type RenderEvent struct {
	EventBase
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunEnd     func(context.Context, *RunEvent)
	OnModelCall  func(context.Context, *ModelEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnRender     func(context.Context, *RenderEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRunStart:   chain(h.OnRunStart, other.OnRunStart),
		OnRunEnd:     chain(h.OnRunEnd, other.OnRunEnd),
		OnModelCall:  chain(h.OnModelCall, other.OnModelCall),
		OnToolCall:   chain(h.OnToolCall, other.OnToolCall),
		OnToolReturn: chain(h.OnToolReturn, other.OnToolReturn),
		OnRender:     chain(h.OnRender, other.OnRender),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// SceneEvent is published to external subscribers when a project changes.
type SceneEvent struct {
	Type      EventType `json:"type"`
	ProjectID string    `json:"project_id"`
	RunID     string    `json:"run_id"`
	SCAD      string    `json:"scad"`
	Errors    []string  `json:"errors,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type runIDKey struct{}

// WithRunID attaches the current run ID to ctx so that components deeper in
// the call chain can tag their events.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the run ID stored by WithRunID, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
