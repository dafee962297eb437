package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/river-berlin/unibase/internal/logging"
	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/ports"
	"github.com/river-berlin/unibase/pkg/registry"
	"github.com/river-berlin/unibase/pkg/scad"
	"github.com/river-berlin/unibase/pkg/scene"
)

const (
	DefaultMaxIterations = 5
	DefaultCallTimeout   = 2 * time.Minute
	DefaultRenderTimeout = 60 * time.Second
)

// Request is the input of one run.
type Request struct {
	Instruction   string     `json:"instruction"`
	SCAD          string     `json:"scad,omitempty"`          // Previously persisted scene, may be empty
	SceneRotation scene.Vec3 `json:"sceneRotation,omitempty"` // Viewer camera rotation, degrees
}

// Result is everything a run produced.
type Result struct {
	RunID      string               `json:"runId"`
	Scene      scene.Scene          `json:"scene"`
	Reasoning  string               `json:"reasoning"`
	SCAD       string               `json:"scad"`
	STL        string               `json:"stl"`
	Errors     []string             `json:"errors,omitempty"` // nil means no errors
	ToolCalls  []domain.ToolOutcome `json:"toolCalls"`
	Iterations int                  `json:"iterations"`
}

// HasErrors reports whether the run recorded any error.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// Orchestrator drives the bounded conversation between the model and the
// scene tools. It holds no per-run state and is safe for concurrent use.
type Orchestrator struct {
	model    ports.ChatModel
	renderer ports.MeshRenderer
	tools    *registry.Registry

	systemPrompt  string
	maxIterations int
	callTimeout   time.Duration
	renderTimeout time.Duration
	hooks         domain.LifecycleHooks
	logger        *slog.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithRegistry replaces the default scene tool registry.
func WithRegistry(r *registry.Registry) Option {
	return func(o *Orchestrator) {
		o.tools = r
	}
}

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) {
		o.systemPrompt = prompt
	}
}

// WithMaxIterations bounds the number of model calls per run.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithCallTimeout bounds each model call. Zero disables the deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.callTimeout = d
	}
}

// WithRenderTimeout bounds the mesh conversion. Zero disables the deadline.
func WithRenderTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.renderTimeout = d
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator. Without WithRegistry it uses the scene tools.
func New(model ports.ChatModel, renderer ports.MeshRenderer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:         model,
		renderer:      renderer,
		systemPrompt:  DefaultSystemPrompt,
		maxIterations: DefaultMaxIterations,
		callTimeout:   DefaultCallTimeout,
		renderTimeout: DefaultRenderTimeout,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tools == nil {
		o.tools = registry.NewSceneRegistry(
			registry.WithLogger(o.logger),
			registry.WithLifecycleHooks(o.hooks),
		)
	}
	return o
}

// Tools returns the registry the orchestrator dispatches to.
func (o *Orchestrator) Tools() *registry.Registry { return o.tools }

// NormalizeSCAD repairs persisted SCAD text before parsing. Older clients
// stored the literal "undefined" where a number was missing.
func NormalizeSCAD(text string) string {
	return strings.ReplaceAll(text, "undefined", "1")
}

// Run executes one instruction against the scene described by req.SCAD.
//
// Model errors abort the run. Tool failures are recorded on their outcome and
// a render failure is recorded in Result.Errors with empty SCAD and STL.
func (o *Orchestrator) Run(ctx context.Context, req Request) (res *Result, err error) {
	runID := uuid.NewString()
	ctx = domain.WithRunID(ctx, runID)
	logger := o.logger.With("run_id", runID)
	started := time.Now()

	o.fireRun(ctx, o.hooks.OnRunStart, &domain.RunEvent{
		EventBase:   domain.EventBase{Timestamp: started, Type: domain.EventRunStart, RunID: runID},
		Instruction: req.Instruction,
	})
	defer func() {
		ev := &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRunEnd, RunID: runID},
			Duration:  time.Since(started),
			Err:       err,
		}
		if res != nil {
			ev.Iterations = res.Iterations
		}
		o.fireRun(ctx, o.hooks.OnRunEnd, ev)
	}()

	persisted := NormalizeSCAD(req.SCAD)
	sc := scad.ParseAll(persisted)
	if headers := strings.Count(persisted, "// Object:"); headers > len(sc) {
		logger.Warn("Scene text has blocks the parser skipped", "headers", headers, "objects", len(sc))
	}

	// The model sees the stored text, not the parsed scene.
	transcript := []domain.Message{
		{Role: domain.RoleSystem, Content: o.systemPrompt},
		{Role: domain.RoleUser, Content: initialUserMessage(req.Instruction, req.SceneRotation, persisted)},
	}
	tools := o.tools.Tools()
	res = &Result{RunID: runID, ToolCalls: []domain.ToolOutcome{}}

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		res.Iterations = iteration

		reply, err := o.complete(ctx, iteration, transcript, tools)
		if err != nil {
			return nil, fmt.Errorf("model call (iteration %d): %w", iteration, err)
		}
		reply.Role = domain.RoleAssistant
		assignCallIDs(reply.ToolCalls)
		transcript = append(transcript, reply)

		logger.Debug("Model replied", "iteration", iteration, "tool_calls", len(reply.ToolCalls))
		if len(reply.ToolCalls) == 0 {
			break
		}

		outcomes := o.tools.Dispatch(ctx, &sc, reply.ToolCalls)
		res.ToolCalls = append(res.ToolCalls, outcomes...)
		for _, out := range outcomes {
			transcript = append(transcript, domain.Message{
				Role:       domain.RoleTool,
				ToolCallID: out.ID,
				Name:       out.Name,
				Content:    out.Content(),
			})
		}

		current, err := scad.Serialize(sc)
		if err != nil {
			return nil, fmt.Errorf("serialize scene (iteration %d): %w", iteration, err)
		}
		transcript = append(transcript, domain.Message{Role: domain.RoleUser, Content: followUpMessage(current)})

		if iteration == o.maxIterations {
			logger.Warn("Iteration limit reached with tool calls pending", "max_iterations", o.maxIterations)
		}
	}

	res.Reasoning = reasoning(transcript)
	res.Scene = sc

	finalSCAD, err := scad.Serialize(sc)
	if err != nil {
		return nil, fmt.Errorf("serialize final scene: %w", err)
	}

	stl, renderErr := o.render(ctx, finalSCAD)
	if renderErr != nil {
		logger.Warn("Mesh rendering failed", "error", renderErr)
		res.Errors = append(res.Errors, renderErr.Error())
		finalSCAD, stl = "", ""
	}
	res.SCAD = finalSCAD
	res.STL = stl

	return res, nil
}

func (o *Orchestrator) complete(ctx context.Context, iteration int, transcript []domain.Message, tools []domain.Tool) (domain.Message, error) {
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
	}

	started := time.Now()
	reply, err := o.model.Complete(ctx, domain.ChatRequest{
		Messages: append([]domain.Message(nil), transcript...),
		Tools:    tools,
	})

	if o.hooks.OnModelCall != nil {
		o.hooks.OnModelCall(ctx, &domain.ModelEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventModelCall, RunID: domain.RunIDFrom(ctx)},
			Iteration: iteration,
			ToolCalls: len(reply.ToolCalls),
			Duration:  time.Since(started),
			Err:       err,
		})
	}
	return reply, err
}

func (o *Orchestrator) render(ctx context.Context, text string) (string, error) {
	if o.renderer == nil {
		return "", fmt.Errorf("render: no mesh renderer configured")
	}
	if o.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.renderTimeout)
		defer cancel()
	}

	started := time.Now()
	stl, err := o.renderer.Render(ctx, text)
	if err != nil {
		err = fmt.Errorf("render: %w", err)
	}

	if o.hooks.OnRender != nil {
		o.hooks.OnRender(ctx, &domain.RenderEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRender, RunID: domain.RunIDFrom(ctx)},
			Duration:  time.Since(started),
			Err:       err,
		})
	}
	return stl, err
}

func (o *Orchestrator) fireRun(ctx context.Context, hook func(context.Context, *domain.RunEvent), ev *domain.RunEvent) {
	if hook != nil {
		hook(ctx, ev)
	}
}

// assignCallIDs fills in IDs for providers that do not return them, so tool
// results can always reference their call.
func assignCallIDs(calls []domain.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.NewString()
		}
	}
}

func reasoning(transcript []domain.Message) string {
	var b strings.Builder
	for _, m := range transcript {
		if m.Role == domain.RoleAssistant {
			b.WriteString(m.Content)
		}
	}
	return b.String()
}
