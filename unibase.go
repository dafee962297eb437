package unibase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/river-berlin/unibase/internal/logging"
	"github.com/river-berlin/unibase/internal/runtime"
	"github.com/river-berlin/unibase/pkg/adapters/memory"
	"github.com/river-berlin/unibase/pkg/adapters/process"
	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/ports"
	"github.com/river-berlin/unibase/pkg/registry"
	"github.com/river-berlin/unibase/pkg/scad"
	"github.com/river-berlin/unibase/pkg/scene"
	"github.com/river-berlin/unibase/pkg/session"
)

// Request and Result are the orchestrator's input and output.
type (
	Request = runtime.Request
	Result  = runtime.Result
)

// PromptRequest is an instruction against a stored project.
type PromptRequest struct {
	Instruction   string     `json:"instruction"`
	SceneRotation scene.Vec3 `json:"sceneRotation,omitempty"`
}

// Engine is the high-level entry point for the library.
type Engine struct {
	orchestrator *runtime.Orchestrator
	renderer     ports.MeshRenderer
	store        ports.ProjectStore
	sessions     *session.Manager
	publishers   []ports.EventPublisher

	locker      ports.DistributedLocker
	lockTTL     time.Duration
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.Option
	maxInput    int
	now         func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRenderer sets the mesh renderer (default: OpenSCAD on PATH).
func WithRenderer(r ports.MeshRenderer) Option {
	return func(e *Engine) {
		e.renderer = r
	}
}

// WithStore sets the project store (default: in memory).
func WithStore(s ports.ProjectStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker serializes runs on the same project across replicas.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithPublisher announces every persisted change. It may be given more than
// once; each publisher receives every event.
func WithPublisher(p ports.EventPublisher) Option {
	return func(e *Engine) {
		e.publishers = append(e.publishers, p)
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxIterations bounds model calls per run (default 5).
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxIterations(n))
	}
}

// WithCallTimeout bounds each model call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithCallTimeout(d))
	}
}

// WithRenderTimeout bounds the mesh conversion at the end of a run.
func WithRenderTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRenderTimeout(d))
	}
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithSystemPrompt(prompt))
	}
}

// WithInstructionLimit caps instruction size in bytes.
func WithInstructionLimit(n int) Option {
	return func(e *Engine) {
		e.maxInput = n
	}
}

// WithClock overrides time.Now for history and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New builds an Engine around model.
func New(model ports.ChatModel, opts ...Option) (*Engine, error) {
	if model == nil {
		return nil, errors.New("unibase: a chat model is required")
	}

	eng := &Engine{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.renderer == nil {
		eng.renderer = process.NewRenderer(process.WithLogger(eng.logger))
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(eng.logger), session.WithClock(eng.now)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
		if eng.lockTTL > 0 {
			sessionOpts = append(sessionOpts, session.WithLockTTL(eng.lockTTL))
		}
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)

	runtimeOpts := append([]runtime.Option{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	}, eng.runtimeOpts...)
	eng.orchestrator = runtime.New(model, eng.renderer, runtimeOpts...)

	return eng, nil
}

// Tools lists the scene tools offered to the model.
func (e *Engine) Tools() []domain.Tool {
	return e.orchestrator.Tools().Tools()
}

// Registry exposes the tool registry, e.g. for schema export.
func (e *Engine) Registry() *registry.Registry {
	return e.orchestrator.Tools()
}

// Store returns the project store.
func (e *Engine) Store() ports.ProjectStore {
	return e.store
}

// Run executes one instruction without touching the store.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	instruction, err := domain.SanitizeInstruction(req.Instruction, e.maxInput)
	if err != nil {
		return nil, err
	}
	req.Instruction = instruction
	return e.orchestrator.Run(ctx, req)
}

// Prompt runs an instruction against the stored project and persists the
// outcome. Concurrent prompts on the same project are serialized.
func (e *Engine) Prompt(ctx context.Context, projectID string, req PromptRequest) (*Result, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("project id is required")
	}
	instruction, err := domain.SanitizeInstruction(req.Instruction, e.maxInput)
	if err != nil {
		return nil, err
	}
	logger := e.logger.With("project_id", projectID)

	var res *Result
	_, err = e.sessions.Update(ctx, projectID, func(ctx context.Context, p *domain.Project) error {
		var runErr error
		res, runErr = e.orchestrator.Run(ctx, Request{
			Instruction:   instruction,
			SCAD:          p.SCAD,
			SceneRotation: req.SceneRotation,
		})
		if runErr != nil {
			return runErr
		}
		return e.apply(p, instruction, res)
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, logger, domain.SceneEvent{
		Type:      domain.EventSceneUpdated,
		ProjectID: projectID,
		RunID:     res.RunID,
		SCAD:      res.SCAD,
		Errors:    res.Errors,
		Timestamp: e.now().UTC(),
	})
	return res, nil
}

// apply folds a finished run into the snapshot. When rendering failed the
// result carries no SCAD, so the scene is serialized again to keep it.
func (e *Engine) apply(p *domain.Project, instruction string, res *Result) error {
	text := res.SCAD
	if text == "" && len(res.Scene) > 0 {
		var err error
		if text, err = scad.Serialize(res.Scene); err != nil {
			return err
		}
	}
	p.SCAD = text
	p.STL = res.STL

	now := e.now().UTC()
	p.History = append(p.History,
		domain.ConversationEntry{Role: domain.RoleUser, Content: instruction, CreatedAt: now},
		domain.ConversationEntry{Role: domain.RoleAssistant, Content: res.Reasoning, CreatedAt: now},
	)
	return nil
}

// Project returns the stored snapshot.
func (e *Engine) Project(ctx context.Context, projectID string) (*domain.Project, error) {
	return e.sessions.Load(ctx, projectID)
}

// Scene parses the stored project into objects.
func (e *Engine) Scene(ctx context.Context, projectID string) (scene.Scene, error) {
	p, err := e.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return scad.ParseAll(runtime.NormalizeSCAD(p.SCAD)), nil
}

// ApplyTool executes a single scene tool against the stored project, outside
// of any model conversation, and returns the tool result with the new SCAD.
// The mesh is not regenerated.
func (e *Engine) ApplyTool(ctx context.Context, projectID, name string, args map[string]any) (any, string, error) {
	var (
		result any
		text   string
	)
	_, err := e.sessions.Update(ctx, projectID, func(ctx context.Context, p *domain.Project) error {
		sc := scad.ParseAll(runtime.NormalizeSCAD(p.SCAD))
		var err error
		if result, err = e.orchestrator.Tools().Execute(ctx, &sc, name, args); err != nil {
			return err
		}
		if text, err = scad.Serialize(sc); err != nil {
			return err
		}
		p.SCAD = text
		p.STL = ""
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	e.publish(ctx, e.logger.With("project_id", projectID), domain.SceneEvent{
		Type:      domain.EventSceneUpdated,
		ProjectID: projectID,
		SCAD:      text,
		Timestamp: e.now().UTC(),
	})
	return result, text, nil
}

// Render converts SCAD text to STL with the configured renderer.
func (e *Engine) Render(ctx context.Context, text string) (string, error) {
	stl, err := e.renderer.Render(ctx, text)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return stl, nil
}

func (e *Engine) publish(ctx context.Context, logger *slog.Logger, ev domain.SceneEvent) {
	for _, p := range e.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			logger.Warn("Failed to publish scene event", "run_id", ev.RunID, "error", err)
		}
	}
}
