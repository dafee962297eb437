package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mitchellh/mapstructure"
	"github.com/river-berlin/unibase/internal/logging"
	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/scene"
)

// Env is the state a tool operates on during one dispatch batch.
type Env struct {
	Scene *scene.Scene
	IDs   IDPolicy
}

// ObjectID returns requested, or a new ID from the policy when it is empty.
// IDs spanning several lines are rejected since they cannot be written back
// as a "// Object:" header.
func (e *Env) ObjectID(requested string) (string, error) {
	if strings.ContainsAny(requested, "\r\n") {
		return "", fmt.Errorf("%w: objectId %q spans several lines", domain.ErrInvalidObjectID, requested)
	}
	if id := strings.TrimSpace(requested); id != "" {
		return id, nil
	}
	ids := e.IDs
	if ids == nil {
		ids = SequentialIDs
	}
	return ids(*e.Scene), nil
}

// Handler implements a tool. It receives already validated arguments.
type Handler func(ctx context.Context, env *Env, args map[string]any) (any, error)

// Typed adapts a handler that takes a decoded argument struct. Fields are
// matched by their mapstructure tags.
func Typed[T any](fn func(ctx context.Context, env *Env, args T) (any, error)) Handler {
	return func(ctx context.Context, env *Env, raw map[string]any) (any, error) {
		var args T
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &args,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(raw); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		return fn(ctx, env, args)
	}
}

type entry struct {
	def     domain.Tool
	schema  *openapi3.Schema
	handler Handler
}

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*entry
	order []string

	ids    IDPolicy
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDPolicy replaces the policy used when a call omits objectId.
func WithIDPolicy(p IDPolicy) Option {
	return func(r *Registry) {
		r.ids = p
	}
}

// WithLifecycleHooks registers hooks fired around every tool invocation.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = hooks
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:  make(map[string]*entry),
		ids:    SequentialIDs,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(def domain.Tool, fn Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if fn == nil {
		return fmt.Errorf("tool %s: handler is required", def.Name)
	}
	schema, err := compileSchema(def.Parameters)
	if err != nil {
		return fmt.Errorf("tool %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = &entry{def: def, schema: schema, handler: fn}
	return nil
}

// MustRegister is Register for static tool tables.
func (r *Registry) MustRegister(def domain.Tool, fn Handler) {
	if err := r.Register(def, fn); err != nil {
		panic(err)
	}
}

// Tools returns the tool declarations in registration order.
func (r *Registry) Tools() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// Lookup returns the declaration of a tool.
func (r *Registry) Lookup(name string) (domain.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return domain.Tool{}, false
	}
	return e.def, true
}

// Execute validates args and runs a single tool against sc.
// Returns an error wrapping domain.ErrUnknownTool if the tool is not found.
func (r *Registry) Execute(ctx context.Context, sc *scene.Scene, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	if err := validate(e.schema, args); err != nil {
		return nil, err
	}
	return e.handler(ctx, &Env{Scene: sc, IDs: r.ids}, args)
}

// Dispatch executes calls in order against sc and returns one outcome per
// call. Failures are recorded on the outcome and never abort the batch.
func (r *Registry) Dispatch(ctx context.Context, sc *scene.Scene, calls []domain.ToolCall) []domain.ToolOutcome {
	outcomes := make([]domain.ToolOutcome, 0, len(calls))
	for _, call := range calls {
		outcome := r.invoke(ctx, sc, call)
		if outcome.Failed() {
			r.logger.Debug("Tool call failed", "tool", call.Name, "call_id", call.ID, "error", outcome.Error)
		} else {
			r.logger.Debug("Tool call succeeded", "tool", call.Name, "call_id", call.ID)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (r *Registry) invoke(ctx context.Context, sc *scene.Scene, call domain.ToolCall) (outcome domain.ToolOutcome) {
	outcome = domain.ToolOutcome{ID: call.ID, Name: call.Name}

	args, err := call.DecodeArguments()
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Args = args

	if _, ok := r.Lookup(call.Name); !ok {
		outcome.Error = fmt.Sprintf("%v: %s", domain.ErrUnknownTool, call.Name)
		return outcome
	}

	r.emit(ctx, r.hooks.OnToolCall, domain.EventToolCall, call.Name, args, nil, false)
	defer func() {
		if rec := recover(); rec != nil {
			outcome.Result = nil
			outcome.Error = fmt.Sprintf("tool %s panicked: %v", call.Name, rec)
		}
		var output any = outcome.Result
		if outcome.Failed() {
			output = outcome.Error
		}
		r.emit(ctx, r.hooks.OnToolReturn, domain.EventToolReturn, call.Name, args, output, outcome.Failed())
	}()

	result, err := r.Execute(ctx, sc, call.Name, args)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Result = result
	return outcome
}

func (r *Registry) emit(ctx context.Context, hook func(context.Context, *domain.ToolEvent), typ domain.EventType, name string, args map[string]any, output any, isErr bool) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.ToolEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      typ,
			RunID:     domain.RunIDFrom(ctx),
		},
		ToolName: name,
		Input:    args,
		Output:   output,
		IsError:  isErr,
	})
}

// SchemaJSON returns the parameters schema of a tool as raw JSON.
func SchemaJSON(t domain.Tool) json.RawMessage {
	data, err := json.Marshal(t.Parameters)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}
