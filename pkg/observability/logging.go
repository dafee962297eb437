package observability

import (
	"context"
	"log/slog"

	"github.com/river-berlin/unibase/pkg/domain"
)

// LogHooks writes one structured line per lifecycle event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start", "run_id", e.RunID, "instruction_len", len(e.Instruction))
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{"run_id", e.RunID, "iterations", e.Iterations, "duration", e.Duration}
			if e.Err != nil {
				logger.ErrorContext(ctx, "run_end", append(attrs, "error", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "run_end", attrs...)
		},
		OnModelCall: func(ctx context.Context, e *domain.ModelEvent) {
			logger.DebugContext(ctx, "model_call",
				"run_id", e.RunID,
				"iteration", e.Iteration,
				"tool_calls", e.ToolCalls,
				"duration", e.Duration,
			)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return", "run_id", e.RunID, "tool_name", e.ToolName, "is_error", e.IsError)
		},
		OnRender: func(ctx context.Context, e *domain.RenderEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "render", "run_id", e.RunID, "duration", e.Duration, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "render", "run_id", e.RunID, "duration", e.Duration)
		},
	}
}
