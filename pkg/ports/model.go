package ports

import (
	"context"

	"github.com/river-berlin/unibase/pkg/domain"
)

// ChatModel is a language model that can request tool calls.
type ChatModel interface {
	// Complete sends the transcript and the available tools and returns the
	// assistant reply. The reply may carry text, tool calls, or both.
	Complete(ctx context.Context, req domain.ChatRequest) (domain.Message, error)
}

// ChatModelFunc adapts a function to ChatModel.
type ChatModelFunc func(ctx context.Context, req domain.ChatRequest) (domain.Message, error)

func (f ChatModelFunc) Complete(ctx context.Context, req domain.ChatRequest) (domain.Message, error) {
	return f(ctx, req)
}
