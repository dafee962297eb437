package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/river-berlin/unibase"
	"github.com/river-berlin/unibase/internal/logging"
	"github.com/river-berlin/unibase/pkg/domain"
)

// ProjectParam is the argument every scene tool takes on top of its own
// parameters.
const ProjectParam = "projectId"

// Engine defines what the MCP server needs from unibase.
type Engine interface {
	Tools() []domain.Tool
	ApplyTool(ctx context.Context, projectID, name string, args map[string]any) (any, string, error)
	Project(ctx context.Context, projectID string) (*domain.Project, error)
	Prompt(ctx context.Context, projectID string, req unibase.PromptRequest) (*unibase.Result, error)
}

// ToolResponse is returned by every scene tool.
type ToolResponse struct {
	Result any    `json:"result"`
	SCAD   string `json:"scad"`
}

// Server exposes the scene tools of an Engine as an MCP server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("unibase-mcp", strings.TrimSpace(unibase.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerSceneTools()
	s.registerProjectTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// registerSceneTools mirrors every registry tool, adding the project argument.
func (s *Server) registerSceneTools() {
	for _, def := range s.engine.Tools() {
		tool := mcp.NewToolWithRawSchema(def.Name, def.Description, withProjectParam(def.Parameters))
		s.mcpServer.AddTool(tool, s.sceneToolHandler(def.Name))
	}
}

func (s *Server) sceneToolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := request.RequireString(ProjectParam)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args := make(map[string]any)
		for k, v := range request.GetArguments() {
			if k != ProjectParam {
				args[k] = v
			}
		}

		result, scad, err := s.engine.ApplyTool(ctx, projectID, name, args)
		if err != nil {
			s.logger.Warn("MCP tool failed", "tool", name, "project", projectID, "err", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ToolResponse{Result: result, SCAD: scad})
	}
}

func (s *Server) registerProjectTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_scene",
		mcp.WithDescription("Return the current OpenSCAD source of a project."),
		mcp.WithString(ProjectParam, mcp.Required(), mcp.Description("Project identifier")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := request.RequireString(ProjectParam)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, err := s.engine.Project(ctx, projectID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(p.SCAD), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("prompt_scene",
		mcp.WithDescription("Let the modelling agent edit a project from a natural language instruction."),
		mcp.WithString(ProjectParam, mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("instruction", mcp.Required(), mcp.Description("What to build or change")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := request.RequireString(ProjectParam)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		instruction, err := request.RequireString("instruction")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := s.engine.Prompt(ctx, projectID, unibase.PromptRequest{Instruction: instruction})
		if err != nil {
			s.logger.Warn("MCP prompt failed", "project", projectID, "err", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"reasoning": res.Reasoning,
			"scad":      res.SCAD,
			"errors":    res.Errors,
		})
	})
}

func withProjectParam(params domain.Schema) json.RawMessage {
	props := make(map[string]*domain.Schema, len(params.Properties)+1)
	for k, v := range params.Properties {
		props[k] = v
	}
	props[ProjectParam] = &domain.Schema{Type: "string", Description: "Project identifier"}
	params.Properties = props
	params.Required = append([]string{ProjectParam}, params.Required...)
	params.AdditionalProperties = nil
	if params.Type == "" {
		params.Type = "object"
	}

	data, err := json.Marshal(params)
	if err != nil {
		// domain.Schema only holds strings, maps and slices.
		panic(err)
	}
	return data
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
