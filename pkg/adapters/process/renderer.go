package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/river-berlin/unibase/internal/logging"
)

// EmptyMesh is returned for blank input.
const EmptyMesh = "solid empty\nendsolid empty"

// ErrEmptyOutput is returned when the converter exits cleanly but writes nothing.
var ErrEmptyOutput = errors.New("converter produced an empty mesh")

// RenderError wraps a converter failure together with its stderr.
type RenderError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *RenderError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Command, e.Err, stderr)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer implements ports.MeshRenderer by running an external converter
// (OpenSCAD by default) on temporary files.
type Renderer struct {
	cfg    RendererConfig
	logger *slog.Logger
}

// RendererOption configures the renderer.
type RendererOption func(*Renderer)

// WithConfig replaces the whole converter configuration.
func WithConfig(cfg RendererConfig) RendererOption {
	return func(r *Renderer) {
		r.cfg = cfg
	}
}

// WithCommand sets the converter executable and its argument template.
func WithCommand(command string, args ...string) RendererOption {
	return func(r *Renderer) {
		r.cfg.Command = command
		r.cfg.Args = args
	}
}

// WithTempDir sets where the temporary .scad and .stl files are created.
func WithTempDir(dir string) RendererOption {
	return func(r *Renderer) {
		r.cfg.TempDir = dir
	}
}

// WithTimeout bounds a single conversion. Zero disables the deadline.
func WithTimeout(d time.Duration) RendererOption {
	return func(r *Renderer) {
		r.cfg.Timeout = d
	}
}

// WithLogger sets the logger used for cleanup diagnostics.
func WithLogger(logger *slog.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// NewRenderer creates a renderer using DefaultRendererConfig unless overridden.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		cfg:    DefaultRendererConfig(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render converts scad into ASCII STL. Both temporary files are removed on
// every exit path.
func (r *Renderer) Render(ctx context.Context, scad string) (string, error) {
	if strings.TrimSpace(scad) == "" {
		return EmptyMesh, nil
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	files, err := newTempPair(r.cfg.TempDir)
	if err != nil {
		return "", err
	}
	defer files.remove(r.logger)

	if err := os.WriteFile(files.input, []byte(scad), 0o600); err != nil {
		return "", fmt.Errorf("failed to write scad input: %w", err)
	}

	if err := r.run(ctx, files); err != nil {
		return "", err
	}

	out, err := os.ReadFile(files.output)
	if err != nil {
		return "", fmt.Errorf("failed to read mesh output: %w", err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return "", ErrEmptyOutput
	}
	return string(out), nil
}

func (r *Renderer) run(ctx context.Context, files *tempPair) error {
	args := make([]string, len(r.cfg.Args))
	for i, a := range r.cfg.Args {
		a = strings.ReplaceAll(a, InputPlaceholder, files.input)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, files.output)
	}

	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	cmd.WaitDelay = time.Second
	env := make([]string, 0, len(r.cfg.Environment))
	for k, v := range r.cfg.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return &RenderError{Command: r.cfg.Command, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// tempPair is a uniquely named .scad input and .stl output.
type tempPair struct {
	input  string
	output string
}

func newTempPair(dir string) (*tempPair, error) {
	in, err := os.CreateTemp(dir, "unibase-*.scad")
	if err != nil {
		return nil, fmt.Errorf("failed to create scad temp file: %w", err)
	}
	_ = in.Close()

	out, err := os.CreateTemp(dir, "unibase-*.stl")
	if err != nil {
		_ = os.Remove(in.Name())
		return nil, fmt.Errorf("failed to create stl temp file: %w", err)
	}
	_ = out.Close()

	return &tempPair{input: in.Name(), output: out.Name()}, nil
}

// remove deletes both files. Failures are logged and otherwise ignored so
// they never mask the conversion result.
func (p *tempPair) remove(logger *slog.Logger) {
	for _, path := range []string{p.input, p.output} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Debug("Failed to remove temp file", "path", path, "error", err)
		}
	}
}
