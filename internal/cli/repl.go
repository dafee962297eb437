package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/river-berlin/unibase"
	"github.com/river-berlin/unibase/internal/presentation/tui"
	"github.com/river-berlin/unibase/pkg/domain"
)

// Prompter is the part of the engine the interactive loop drives.
type Prompter interface {
	Prompt(ctx context.Context, projectID string, req unibase.PromptRequest) (*unibase.Result, error)
}

// Session runs prompts against one project and prints each result.
type Session struct {
	Engine    Prompter
	ProjectID string
	Out       io.Writer
	Render    func(string) (string, error)
}

// NewSession returns a Session that renders markdown for out.
func NewSession(engine Prompter, projectID string, out io.Writer) *Session {
	return &Session{
		Engine:    engine,
		ProjectID: projectID,
		Out:       out,
		Render:    tui.NewRenderer(out),
	}
}

// Once runs a single instruction.
func (s *Session) Once(ctx context.Context, instruction string) (*unibase.Result, error) {
	res, err := s.Engine.Prompt(ctx, s.ProjectID, unibase.PromptRequest{Instruction: instruction})
	if err != nil {
		return nil, err
	}
	s.print(res)
	return res, nil
}

// Loop reads one instruction per line from in until EOF, "exit" or ctx ends.
// Rejected instructions are reported and the loop continues; model failures
// end it.
func (s *Session) Loop(ctx context.Context, in io.Reader) error {
	lines := bufio.NewScanner(in)
	lines.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Fprint(s.Out, "> ")
		if !lines.Scan() {
			fmt.Fprintln(s.Out)
			return lines.Err()
		}
		text := strings.TrimSpace(lines.Text())
		switch text {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		_, err := s.Once(ctx, text)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrEmptyInstruction),
			errors.Is(err, domain.ErrInstructionTooLarge),
			errors.Is(err, domain.ErrInvalidUTF8):
			fmt.Fprintln(s.Out, tui.StatusLine(s.Out, tui.StatusWarn, err.Error()))
		default:
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Session) print(res *unibase.Result) {
	out, err := s.Render(tui.FormatResult(res))
	if err != nil {
		out = tui.FormatResult(res)
	}
	fmt.Fprintln(s.Out, out)
}
