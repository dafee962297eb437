package tui

import (
	"fmt"
	"strings"

	"github.com/river-berlin/unibase"
)

// FormatResult renders a run as markdown: the model's reasoning, the tool
// calls it made, any errors, and the resulting SCAD.
func FormatResult(res *unibase.Result) string {
	var b strings.Builder

	if reasoning := strings.TrimSpace(res.Reasoning); reasoning != "" {
		b.WriteString("## Reasoning\n\n")
		b.WriteString(reasoning)
		b.WriteString("\n\n")
	}

	if len(res.ToolCalls) > 0 {
		fmt.Fprintf(&b, "## Tool calls (%d iterations)\n\n", res.Iterations)
		for _, c := range res.ToolCalls {
			if c.Failed() {
				fmt.Fprintf(&b, "- `%s` failed: %s\n", c.Name, c.Error)
				continue
			}
			fmt.Fprintf(&b, "- `%s`: %v\n", c.Name, c.Result)
		}
		b.WriteString("\n")
	}

	if res.HasErrors() {
		b.WriteString("## Errors\n\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Scene\n\n```openscad\n")
	if res.SCAD == "" {
		b.WriteString("// empty\n")
	} else {
		b.WriteString(res.SCAD)
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	return b.String()
}
