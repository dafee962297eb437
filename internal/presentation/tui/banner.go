package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"              _ _                    ", "#38bdf8"},
	{"  _   _ _ __ (_) |__   __ _ ___  ___ ", "#22d3ee"},
	{" | | | | '_ \\| | '_ \\ / _` / __|/ _ \\", "#2dd4bf"},
	{" | |_| | | | | | |_) | (_| \\__ \\  __/", "#34d399"},
	{"  \\__,_|_| |_|_|_.__/ \\__,_|___/\\___|", "#4ade80"},
}

// PrintBanner writes the unibase banner to w, colored when the terminal
// supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
