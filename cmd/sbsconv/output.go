package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sbsconv/internal/preflight"
)

// checkNameWidth pads preflight names so verdicts line up.
const checkNameWidth = 18

// writeJSON prints v to stdout as indented JSON for --json flags.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderCheckLine formats one preflight result as
// "  converter:         [OK] /usr/bin/sbsconvert". Failures are red and
// passes green when colorize is set.
func renderCheckLine(r preflight.Result, colorize bool) string {
	verdict, color := "[OK]", text.FgGreen
	if !r.Passed {
		verdict, color = "[ERROR]", text.FgRed
	}
	line := fmt.Sprintf("  %-*s %s", checkNameWidth, r.Name+":", verdict)
	if r.Detail != "" {
		line += " " + r.Detail
	}
	if colorize {
		return color.Sprint(line)
	}
	return line
}

// isTerminal reports whether w is an interactive terminal. Progress
// redraws and colors are only used when it is.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
