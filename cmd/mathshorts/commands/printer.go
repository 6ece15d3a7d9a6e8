package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

func disableColor() { color.NoColor = true }

func success(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ "+format+"\n", a...)
}

func warning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "! "+format+"\n", a...)
}

func detail(w io.Writer, label, value string) {
	cyan.Fprintf(w, "  %-10s", label)
	fmt.Fprintln(w, value)
}

// errorf prints a red title and the cause to stderr, and returns a short
// error for cobra, which is silenced
func errorf(cmd *cobra.Command, title string, err error) error {
	w := cmd.ErrOrStderr()
	red.Fprintln(w, title)
	fmt.Fprintf(w, "  %v\n", err)
	return fmt.Errorf("%s: %w", title, err)
}
