package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AnatoleLucet/fiber/internal/scenario"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a scenario failed or did not validate
	ExitCommandError = 2 // bad flags, unreadable config
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that are not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa"))
	opStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	markupStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
)

// formatter prints traces, styled only when writing to a terminal.
type formatter struct {
	w      io.Writer
	styled bool
}

func newFormatter(w io.Writer, color string) *formatter {
	styled := false
	switch color {
	case "always":
		styled = true
	case "auto":
		if f, ok := w.(*os.File); ok {
			styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return &formatter{w: w, styled: styled}
}

func (f *formatter) render(style lipgloss.Style, s string) string {
	if !f.styled {
		return s
	}
	return style.Render(s)
}

// trace prints the result in the golden file format.
func (f *formatter) trace(result *scenario.Result) {
	if !f.styled {
		fmt.Fprint(f.w, result.String())
		return
	}

	for _, line := range strings.Split(strings.TrimSuffix(result.String(), "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "scenario "):
			line = f.render(titleStyle, line)
		case strings.HasPrefix(line, "step "):
			line = f.render(stepStyle, line)
		case strings.HasPrefix(trimmed, "error: "):
			line = "  " + f.render(errorStyle, trimmed)
		case strings.HasPrefix(trimmed, "markup: "), trimmed == "pending":
			line = "  " + f.render(markupStyle, trimmed)
		case trimmed != "":
			line = "  " + f.render(opStyle, trimmed)
		}
		fmt.Fprintln(f.w, line)
	}
}

func (f *formatter) ok(format string, args ...any) {
	fmt.Fprintln(f.w, f.render(okStyle, "✓ "+fmt.Sprintf(format, args...)))
}

func (f *formatter) fail(format string, args ...any) {
	fmt.Fprintln(f.w, f.render(errorStyle, "✗ "+fmt.Sprintf(format, args...)))
}
