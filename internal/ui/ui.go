package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/linepatch/internal/patcher"
)

var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("80"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	PathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
)

// Output receives all styled diagnostics. Plain results go to the writer
// passed to PrintResult.
var Output io.Writer = os.Stderr

func printStyled(style lipgloss.Style, format string, a ...interface{}) {
	fmt.Fprintln(Output, style.Render(fmt.Sprintf(format, a...)))
}

func Header(format string, a ...interface{}) {
	printStyled(HeaderStyle, format, a...)
}

func Info(format string, a ...interface{}) {
	printStyled(InfoStyle, format, a...)
}

func Success(format string, a ...interface{}) {
	printStyled(SuccessStyle, format, a...)
}

func Warning(format string, a ...interface{}) {
	printStyled(WarningStyle, format, a...)
}

func Error(format string, a ...interface{}) {
	printStyled(ErrorStyle, format, a...)
}

func Path(format string, a ...interface{}) {
	printStyled(PathStyle, "  "+format, a...)
}

// PrintResult writes the before/after report for one line patch.
// lineNumber is 1-based.
func PrintResult(w io.Writer, lineNumber int, res patcher.Result) {
	if res.Reason != patcher.ReasonOutOfRange {
		fmt.Fprintf(w, "Line %d before: '%s'\n", lineNumber, res.OldLine)
	}
	if res.Changed {
		fmt.Fprintf(w, "Line %d after: '%s'\n", lineNumber, res.NewLine)
		return
	}
	fmt.Fprintf(w, "No change needed for line %d\n", lineNumber)
	Warning("  -> line %d: %s", lineNumber, res.Reason)
}

// PrintDone marks the end of a run.
func PrintDone(w io.Writer) {
	fmt.Fprintln(w, "Done!")
}

// --- Summaries ---

func PrintSummary(patched, unchanged, failed []string) {
	Header("\n--- Patch Summary ---")

	if len(patched) == 0 && len(unchanged) == 0 && len(failed) == 0 {
		Info("No files were touched.")
		return
	}
	if len(patched) > 0 {
		Success("Patched %d file(s):", len(patched))
		for _, f := range patched {
			Path("- %s", f)
		}
	}
	if len(unchanged) > 0 {
		Info("Left %d file(s) unchanged:", len(unchanged))
		for _, f := range unchanged {
			Path("- %s", f)
		}
	}
	if len(failed) > 0 {
		Error("Failed to process %d file(s):", len(failed))
		for _, f := range failed {
			Path("- %s", f)
		}
	}
}
