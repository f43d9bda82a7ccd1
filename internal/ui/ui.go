// Package ui renders CLI output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	accent = lipgloss.Color("#00D9FF")
	subtle = lipgloss.Color("#6C757D")

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF88")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB800")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(accent)

	muted = color.New(color.FgHiBlack)
)

// MaxCellWidth truncates long cells in tables.
const MaxCellWidth = 40

func terminalWidth() int {
	if w := pterm.GetTerminalWidth(); w > 0 {
		return w
	}
	return 80
}

func line(w io.Writer, style lipgloss.Style, mark, format string, args []any) {
	fmt.Fprintln(w, style.Render(mark+" "+fmt.Sprintf(format, args...)))
}

// PrintHeader prints the server banner: name on top, build info below.
func PrintHeader(title, subtitle string) {
	fmt.Println(lipgloss.NewStyle().
		Width(terminalWidth()).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Center,
			lipgloss.NewStyle().Foreground(accent).Bold(true).Render(title),
			lipgloss.NewStyle().Foreground(subtle).Render(subtitle),
		)))
	fmt.Println()
}

func PrintSuccess(format string, args ...any) { line(os.Stdout, successStyle, "✓", format, args) }

// PrintError writes to stderr.
func PrintError(format string, args ...any) { line(os.Stderr, errorStyle, "✗", format, args) }

func PrintWarning(format string, args ...any) { line(os.Stdout, warningStyle, "⚠", format, args) }

func PrintInfo(format string, args ...any) { line(os.Stdout, infoStyle, "ℹ", format, args) }

// PrintMuted prints low-priority progress, such as skipped files.
func PrintMuted(format string, args ...any) {
	muted.Printf(format, args...)
}

// PrintSection prints an underlined section title.
func PrintSection(title string) {
	fmt.Println(lipgloss.NewStyle().
		Width(terminalWidth()).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(subtle).
		Render(title))
}

// RenderTable renders rows under a header, truncating wide cells.
func RenderTable(headers []string, rows [][]string) (string, error) {
	data := pterm.TableData{headers}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = Truncate(c, MaxCellWidth)
		}
		data = append(data, cells)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
// Newlines are flattened so cells stay on one line.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// RenderMarkdown renders an explain document for the terminal.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(terminalWidth()),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

// PrintProgressBar starts a progress bar over total ingest files.
func PrintProgressBar(title string, total int) (*pterm.ProgressbarPrinter, error) {
	return pterm.DefaultProgressbar.WithTotal(total).WithTitle(title).Start()
}

// PrintSpinner starts a spinner; callers stop it when the query returns.
func PrintSpinner(message string) (*pterm.SpinnerPrinter, error) {
	return pterm.DefaultSpinner.WithText(message).Start()
}
