// Package ui renders command output for a terminal.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
 ██╗     ███████╗ █████╗ ██████╗ ███████╗ ██████╗ ██████╗ ██╗   ██╗████████╗
 ██║     ██╔════╝██╔══██╗██╔══██╗██╔════╝██╔════╝██╔═══██╗██║   ██║╚══██╔══╝
 ██║     █████╗  ███████║██║  ██║███████╗██║     ██║   ██║██║   ██║   ██║
 ██║     ██╔══╝  ██╔══██║██║  ██║╚════██║██║     ██║   ██║██║   ██║   ██║
 ███████╗███████╗██║  ██║██████╔╝███████║╚██████╗╚██████╔╝╚██████╔╝   ██║
 ╚══════╝╚══════╝╚═╝  ╚═╝╚═════╝ ╚══════╝ ╚═════╝ ╚═════╝  ╚═════╝    ╚═╝
                 subreddit lead finder and outreach notifier
`

var (
	cyan    = lipgloss.Color("#00FFFF")
	magenta = lipgloss.Color("#FF00FF")
	green   = lipgloss.Color("#39FF14")
	yellow  = lipgloss.Color("#FFFF00")
	red     = lipgloss.Color("#FF3131")
	dim     = lipgloss.Color("#808080")

	logoStyle      = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	valueStyle     = lipgloss.NewStyle().Foreground(yellow)
	successStyle   = lipgloss.NewStyle().Foreground(green).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(red).Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(yellow)
	highlightStyle = lipgloss.NewStyle().Foreground(magenta).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(dim)
)

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

func PrintLogo() {
	fmt.Fprint(Output, logoStyle.Render(logo), "\n")
}

// PrintError prints msg in red, followed by the first detail if any
func PrintError(msg string, details ...interface{}) {
	fmt.Fprintln(Output, errorStyle.Render(withDetail(msg, details)))
}

func PrintSuccess(msg string) {
	fmt.Fprintln(Output, successStyle.Render(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label, value string) {
	fmt.Fprintf(Output, "%s: %s\n", labelStyle.Render(label), valueStyle.Render(value))
}

func PrintWarning(msg string, details ...interface{}) {
	fmt.Fprintln(Output, warningStyle.Render(withDetail(msg, details)))
}

func PrintHighlight(msg string) {
	fmt.Fprintln(Output, highlightStyle.Render(msg))
}

func PrintDim(msg string) {
	fmt.Fprintln(Output, dimStyle.Render(msg))
}

func withDetail(msg string, details []interface{}) string {
	if len(details) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, details[0])
}
