// Package ui holds the terminal styling shared by the CLI commands.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent  = lipgloss.Color("#7C6FE8")
	colorSuccess = lipgloss.Color("#2CD7A7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#6B7280")
)

// Styles is the shared style set.
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
}

// Plain disables styled output; set by the --plain flag or NO_COLOR.
var Plain = os.Getenv("NO_COLOR") != ""

// Title prints a styled section heading.
func Title(text string) {
	if Plain {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success line with a checkmark.
func Success(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if Plain {
		fmt.Printf("OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Success.Render("✓"), text)
}

// Warning prints a warning line.
func Warning(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if Plain {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Warning.Render("⚠"), Styles.Warning.Render(text))
}

// Error prints an error line to stderr.
func Error(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if Plain {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", Styles.Error.Render("✗"), Styles.Error.Render(text))
}

// Info prints a plain informational line.
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// Muted prints secondary text.
func Muted(text string) {
	if Plain {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}
