package main

import (
	"fmt"
	"io"
	"os"
)

// Command feedback goes to msgOut (stderr) so stdout stays clean for piped
// output: sources --json, the export artifacts, and MCP stdio framing.
var msgOut io.Writer = os.Stderr

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(msgOut, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(msgOut, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(msgOut, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

// printStatus renders one "label: value" line of the status report.
func printStatus(label string, format string, args ...any) {
	l := colorize(colorBold, label+":")
	fmt.Fprintf(msgOut, "  %s %s\n", l, fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(msgOut, colorize(colorCyan, "→ "+fmt.Sprintf(format, args...)))
}
