// Package ui holds the ANSI styling used by the CLI's help and summaries.
package ui

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

func Bold(s string) string {
	return ColorBold + s + ColorReset
}

func Dim(s string) string {
	return ColorDim + s + ColorReset
}

func Success(s string) string {
	return ColorGreen + s + ColorReset
}

// Warn is used for confirmation prompts and non-fatal job errors
func Warn(s string) string {
	return ColorYellow + s + ColorReset
}

func Error(s string) string {
	return ColorRed + s + ColorReset
}

// Label renders "name:" in bold followed by a value
func Label(name, value string) string {
	return ColorBold + name + ":" + ColorReset + " " + value
}
