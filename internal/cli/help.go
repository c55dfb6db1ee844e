package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/law-makers/leadharvest/internal/ui"
	"github.com/spf13/cobra"
)

// customHelpFunc provides a colorized help output
func customHelpFunc(cmd *cobra.Command, args []string) {
	w := os.Stdout

	fmt.Fprintf(w, "\n%s\n", ui.Bold(ui.ColorCyan+strings.ToUpper(cmd.Name())))
	if cmd.Short != "" {
		fmt.Fprintln(w, cmd.Short)
	}
	if cmd.Long != "" && cmd.Long != cmd.Short {
		fmt.Fprintf(w, "\n%s\n", wrapText(cmd.Long, 80))
	}

	printUsageLines(w, cmd)

	if cmd.HasExample() {
		heading(w, "Examples")
		printExamples(w, cmd.Example)
	}

	printCommands(w, cmd)

	if cmd.HasAvailableLocalFlags() {
		heading(w, "Flags")
		printFlagsTo(w, cmd.LocalFlags().FlagUsages())
	}
	if cmd.HasAvailableInheritedFlags() {
		heading(w, "Global Flags")
		printFlagsTo(w, cmd.InheritedFlags().FlagUsages())
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\n%s\n", ui.Dim(fmt.Sprintf("Use \"%s <command> --help\" for more information about a command.", cmd.CommandPath())))
	}
	fmt.Fprintln(w)
}

// customUsageFunc is shown on argument errors, so it goes to stderr and
// leaves out the long description.
func customUsageFunc(cmd *cobra.Command) error {
	w := os.Stderr

	printUsageLines(w, cmd)
	printCommands(w, cmd)
	if cmd.HasAvailableLocalFlags() {
		heading(w, "Flags")
		printFlagsTo(w, cmd.LocalFlags().FlagUsages())
	}
	fmt.Fprintf(w, "\n%s\n", ui.Dim(fmt.Sprintf("Use \"%s --help\" for more information.", cmd.CommandPath())))
	return nil
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", ui.Bold(ui.ColorWhite+title))
}

func printUsageLines(w io.Writer, cmd *cobra.Command) {
	heading(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s%s %s<command>%s %s\n",
			ui.ColorCyan, cmd.CommandPath(), ui.ColorReset,
			ui.ColorYellow, ui.ColorReset,
			ui.Dim("[flags]"))
	}
}

// printExamples dims "#" comment lines and prefixes commands with "$"
func printExamples(w io.Writer, example string) {
	lastWasCommand := false
	for _, line := range strings.Split(example, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			if lastWasCommand {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "  %s\n", ui.Dim(trimmed))
			lastWasCommand = false
			continue
		}
		fmt.Fprintf(w, "  %s$ %s%s\n", ui.ColorGreen, strings.TrimPrefix(trimmed, "$ "), ui.ColorReset)
		lastWasCommand = true
	}
}

func printCommands(w io.Writer, cmd *cobra.Command) {
	if !cmd.HasAvailableSubCommands() {
		return
	}

	var available []*cobra.Command
	maxLen := 0
	for _, c := range cmd.Commands() {
		if !c.IsAvailableCommand() || c.Name() == "help" {
			continue
		}
		available = append(available, c)
		if len(c.Name()) > maxLen {
			maxLen = len(c.Name())
		}
	}

	heading(w, "Commands")
	for _, c := range available {
		padding := strings.Repeat(" ", maxLen-len(c.Name())+2)
		fmt.Fprintf(w, "  %s%s%s%s%s\n", ui.ColorCyan, c.Name(), ui.ColorReset, padding, ui.Dim(c.Short))
	}
}

// printFlagsTo aligns pflag's usage output into two colored columns
func printFlagsTo(w io.Writer, flagUsages string) {
	lines := strings.Split(flagUsages, "\n")

	width := 28
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if !strings.HasPrefix(trimmed, "-") {
			continue
		}
		flagPart, _, _ := strings.Cut(trimmed, "  ")
		if n := len(strings.TrimSpace(flagPart)); n > width {
			width = n
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		trimmed := strings.TrimLeft(line, " ")

		if !strings.HasPrefix(trimmed, "-") {
			// continuation of the previous description
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", width+4), ui.Dim(trimmed))
			continue
		}

		flagPart, desc, ok := strings.Cut(trimmed, "  ")
		if !ok {
			fmt.Fprintf(w, "  %s%s%s\n", ui.ColorGreen, trimmed, ui.ColorReset)
			continue
		}
		flagPart = strings.TrimSpace(flagPart)
		padding := strings.Repeat(" ", width-len(flagPart)+2)
		fmt.Fprintf(w, "  %s%s%s%s%s\n", ui.ColorGreen, flagPart, ui.ColorReset, padding, ui.Dim(strings.TrimSpace(desc)))
	}
}

// wrapText wraps text at width, keeping paragraphs and list items intact
func wrapText(text string, width int) string {
	var paragraphs []string

	for _, para := range strings.Split(text, "\n\n") {
		var lines []string

		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "*") {
				lines = append(lines, line)
				continue
			}

			var current strings.Builder
			for _, word := range strings.Fields(line) {
				switch {
				case current.Len() == 0:
					current.WriteString(word)
				case current.Len()+1+len(word) <= width:
					current.WriteString(" " + word)
				default:
					lines = append(lines, current.String())
					current.Reset()
					current.WriteString(word)
				}
			}
			if current.Len() > 0 {
				lines = append(lines, current.String())
			}
		}

		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}

	return strings.Join(paragraphs, "\n\n")
}
