package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestWrapText(t *testing.T) {
	in := "one two three four five six\n\n- keep this bullet as it is even if long"
	got := wrapText(in, 10)
	want := "one two\nthree four\nfive six\n\n- keep this bullet as it is even if long"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestPrintExamples(t *testing.T) {
	var buf bytes.Buffer
	printExamples(&buf, "  # first\n  leadharvest scrape bakery Reno\n\n  # second\n  $ leadharvest results")

	out := buf.String()
	if strings.Count(out, "$ leadharvest") != 2 {
		t.Errorf("Expected both commands prefixed once with $, got %q", out)
	}
	if strings.Contains(out, "$ $") {
		t.Errorf("Expected existing $ prefix not to be doubled, got %q", out)
	}
}

func TestPrintFlagsAligns(t *testing.T) {
	var buf bytes.Buffer
	printFlagsTo(&buf, "  -n, --max int   Maximum businesses\n      --show      Print leads\n")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	first := strings.Index(lines[0], "Maximum")
	second := strings.Index(lines[1], "Print")
	if first != second {
		t.Errorf("Expected descriptions aligned, got columns %d and %d", first, second)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "scrape", "results", "export", "reset", "session"}
	for _, name := range want {
		c, _, err := rootCmd.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("Expected command %s to be registered", name)
		}
	}

	sub := map[string]bool{}
	for _, c := range sessionCmd.Commands() {
		sub[c.Name()] = true
	}
	for _, name := range []string{"login", "import", "list", "delete"} {
		if !sub[name] {
			t.Errorf("Expected session %s subcommand", name)
		}
	}
}
