// Package export writes lead result sets to files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/law-makers/leadharvest/pkg/models"
)

// Columns is the fixed CSV header
var Columns = []string{"business_name", "website", "email", "email_source_page", "city", "category"}

// Format is an output format
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name or file extension
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Ext returns the file extension for f
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

func row(l models.Lead) []string {
	return []string{l.BusinessName, l.Website, l.Email, l.EmailSourcePage, l.City, l.Category}
}

// WriteCSV writes the header and one row per lead
func WriteCSV(w io.Writer, leads []models.Lead) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, l := range leads {
		if err := writer.Write(row(l)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes leads as an indented JSON array
func WriteJSON(w io.Writer, leads []models.Lead) error {
	if leads == nil {
		leads = []models.Lead{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(leads)
}

var mdEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

// WriteMarkdown writes leads as a Markdown table
func WriteMarkdown(w io.Writer, leads []models.Lead) error {
	var b strings.Builder
	b.WriteString("| " + strings.Join(Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(Columns)) + "\n")
	for _, l := range leads {
		cells := row(l)
		for i, c := range cells {
			cells[i] = mdEscaper.Replace(c)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Write writes leads to w in format f
func Write(w io.Writer, f Format, leads []models.Lead) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, leads)
	case FormatMarkdown:
		return WriteMarkdown(w, leads)
	default:
		return WriteCSV(w, leads)
	}
}

// Save writes leads to path, creating parent directories
func Save(path string, f Format, leads []models.Lead) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(file, f, leads); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
	if s == "" {
		return "all"
	}
	return s
}

// Filename names an export: leads-<keyword|all>-<location|all>-<unix>.<ext>
func Filename(filter models.ResultFilter, now time.Time, f Format) string {
	return fmt.Sprintf("leads-%s-%s-%d.%s", slug(filter.Keyword), slug(filter.Location), now.Unix(), f.Ext())
}
