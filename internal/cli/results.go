package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/law-makers/leadharvest/internal/export"
	"github.com/law-makers/leadharvest/internal/ui"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	filterKeyword  string
	filterLocation string
	resultsFormat  string
	exportFormat   string
	exportOutput   string
	resetYes       bool
)

// resultsCmd represents the results command
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print stored leads",
	Long: `Prints one row per business and email pair. Businesses without a harvested
email are not listed.`,
	Example: `  # Everything as a Markdown table
  leadharvest results

  # Only one search, as JSON
  leadharvest results --keyword=bakery --location=Reno --format=json`,
	Args: cobra.NoArgs,
	RunE: runResults,
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored leads to a file",
	Long: `Writes the stored leads to a file. Without --output the file is created in
<data-dir>/exports and named after the filter and the current time.`,
	Example: `  # CSV of every lead
  leadharvest export

  # One search to a chosen file
  leadharvest export --keyword=bakery --location=Reno -o reno-bakeries.csv

  # JSON instead of CSV
  leadharvest export --format=json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored businesses and emails",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(resetCmd)

	for _, c := range []*cobra.Command{resultsCmd, exportCmd} {
		c.Flags().StringVarP(&filterKeyword, "keyword", "k", "", "Only leads found with this keyword")
		c.Flags().StringVarP(&filterLocation, "location", "l", "", "Only leads found in this location")
	}
	resultsCmd.Flags().StringVarP(&resultsFormat, "format", "f", string(export.FormatMarkdown), "Output format: csv, json or markdown")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatCSV), "File format: csv, json or markdown")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "File to write (default <data-dir>/exports/<generated name>)")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
}

func currentFilter() models.ResultFilter {
	return models.ResultFilter{
		Keyword:  strings.TrimSpace(filterKeyword),
		Location: strings.TrimSpace(filterLocation),
	}
}

func runResults(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)

	format, err := export.ParseFormat(resultsFormat)
	if err != nil {
		return err
	}

	leads, err := a.DB.Results(cmd.Context(), currentFilter())
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}

	if len(leads) == 0 && format == export.FormatMarkdown {
		fmt.Println("\nNo leads stored yet.")
		fmt.Println("\nCollect some with:")
		fmt.Println("  leadharvest scrape <keyword> <location>")
		fmt.Println()
		return nil
	}

	return export.Write(os.Stdout, format, leads)
}

func runExport(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	filter := currentFilter()
	leads, err := a.DB.Results(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}

	path := exportOutput
	if path == "" {
		path = filepath.Join(a.Config.DataDir, "exports", export.Filename(filter, time.Now(), format))
	}

	if err := export.Save(path, format, leads); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("rows", len(leads)).Msg("Export written")

	fmt.Println(ui.Success(fmt.Sprintf("✓ %d leads written to %s", len(leads), path)))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)

	businesses, emails, err := a.DB.Counts(cmd.Context())
	if err != nil {
		return err
	}

	if !resetYes {
		fmt.Print(ui.Warn(fmt.Sprintf("\nDelete %d businesses and %d emails? [y/N]: ", businesses, emails)))
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := a.DB.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reset results: %w", err)
	}

	fmt.Printf("\n✓ Deleted %d businesses and %d emails.\n\n", businesses, emails)
	return nil
}
