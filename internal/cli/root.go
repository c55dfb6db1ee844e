package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/leadharvest/internal/app"
	"github.com/law-makers/leadharvest/internal/config"
	"github.com/law-makers/leadharvest/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "leadharvest",
	Short: "Find local businesses on the map and collect their contact emails",
	Long: `Leadharvest searches the map service for businesses matching a keyword in a
location, visits each business website and stores the email addresses it
publishes. Results are kept in a local SQLite database and can be exported
as CSV, JSON or Markdown.

Run "leadharvest serve" to expose the job queue over HTTP, or
"leadharvest scrape" to run a single search from the terminal.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it with ctx.
// It is called by main.main() and only needs to happen once.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("Interrupted")
		} else {
			fmt.Fprintln(os.Stderr, ui.Error("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}

func init() {
	// Lazily initialize the application before running commands (avoid starting app for -h/help)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetAppFromCmd(cmd) != nil {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(cmd, a)

		// Finalizers run even when the command fails
		cobra.OnFinalize(func() {
			ctx, cancel := context.WithTimeout(context.Background(), a.Config.HTTPTimeout)
			defer cancel()
			if err := a.Close(ctx); err != nil {
				log.Warn().Err(err).Msg("Error during shutdown")
			}
		})
		return nil
	}

	config.RegisterFlags(rootCmd)

	// Customize help and version flag descriptions
	rootCmd.Flags().BoolP("help", "h", false, "Help for leadharvest")
	rootCmd.Flags().Bool("version", false, "Version for leadharvest")
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpFunc(customHelpFunc)
	rootCmd.SetUsageFunc(customUsageFunc)
}
