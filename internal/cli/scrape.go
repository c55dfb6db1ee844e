package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/law-makers/leadharvest/internal/config"
	"github.com/law-makers/leadharvest/internal/export"
	"github.com/law-makers/leadharvest/internal/ui"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	scrapeMax         int
	scrapeWaitTimeout time.Duration
	scrapeShow        bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <keyword> <location>",
	Short: "Search the map for businesses and harvest their emails",
	Long: `Runs one search job in the foreground: finds businesses matching the keyword
in the location, visits each website and stores the emails found.

Businesses already stored with at least one email are skipped, so running the
same search again only picks up new listings.`,
	Example: `  # Up to 50 bakeries in Reno
  leadharvest scrape bakery Reno

  # Multi word arguments need quotes
  leadharvest scrape "coffee roaster" "Portland, OR" --max=20

  # Print the collected leads when done
  leadharvest scrape florist Boise --show`,
	Args: cobra.ExactArgs(2),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVarP(&scrapeMax, "max", "n", models.DefaultMaxResults, "Maximum businesses to collect (0 for no limit)")
	scrapeCmd.Flags().DurationVar(&scrapeWaitTimeout, "wait-timeout", config.DefaultWaitTimeout, "Give up waiting for the job after this long")
	scrapeCmd.Flags().BoolVar(&scrapeShow, "show", false, "Print the leads for this search when the job finishes")
}

func runScrape(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)

	req := models.JobRequest{Keyword: args[0], Location: args[1], MaxResults: scrapeMax}

	runCtx, stop := context.WithCancel(cmd.Context())
	defer stop()
	worker := make(chan error, 1)
	go func() { worker <- a.Scheduler.Run(runCtx) }()

	job, _, err := a.Scheduler.Submit(req)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", ui.Bold("Searching for "+req.Keyword+" in "+req.Location))
	fmt.Printf("%s\n\n", ui.Dim("Job "+job.ID()))

	bar := newJobBar(req.MaxResults)
	unsubscribe := a.Scheduler.Subscribe(func(st models.JobStatus) {
		if st.ID != job.ID() {
			return
		}
		updateJobBar(bar, st)
	})
	defer unsubscribe()

	var waitErr error
	select {
	case <-job.Done():
	case <-time.After(scrapeWaitTimeout):
		waitErr = fmt.Errorf("job %s did not finish within %s", job.ID(), scrapeWaitTimeout)
	case <-cmd.Context().Done():
		waitErr = cmd.Context().Err()
	}

	stop()
	<-worker
	_ = bar.Finish()
	fmt.Println()

	if waitErr != nil {
		return waitErr
	}

	st := job.Status()
	if st.State == models.JobFailed {
		return fmt.Errorf("job failed: %w", job.Err())
	}

	printJobSummary(st)

	leads, err := a.DB.Results(cmd.Context(), models.ResultFilter{Keyword: req.Keyword, Location: req.Location})
	if err != nil {
		return err
	}
	log.Debug().Int("leads", len(leads)).Msg("Stored leads for search")

	if scrapeShow {
		fmt.Println()
		return export.WriteMarkdown(os.Stdout, leads)
	}

	fmt.Printf("\n%d leads stored for this search. View them with:\n", len(leads))
	fmt.Printf("  %s\n\n", ui.ColorCyan+fmt.Sprintf("leadharvest results --keyword=%q --location=%q", req.Keyword, req.Location)+ui.ColorReset)
	return nil
}

// newJobBar tracks processed businesses. Without a limit the total is only
// known once discovery finishes.
func newJobBar(max int) *progressbar.ProgressBar {
	if max <= 0 {
		max = -1
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("discovering"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func updateJobBar(bar *progressbar.ProgressBar, st models.JobStatus) {
	switch st.State {
	case models.JobQueued:
		bar.Describe("queued")
	case models.JobRunning:
		if st.Stats.Discovered > 0 {
			bar.ChangeMax(st.Stats.Discovered)
			bar.Describe(fmt.Sprintf("harvesting (%d emails)", st.Stats.Emails))
		}
		_ = bar.Set(st.Stats.Processed)
	}
}

func printJobSummary(st models.JobStatus) {
	fmt.Printf("%s\n", ui.Success("Job finished"))
	fmt.Printf("  %s\n", ui.Label("Discovered", fmt.Sprint(st.Stats.Discovered)))
	fmt.Printf("  %s\n", ui.Label("Processed", fmt.Sprint(st.Stats.Processed)))
	fmt.Printf("  %s\n", ui.Label("Skipped", fmt.Sprint(st.Stats.Skipped)))
	fmt.Printf("  %s\n", ui.Label("Emails", fmt.Sprint(st.Stats.Emails)))
	if st.Stats.Errors > 0 {
		fmt.Printf("  %s\n", ui.Warn(fmt.Sprintf("Errors: %d", st.Stats.Errors)))
	}
	if st.StartedAt != nil && st.FinishedAt != nil {
		fmt.Printf("  %s\n", ui.Label("Took", st.FinishedAt.Sub(*st.StartedAt).Round(time.Second).String()))
	}
}
