package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/law-makers/leadharvest/internal/api"
	"github.com/law-makers/leadharvest/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job queue and the HTTP API",
	Long: `Starts the scrape worker and an HTTP API for submitting jobs, reading
results and exporting them. Jobs are processed one at a time in the order
they were submitted.`,
	Example: `  # Listen on the default port
  leadharvest serve

  # Listen on another address and allow a browser front end
  leadharvest serve --listen=127.0.0.1:8080

  # Submit a job
  curl -X POST localhost:3001/api/scrape -d '{"keyword":"bakery","location":"Reno"}'`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", config.DefaultListen, "Address the HTTP API listens on")
}

func runServe(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)
	cfg := a.Config

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: api.NewRouter(a.Scheduler, a.DB, api.Options{
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		err := a.Scheduler.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.Listen).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
