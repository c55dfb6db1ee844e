// Package harvest crawls a business website's likely contact pages and
// collects the email addresses it publishes.
package harvest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/law-makers/leadharvest/internal/render"
	"github.com/law-makers/leadharvest/internal/retry"
	urlutil "github.com/law-makers/leadharvest/internal/utils/url"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultPaths are visited in order. "" is the website URL as given.
var DefaultPaths = []string{
	"",
	"/contact",
	"/about",
	"/about-us",
	"/impressum",
	"/legal",
	"/imprint",
	"/kontakt",
}

// Options tunes a Harvester
type Options struct {
	Paths       []string
	PageTimeout time.Duration
	PageDelay   time.Duration
	// Retry applies to throttled responses (429, 503) only
	Retry retry.Config
}

// DefaultOptions returns the standard path list with a 10s page budget and
// a 1s pause between pages.
func DefaultOptions() Options {
	return Options{
		Paths:       DefaultPaths,
		PageTimeout: 10 * time.Second,
		PageDelay:   time.Second,
		Retry: retry.Config{
			MaxAttempts:    2,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     5 * time.Second,
			Multiplier:     2,
			Retryable:      throttled,
		},
	}
}

func throttled(err error) bool {
	var he retry.HTTPError
	if !errors.As(err, &he) {
		return false
	}
	return he.StatusCode == http.StatusTooManyRequests || he.StatusCode == http.StatusServiceUnavailable
}

// Harvester collects emails from one website at a time
type Harvester struct {
	renderer render.Renderer
	opts     Options
}

// New creates a Harvester. Zero option fields take their defaults.
func New(r render.Renderer, opts Options) *Harvester {
	def := DefaultOptions()
	if len(opts.Paths) == 0 {
		opts.Paths = def.Paths
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = def.PageTimeout
	}
	if opts.PageDelay < 0 {
		opts.PageDelay = 0
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = def.Retry
	}
	return &Harvester{renderer: r, opts: opts}
}

// Harvest visits the candidate pages of website and returns the accepted
// addresses, each tagged with website as its source page. It never fails:
// unreachable pages are skipped and an unusable website yields nothing.
func (h *Harvester) Harvest(ctx context.Context, website string) []models.Email {
	if err := urlutil.ValidateURL(website); err != nil {
		log.Debug().Str("website", website).Err(err).Msg("Skipping harvest for invalid website")
		return []models.Email{}
	}

	session, err := h.renderer.NewSession(ctx)
	if err != nil {
		log.Warn().Err(err).Str("website", website).Msg("Could not open rendering session")
		return []models.Email{}
	}
	defer session.Close()

	found := candidates{}
	visited := 0
	for _, path := range h.opts.Paths {
		if ctx.Err() != nil {
			break
		}

		pageURL := urlutil.ResolveURL(website, path)
		page, err := h.load(ctx, session, pageURL)
		if errors.Is(err, render.ErrSessionUnavailable) {
			log.Warn().Err(err).Str("website", website).Msg("Could not open rendering session")
			break
		}
		if err != nil {
			log.Debug().Err(err).Str("url", pageURL).Msg("Page skipped")
			continue
		}
		if page.StatusCode >= 400 {
			log.Debug().Int("status", page.StatusCode).Str("url", pageURL).Msg("Page skipped")
			continue
		}

		visited++
		collect(page.HTML, found)

		if !retry.Sleep(ctx, h.opts.PageDelay) {
			break
		}
	}

	emails := make([]models.Email, 0, len(found))
	for _, addr := range found.sorted() {
		if !Accept(addr) {
			continue
		}
		emails = append(emails, models.Email{Email: addr, SourcePage: website})
	}

	log.Debug().
		Str("website", website).
		Int("pages", visited).
		Int("candidates", len(found)).
		Int("accepted", len(emails)).
		Msg("Harvest finished")

	return emails
}

func (h *Harvester) load(ctx context.Context, s render.Session, pageURL string) (*models.PageData, error) {
	var page *models.PageData
	err := retry.WithRetry(ctx, h.opts.Retry, func() error {
		pageCtx, cancel := context.WithTimeout(ctx, h.opts.PageTimeout)
		defer cancel()

		p, err := s.Load(pageCtx, pageURL)
		if err != nil {
			return err
		}
		page = p
		if p.StatusCode == http.StatusTooManyRequests || p.StatusCode == http.StatusServiceUnavailable {
			return retry.NewHTTPError(p.StatusCode, http.StatusText(p.StatusCode), pageURL)
		}
		return nil
	})
	// a page that stayed throttled is returned as is and skipped by status
	if err != nil && page == nil {
		return nil, err
	}
	return page, nil
}
