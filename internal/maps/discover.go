package maps

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/law-makers/leadharvest/internal/errs"
	"github.com/law-makers/leadharvest/internal/retry"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultSearchBase is the search endpoint of the map service
const DefaultSearchBase = "https://www.google.com/maps/search/"

// ListSignals are tried in order while waiting for the result list to render
var ListSignals = []string{
	`[role="article"]`,
	`[role="feed"]`,
	`.Nv2PK`,
	placeLink,
	`[jsaction*="mouseover"]`,
	`.m6QErb`,
	`[data-value="Directions"]`,
}

// Options configures a Discoverer
type Options struct {
	SearchBase    string
	InitialWait   time.Duration
	SignalTimeout time.Duration
	// RetryWait is the extra wait before the last extraction attempt, and
	// after no list signal showed up.
	RetryWait time.Duration
	Retry     retry.Config
	Scroll    ScrollOptions
	Extract   ExtractOptions
}

// DefaultOptions returns the values used against the live service
func DefaultOptions() Options {
	return Options{
		SearchBase:    DefaultSearchBase,
		InitialWait:   5 * time.Second,
		SignalTimeout: 8 * time.Second,
		RetryWait:     5 * time.Second,
		Retry:         retry.NavigationConfig(),
		Scroll:        DefaultScrollOptions(),
		Extract:       DefaultExtractOptions(),
	}
}

// Discoverer runs searches on the map service
type Discoverer struct {
	browser   Browser
	extractor *Extractor
	opts      Options
}

// NewDiscoverer creates a Discoverer that opens views through b
func NewDiscoverer(b Browser, opts Options) *Discoverer {
	if opts.SearchBase == "" {
		opts.SearchBase = DefaultSearchBase
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.NavigationConfig()
	}
	return &Discoverer{
		browser:   b,
		extractor: NewExtractor(opts.Extract),
		opts:      opts,
	}
}

// SearchURL builds the search URL for a keyword and location
func SearchURL(base, keyword, location string) string {
	query := strings.TrimSpace(strings.TrimSpace(keyword) + " " + strings.TrimSpace(location))
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + url.PathEscape(query)
}

// IsBlocked reports whether a loaded page is a challenge, consent login or
// rate-limit page instead of search results.
func IsBlocked(location, title string) bool {
	loc := strings.ToLower(location)
	for _, marker := range []string{"/sorry/", "sorry/index", "accounts.google.com", "/challenge"} {
		if strings.Contains(loc, marker) {
			return true
		}
	}
	return strings.Contains(title, "Sorry") || strings.Contains(strings.ToLower(title), "captcha")
}

// Discover searches for keyword in location and returns up to maxResults
// listings (no limit when 0). An empty result is not an error; a challenge
// page fails with a BLOCKED error.
func (d *Discoverer) Discover(ctx context.Context, keyword, location string, maxResults int) ([]models.Business, error) {
	searchURL := SearchURL(d.opts.SearchBase, keyword, location)
	logger := log.With().Str("keyword", keyword).Str("location", location).Logger()
	logger.Info().Str("url", searchURL).Msg("Searching map service")

	var (
		view    View
		release func()
	)
	err := retry.WithRetry(ctx, d.opts.Retry, func() error {
		v, rel, err := d.browser.Open(ctx, searchURL)
		if err != nil {
			return err
		}
		view, release = v, rel
		return nil
	})
	if err != nil {
		if _, coded := errs.CodeOf(err); coded {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load search page: %w", err)
	}
	defer release()

	if !retry.Sleep(ctx, d.opts.InitialWait) {
		return nil, ctx.Err()
	}

	loc, _ := view.Location(ctx)
	title, _ := view.Title(ctx)
	logger.Debug().Str("title", title).Str("location_url", loc).Msg("Search page loaded")
	if IsBlocked(loc, title) {
		logger.Error().Str("url", loc).Msg("Map service is blocking automated access")
		return nil, errs.Blocked(loc)
	}

	found := d.waitForList(ctx, view)
	if !found {
		logger.Warn().Msg("No result list signal, extracting anyway")
		if !retry.Sleep(ctx, d.opts.RetryWait) {
			return nil, ctx.Err()
		}
	}

	if maxResults > 0 && found {
		if sel, _ := ItemSelector(ctx, view, PrimaryProfile); sel != "" {
			Expand(ctx, view, sel, maxResults, d.opts.Scroll)
		}
	}

	results := d.extractor.Run(ctx, view, PrimaryProfile, maxResults)
	if len(results) == 0 && ctx.Err() == nil {
		logger.Info().Msg("Primary extraction found nothing, trying alternate")
		results = d.extractor.Run(ctx, view, AlternateProfile, maxResults)
	}
	if len(results) == 0 && ctx.Err() == nil {
		logger.Info().Msg("Alternate extraction found nothing, waiting and retrying")
		if retry.Sleep(ctx, d.opts.RetryWait) {
			results = d.extractor.Run(ctx, view, PrimaryProfile, maxResults)
		}
	}
	if err := ctx.Err(); err != nil && len(results) == 0 {
		return nil, err
	}

	logger.Info().Int("count", len(results)).Msg("Discovery finished")
	return results, nil
}

func (d *Discoverer) waitForList(ctx context.Context, v View) bool {
	for _, sel := range ListSignals {
		if !v.WaitFor(ctx, sel, d.opts.SignalTimeout) {
			continue
		}
		if n, err := v.Count(ctx, sel); err == nil && n > 0 {
			log.Debug().Str("selector", sel).Int("count", n).Msg("Result list signal found")
			return true
		}
	}
	return false
}
