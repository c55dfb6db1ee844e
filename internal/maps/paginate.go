package maps

import (
	"context"
	"time"

	"github.com/law-makers/leadharvest/internal/retry"
	"github.com/rs/zerolog/log"
)

// ScrollOptions configures Expand
type ScrollOptions struct {
	FeedSelector  string
	EndSelector   string // end-of-list marker
	MaxIterations int
	Settle        time.Duration
}

// DefaultScrollOptions returns the values used against the live service
func DefaultScrollOptions() ScrollOptions {
	return ScrollOptions{
		FeedSelector:  `[role="feed"]`,
		EndSelector:   `.HlvSq`,
		MaxIterations: 10,
		Settle:        2 * time.Second,
	}
}

// Expand scrolls the result feed until at least target entries matching
// itemSel are loaded, the count stops growing, the end-of-list marker shows
// up or MaxIterations scrolls were made. It is best effort and returns the
// last observed count.
func Expand(ctx context.Context, v View, itemSel string, target int, opts ScrollOptions) int {
	prev := -1
	count := 0
	for iter := 0; iter < opts.MaxIterations; iter++ {
		n, err := v.Count(ctx, itemSel)
		if err != nil {
			log.Debug().Err(err).Msg("Could not count result entries")
			return count
		}
		count = n

		if target > 0 && count >= target {
			break
		}
		if count <= prev {
			break
		}
		if opts.EndSelector != "" {
			if end, _ := v.Count(ctx, opts.EndSelector); end > 0 {
				break
			}
		}
		prev = count

		if err := v.ScrollFeed(ctx, opts.FeedSelector); err != nil {
			log.Debug().Err(err).Msg("Could not scroll result feed")
			break
		}
		if !retry.Sleep(ctx, opts.Settle) {
			break
		}
	}

	log.Debug().Int("count", count).Int("target", target).Msg("Result list expanded")
	return count
}
