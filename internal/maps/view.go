// Package maps discovers business listings on the map service. The result
// page has no stable machine-readable schema, so every field is read through
// ordered fallback chains of locators.
package maps

import (
	"context"
	"time"
)

// View is a rendered search-results page that can be queried and driven
type View interface {
	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	// WaitFor reports whether sel matched something within timeout
	WaitFor(ctx context.Context, sel string, timeout time.Duration) bool
	Count(ctx context.Context, sel string) (int, error)

	// ScrollFeed scrolls the results container to its bottom
	ScrollFeed(ctx context.Context, feedSel string) error

	// Activate scrolls the i-th match of sel into view and clicks it, or a
	// link inside it when the element itself does not take the click.
	Activate(ctx context.Context, sel string, i int) error

	// ItemHTML returns the outer HTML of the i-th match of sel
	ItemHTML(ctx context.Context, sel string, i int) (string, error)
	DocumentHTML(ctx context.Context) (string, error)
}

// Browser opens search views. release must be called exactly once.
type Browser interface {
	Open(ctx context.Context, url string) (view View, release func(), err error)
}
