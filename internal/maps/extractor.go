package maps

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/leadharvest/internal/retry"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Profile is one extraction strategy: which selectors identify result
// entries and how fields are read from them.
type Profile struct {
	Name          string
	ItemSelectors []string
	// Detail opens each entry and reads the detail panel before falling
	// back to the entry itself.
	Detail bool
	List   Fields
}

// PrimaryProfile opens each entry's detail panel
var PrimaryProfile = Profile{
	Name: "primary",
	ItemSelectors: []string{
		`[role="article"]`,
		`.Nv2PK`,
		placeLink,
		`[jsaction*="mouseover"]`,
	},
	Detail: true,
	List:   ListFields,
}

// AlternateProfile reads entries in place, trying link-shaped selectors
// earlier
var AlternateProfile = Profile{
	Name: "alternate",
	ItemSelectors: []string{
		`.Nv2PK`,
		`[role="article"]`,
		`.hfpxzc`,
		placeLink,
		`[jsaction*="mouseover"]`,
		`[data-value="Directions"]`,
	},
	List: WideListFields,
}

// ExtractOptions holds the waits used while walking the result list
type ExtractOptions struct {
	PanelWait time.Duration // after activating an entry
	ItemDelay time.Duration // between entries
	// ItemRetryWait is how long to wait before looking for entries again
	// when none of the selectors matched.
	ItemRetryWait time.Duration
}

// DefaultExtractOptions returns the waits used against the live service
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		PanelWait:     2 * time.Second,
		ItemDelay:     500 * time.Millisecond,
		ItemRetryWait: 5 * time.Second,
	}
}

// Extractor walks a result view and turns entries into business records
type Extractor struct {
	opts ExtractOptions
}

// NewExtractor creates an extractor
func NewExtractor(opts ExtractOptions) *Extractor {
	return &Extractor{opts: opts}
}

// ItemSelector returns the first of p's selectors that matches anything
func ItemSelector(ctx context.Context, v View, p Profile) (string, int) {
	for _, sel := range p.ItemSelectors {
		n, err := v.Count(ctx, sel)
		if err == nil && n > 0 {
			return sel, n
		}
	}
	return "", 0
}

// Run extracts up to max records (all when max is 0) using profile p.
// Records without a name and repeats within the run are dropped.
func (e *Extractor) Run(ctx context.Context, v View, p Profile, max int) []models.Business {
	sel, n := ItemSelector(ctx, v, p)
	if n == 0 {
		if !retry.Sleep(ctx, e.opts.ItemRetryWait) {
			return nil
		}
		sel, n = ItemSelector(ctx, v, p)
	}
	if n == 0 {
		log.Debug().Str("profile", p.Name).Msg("No result entries found")
		return nil
	}
	log.Debug().Str("profile", p.Name).Str("selector", sel).Int("count", n).Msg("Found result entries")

	limit := n
	if max > 0 && max < limit {
		limit = max
	}

	var (
		out     []models.Business
		seen    = make(map[models.BusinessKey]bool)
		lastHit string
	)
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}
		// the list re-renders while it is walked
		if cur, err := v.Count(ctx, sel); err != nil || i >= cur {
			break
		}

		b, ok := e.ExtractAt(ctx, v, p, sel, i, &lastHit)
		if ok && !seen[b.Key()] {
			seen[b.Key()] = true
			out = append(out, b)
			log.Debug().Str("name", b.Name).Str("website", b.Website).Msg("Extracted listing")
		}

		if !retry.Sleep(ctx, e.opts.ItemDelay) {
			break
		}
	}
	return out
}

// ExtractAt produces the record for the i-th entry matching sel.
// lastDetail carries the previous detail-panel name between calls: a panel
// still showing the previous business means the click did not land.
func (e *Extractor) ExtractAt(ctx context.Context, v View, p Profile, sel string, i int, lastDetail *string) (models.Business, bool) {
	if p.Detail {
		if b, ok := e.fromDetail(ctx, v, sel, i); ok {
			if lastDetail == nil || b.Name != *lastDetail {
				if lastDetail != nil {
					*lastDetail = b.Name
				}
				return b, true
			}
			log.Debug().Int("index", i).Str("name", b.Name).Msg("Detail panel did not change, reading entry")
		}
	}
	return e.fromItem(ctx, v, p, sel, i)
}

func (e *Extractor) fromDetail(ctx context.Context, v View, sel string, i int) (models.Business, bool) {
	if err := v.Activate(ctx, sel, i); err != nil {
		log.Debug().Err(err).Int("index", i).Msg("Could not open entry")
		return models.Business{}, false
	}
	if !retry.Sleep(ctx, e.opts.PanelWait) {
		return models.Business{}, false
	}

	html, err := v.DocumentHTML(ctx)
	if err != nil {
		return models.Business{}, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Business{}, false
	}

	b := DetailFields.Extract(detailPanel(doc))
	return b, b.Name != ""
}

// detailPanel is the last main region that carries a heading; the result
// list is a main region too but has none.
func detailPanel(doc *goquery.Document) *goquery.Selection {
	panel := doc.Find(`[role="main"]`).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("h1").Length() > 0
	}).Last()
	if panel.Length() == 0 {
		return doc.Selection
	}
	return panel
}

func (e *Extractor) fromItem(ctx context.Context, v View, p Profile, sel string, i int) (models.Business, bool) {
	html, err := v.ItemHTML(ctx, sel, i)
	if err != nil || strings.TrimSpace(html) == "" {
		return models.Business{}, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Business{}, false
	}

	root := doc.Find("body").Children().First()
	if root.Length() == 0 {
		return models.Business{}, false
	}
	b := p.List.Extract(root)
	return b, b.Name != ""
}
