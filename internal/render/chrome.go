package render

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/leadharvest/internal/browser"
	"github.com/law-makers/leadharvest/internal/errs"
	"github.com/law-makers/leadharvest/internal/ratelimit"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// PoolProvider hands out the browser pool, starting it on first use
type PoolProvider func(ctx context.Context) (*browser.Pool, error)

// Chrome renders pages in a pooled headless browser tab so that emails
// written into the DOM by scripts are visible.
type Chrome struct {
	pools   PoolProvider
	limiter ratelimit.RateLimiter
}

// NewChrome creates a Chrome renderer
func NewChrome(pools PoolProvider, lim ratelimit.RateLimiter) *Chrome {
	if lim == nil {
		lim = ratelimit.Unlimited{}
	}
	return &Chrome{pools: pools, limiter: lim}
}

// Name returns the name of this renderer
func (c *Chrome) Name() string {
	return "chrome"
}

// NewSession acquires one tab for the lifetime of the session
func (c *Chrome) NewSession(ctx context.Context) (Session, error) {
	pool, err := c.pools(ctx)
	if err != nil {
		return nil, errs.Resource("browser pool unavailable", err)
	}
	tab, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Resource("failed to acquire browser tab", err)
	}
	return &chromeSession{c: c, pool: pool, tab: tab}, nil
}

type chromeSession struct {
	c    *Chrome
	pool *browser.Pool
	tab  *browser.Tab
	once sync.Once
}

func (cs *chromeSession) Close() {
	cs.once.Do(func() {
		cs.pool.Release(cs.tab)
	})
}

func (cs *chromeSession) Load(ctx context.Context, pageURL string) (*models.PageData, error) {
	start := time.Now()

	if err := cs.c.limiter.Wait(ctx, pageURL); err != nil {
		return nil, err
	}

	runCtx, cancel := cs.tab.Bind(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		status int64
	)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			mu.Lock()
			if status == 0 {
				status = e.Response.Status
			}
			mu.Unlock()
		}
	})

	var html, title, location string
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.Title(&title),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	code := int(status)
	mu.Unlock()
	if code == 0 {
		// served from cache or a non-HTTP scheme; treat as OK
		code = 200
	}

	page := &models.PageData{
		URL:          location,
		StatusCode:   code,
		Title:        title,
		HTML:         html,
		FetchedAt:    time.Now(),
		ResponseTime: time.Since(start).Milliseconds(),
	}

	log.Debug().
		Str("url", pageURL).
		Int("status", code).
		Int64("response_time_ms", page.ResponseTime).
		Msg("Rendered page")

	return page, nil
}
