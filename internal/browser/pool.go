// Package browser owns the headless Chrome processes shared by discovery and
// harvesting.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/law-makers/leadharvest/internal/errs"
	"github.com/rs/zerolog/log"
)

// Pool manages a fixed set of reusable Chrome tabs. Each tab runs in its own
// browser so a crash in one does not take down the others.
type Pool struct {
	size        int
	tabs        chan *Tab
	allocCtx    context.Context
	allocCancel context.CancelFunc
	mu          sync.Mutex
	closed      bool
}

// Tab wraps a chromedp context with its cancel function
type Tab struct {
	Ctx    context.Context
	Cancel context.CancelFunc
}

// Bind derives a context that runs actions on the tab but ends when either
// the tab or ctx ends. ctx's deadline carries over.
func (t *Tab) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(t.Ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(t.Ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// Options configures the pool
type Options struct {
	Size       int
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
	// WindowSize is "width,height"; the map UI lays out its result feed
	// differently on small viewports.
	WindowSize string
	ExtraArgs  []chromedp.ExecAllocatorOption
}

const maxPoolSize = 10

// NewPool launches opts.Size browsers and warms each with about:blank
func NewPool(opts Options) (*Pool, error) {
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if opts.Size > maxPoolSize {
		opts.Size = maxPoolSize
	}
	if opts.WindowSize == "" {
		opts.WindowSize = "1920,1080"
	}

	log.Debug().Int("size", opts.Size).Msg("Creating browser pool")

	allocOpts := allocatorOptions(opts)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	pool := &Pool{
		size:        opts.Size,
		tabs:        make(chan *Tab, opts.Size),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}

	for i := 0; i < opts.Size; i++ {
		tab, err := pool.newTab()
		if err != nil {
			pool.Close()
			return nil, errs.Resource(fmt.Sprintf("failed to start browser %d", i), err)
		}
		pool.tabs <- tab
		log.Debug().Int("tab_id", i).Msg("Browser tab initialized")
	}

	log.Info().Int("pool_size", opts.Size).Msg("Browser pool ready")
	return pool, nil
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-features", "site-per-process,TranslateUI"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.Flag("window-size", opts.WindowSize),
	}

	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if path := FindChrome(opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	return append(allocOpts, opts.ExtraArgs...)
}

func (p *Pool) newTab() (*Tab, error) {
	ctx, cancel := chromedp.NewContext(p.allocCtx)
	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, err
	}
	return &Tab{Ctx: ctx, Cancel: cancel}, nil
}

// Acquire takes a tab from the pool, blocking until one is free or ctx ends
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	select {
	case tab, ok := <-p.tabs:
		if !ok {
			return nil, errs.ErrPoolClosed
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			tab.Cancel()
			return nil, errs.ErrPoolClosed
		}
		log.Debug().Msg("Browser tab acquired from pool")
		return tab, nil
	case <-ctx.Done():
		return nil, errs.Resource("timed out waiting for a browser tab", ctx.Err())
	}
}

// Release returns a tab to the pool. A tab whose browser died is replaced.
func (p *Pool) Release(tab *Tab) {
	if tab == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		tab.Cancel()
		return
	}
	p.mu.Unlock()

	if tab.Ctx.Err() == nil {
		cleanupCtx, cancel := context.WithTimeout(tab.Ctx, 5*time.Second)
		err := chromedp.Run(cleanupCtx, chromedp.Navigate("about:blank"))
		cancel()
		if err != nil {
			log.Debug().Err(err).Msg("Browser tab cleanup failed, replacing tab")
			tab.Cancel()
		}
	}

	if tab.Ctx.Err() != nil {
		fresh, err := p.newTab()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to replace browser tab, pool shrinks")
			return
		}
		tab = fresh
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		tab.Cancel()
		return
	}
	select {
	case p.tabs <- tab:
		log.Debug().Msg("Browser tab released to pool")
	default:
		tab.Cancel()
		log.Warn().Msg("Browser pool full, discarding tab")
	}
}

// With runs fn with a tab and always returns the tab, even when fn panics
func (p *Pool) With(ctx context.Context, fn func(*Tab) error) error {
	tab, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(tab)
	return fn(tab)
}

// Close shuts down all tabs and the allocator
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	close(p.tabs)
	for tab := range p.tabs {
		tab.Cancel()
	}
	p.allocCancel()

	log.Info().Msg("Browser pool closed")
	return nil
}

// Size returns the configured pool size
func (p *Pool) Size() int {
	return p.size
}
