package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/leadharvest/internal/auth"
	"github.com/law-makers/leadharvest/internal/browser"
	"github.com/law-makers/leadharvest/internal/errs"
	"github.com/law-makers/leadharvest/internal/render"
	"github.com/rs/zerolog/log"
)

// ChromeBrowser opens search views in pooled Chrome tabs
type ChromeBrowser struct {
	pools      render.PoolProvider
	session    *auth.SessionData
	navTimeout time.Duration
	clickWait  time.Duration
}

// NewChromeBrowser creates a ChromeBrowser. session may be nil; when set its
// cookies are installed in the tab before every search.
func NewChromeBrowser(pools render.PoolProvider, session *auth.SessionData, navTimeout time.Duration) *ChromeBrowser {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &ChromeBrowser{
		pools:      pools,
		session:    session,
		navTimeout: navTimeout,
		clickWait:  3 * time.Second,
	}
}

// Open acquires a tab and navigates it to url
func (b *ChromeBrowser) Open(ctx context.Context, url string) (View, func(), error) {
	pool, err := b.pools(ctx)
	if err != nil {
		return nil, nil, errs.Resource("browser pool unavailable", err)
	}
	tab, err := pool.Acquire(ctx)
	if err != nil {
		return nil, nil, errs.Resource("failed to acquire browser tab", err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() { pool.Release(tab) })
	}

	navCtx, cancel := tab.Bind(ctx)
	defer cancel()
	navCtx, cancelNav := context.WithTimeout(navCtx, b.navTimeout)
	defer cancelNav()

	var actions []chromedp.Action
	if b.session != nil {
		actions = append(actions, b.session.Apply())
	}
	actions = append(actions, chromedp.Navigate(url))

	if err := chromedp.Run(navCtx, actions...); err != nil {
		release()
		return nil, nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	log.Debug().Str("url", url).Msg("Search view opened")
	return &chromeView{tab: tab, clickWait: b.clickWait}, release, nil
}

type chromeView struct {
	tab       *browser.Tab
	clickWait time.Duration
}

func (v *chromeView) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := v.tab.Bind(ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (v *chromeView) Location(ctx context.Context) (string, error) {
	var loc string
	err := v.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (v *chromeView) Title(ctx context.Context) (string, error) {
	var title string
	err := v.run(ctx, chromedp.Title(&title))
	return title, err
}

func (v *chromeView) WaitFor(ctx context.Context, sel string, timeout time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return v.run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery)) == nil
}

func (v *chromeView) Count(ctx context.Context, sel string) (int, error) {
	var n int
	err := v.run(ctx, chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(sel)), &n))
	return n, err
}

func (v *chromeView) ScrollFeed(ctx context.Context, feedSel string) error {
	var ok bool
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.scrollTop = el.scrollHeight;
		return true;
	})()`, jsString(feedSel))
	if err := v.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("feed %s not found", feedSel)
	}
	return nil
}

func (v *chromeView) Activate(ctx context.Context, sel string, i int) error {
	var nodes []*cdp.Node
	if err := v.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return err
	}
	if i >= len(nodes) {
		return fmt.Errorf("entry %d of %s not present", i, sel)
	}
	node := nodes[i]

	if err := v.run(ctx, chromedp.ScrollIntoView([]cdp.NodeID{node.NodeID}, chromedp.ByNodeID)); err != nil {
		log.Debug().Err(err).Int("index", i).Msg("Could not scroll entry into view")
	}

	clickCtx, cancel := context.WithTimeout(ctx, v.clickWait)
	defer cancel()
	if err := v.run(clickCtx, chromedp.MouseClickNode(node)); err == nil {
		return nil
	}

	var links []*cdp.Node
	linkCtx, cancelLink := context.WithTimeout(ctx, v.clickWait)
	defer cancelLink()
	err := v.run(linkCtx,
		chromedp.Nodes("a", &links, chromedp.ByQueryAll, chromedp.FromNode(node), chromedp.AtLeast(0)),
	)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return fmt.Errorf("entry %d is not clickable", i)
	}
	return v.run(linkCtx, chromedp.MouseClickNode(links[0]))
}

func (v *chromeView) ItemHTML(ctx context.Context, sel string, i int) (string, error) {
	var html string
	script := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%s);
		return els.length > %d ? els[%d].outerHTML : "";
	})()`, jsString(sel), i, i)
	err := v.run(ctx, chromedp.Evaluate(script, &html))
	return html, err
}

func (v *chromeView) DocumentHTML(ctx context.Context) (string, error) {
	var html string
	err := v.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}
