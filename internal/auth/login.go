package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/leadharvest/internal/browser"
	"github.com/rs/zerolog/log"
)

// DefaultLoginURL is where a capture session starts
const DefaultLoginURL = "https://www.google.com/maps"

// LoginOptions configures an interactive cookie capture
type LoginOptions struct {
	SessionName string
	URL         string
	ChromePath  string
	// WaitSelector, when set, ends the capture as soon as it is visible.
	// Otherwise Confirm is called and the capture ends when it returns.
	WaitSelector string
	Confirm      func() error
	Timeout      time.Duration
}

// InteractiveLogin opens a visible browser so the operator can accept the
// consent dialog (or solve a challenge) and then captures the cookies.
func InteractiveLogin(ctx context.Context, opts LoginOptions) (*SessionData, error) {
	if err := validName(opts.SessionName); err != nil {
		return nil, err
	}
	if opts.URL == "" {
		opts.URL = DefaultLoginURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 900),
	}
	if path := browser.FindChrome(opts.ChromePath); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	log.Info().Str("session", opts.SessionName).Str("url", opts.URL).Msg("Opening browser for session capture")
	if err := chromedp.Run(browserCtx, network.Enable(), chromedp.Navigate(opts.URL)); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if opts.WaitSelector != "" {
		if err := chromedp.Run(browserCtx, chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery)); err != nil {
			return nil, fmt.Errorf("waiting for %s: %w", opts.WaitSelector, err)
		}
	} else if opts.Confirm != nil {
		if err := opts.Confirm(); err != nil {
			return nil, err
		}
	}

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to extract cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies captured")
	}

	session := &SessionData{
		Name:      opts.SessionName,
		URL:       opts.URL,
		Cookies:   make([]Cookie, 0, len(cookies)),
		CreatedAt: time.Now(),
	}
	for _, c := range cookies {
		session.Cookies = append(session.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	session.ExpiresAt = EarliestExpiry(session.Cookies)

	log.Info().Int("cookies", len(session.Cookies)).Msg("Session captured")
	return session, nil
}

// Apply returns an action that installs the session's live cookies in a tab
func (s *SessionData) Apply() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		now := time.Now()
		for _, c := range s.Cookies {
			if c.Expired(now) {
				continue
			}
			set := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				set = set.WithExpires(&exp)
			}
			if c.SameSite != "" {
				set = set.WithSameSite(network.CookieSameSite(c.SameSite))
			}
			if err := set.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}
