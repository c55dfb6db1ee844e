package render

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/law-makers/leadharvest/internal/proxy"
	"github.com/law-makers/leadharvest/internal/ratelimit"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps how much of a page is read
const maxBodyBytes = 4 << 20

// Static loads pages with net/http. It does not run JavaScript, so emails
// injected client-side are missed, but it needs no browser.
type Static struct {
	client    *http.Client
	limiter   ratelimit.RateLimiter
	proxies   *proxy.ProxyPool
	userAgent string
	headers   map[string]string

	mu      sync.Mutex
	byProxy map[string]*http.Client
}

// NewStatic creates a static renderer. proxies and headers may be nil.
func NewStatic(client *http.Client, lim ratelimit.RateLimiter, proxies *proxy.ProxyPool, ua string, headers map[string]string) *Static {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if lim == nil {
		lim = ratelimit.Unlimited{}
	}
	return &Static{
		client:    client,
		limiter:   lim,
		proxies:   proxies,
		userAgent: ua,
		headers:   headers,
		byProxy:   make(map[string]*http.Client),
	}
}

// Name returns the name of this renderer
func (s *Static) Name() string {
	return "static"
}

// NewSession returns a session sharing the renderer's connection pool
func (s *Static) NewSession(ctx context.Context) (Session, error) {
	return staticSession{s}, nil
}

type staticSession struct {
	s *Static
}

func (ss staticSession) Load(ctx context.Context, pageURL string) (*models.PageData, error) {
	return ss.s.Fetch(ctx, pageURL)
}

func (ss staticSession) Close() {}

// clientFor returns an http.Client routed through proxyURL
func (s *Static) clientFor(proxyURL string) (*http.Client, error) {
	if proxyURL == "" {
		return s.client, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byProxy[proxyURL]; ok {
		return c, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", proxyURL, err)
	}
	c := &http.Client{
		Timeout: s.client.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyURL(parsed),
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	s.byProxy[proxyURL] = c
	return c, nil
}

// Fetch retrieves one page
func (s *Static) Fetch(ctx context.Context, pageURL string) (*models.PageData, error) {
	start := time.Now()

	if err := s.limiter.Wait(ctx, pageURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	proxyURL := s.proxies.GetNext()
	client, err := s.clientFor(proxyURL)
	if err != nil {
		s.proxies.MarkFailed(proxyURL)
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		s.proxies.MarkFailed(proxyURL)
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()
	s.proxies.MarkHealthy(proxyURL)

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	page := &models.PageData{
		URL:          resp.Request.URL.String(),
		StatusCode:   resp.StatusCode,
		HTML:         string(raw),
		FetchedAt:    time.Now(),
		ResponseTime: time.Since(start).Milliseconds(),
	}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML)); err == nil {
		page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	log.Debug().
		Str("url", pageURL).
		Int("status", resp.StatusCode).
		Int64("response_time_ms", page.ResponseTime).
		Str("proxy", proxyURL).
		Msg("Fetch completed")

	return page, nil
}

// decodeBody unwraps the Content-Encoding we asked for
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return r, nil
	case "deflate":
		// HTTP deflate is zlib framed
		r, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create deflate reader: %w", err)
		}
		return r, nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}
