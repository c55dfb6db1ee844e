package render

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/law-makers/leadharvest/internal/cache"
	"github.com/law-makers/leadharvest/pkg/models"
)

// Cached serves pages from a cache and only opens the wrapped renderer's
// session on the first miss.
type Cached struct {
	next  Renderer
	cache cache.Cache
	ttl   time.Duration
}

// WithCache wraps next with c. A nil cache returns next unchanged.
func WithCache(next Renderer, c cache.Cache, ttl time.Duration) Renderer {
	if c == nil {
		return next
	}
	return &Cached{next: next, cache: c, ttl: ttl}
}

// Name returns the wrapped renderer's name
func (c *Cached) Name() string {
	return c.next.Name() + "+cache"
}

// NewSession returns a lazy session
func (c *Cached) NewSession(ctx context.Context) (Session, error) {
	return &cachedSession{c: c}, nil
}

type cachedSession struct {
	c       *Cached
	inner   Session
	openErr error
}

func (cs *cachedSession) Load(ctx context.Context, pageURL string) (*models.PageData, error) {
	key := cache.PageKey(pageURL)
	if page, ok := cs.c.cache.Get(key); ok {
		return page, nil
	}

	if cs.inner == nil {
		if cs.openErr != nil {
			return nil, cs.openErr
		}
		inner, err := cs.c.next.NewSession(ctx)
		if err != nil {
			cs.openErr = fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
			return nil, cs.openErr
		}
		cs.inner = inner
	}

	page, err := cs.inner.Load(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	// error pages are cached too, except 429 and 503
	if page.StatusCode != http.StatusTooManyRequests && page.StatusCode != http.StatusServiceUnavailable {
		_ = cs.c.cache.Set(key, page, cs.c.ttl)
	}
	return page, nil
}

func (cs *cachedSession) Close() {
	if cs.inner != nil {
		cs.inner.Close()
	}
}
