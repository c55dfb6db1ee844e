// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound page loads per host.
type RateLimiter interface {
	// Wait blocks until a request for urlStr may proceed or ctx ends.
	Wait(ctx context.Context, urlStr string) error

	// Allow reports whether a request for urlStr may proceed right now.
	Allow(urlStr string) bool
}

// DomainLimiter keeps one token bucket per host so a slow crawl of one
// business website never delays another.
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	perHost  rate.Limit
	burst    int
}

// NewDomainLimiter creates a limiter allowing requestsPerSecond per host
func NewDomainLimiter(requestsPerSecond float64, burst int) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2.0
	}
	if burst <= 0 {
		burst = 1
	}

	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until the host of urlStr has a free token
func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	host := hostOf(urlStr)
	if host == "" {
		// unparseable URLs fail later in the loader
		return nil
	}
	return dl.limiter(host).Wait(ctx)
}

// Allow checks if a request can proceed immediately without blocking
func (dl *DomainLimiter) Allow(urlStr string) bool {
	host := hostOf(urlStr)
	if host == "" {
		return true
	}
	return dl.limiter(host).Allow()
}

// Hosts returns how many hosts currently have a bucket
func (dl *DomainLimiter) Hosts() int {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return len(dl.limiters)
}

func (dl *DomainLimiter) limiter(host string) *rate.Limiter {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	l, ok := dl.limiters[host]
	if !ok {
		l = rate.NewLimiter(dl.perHost, dl.burst)
		dl.limiters[host] = l
	}
	return l
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Unlimited never throttles. Tests and single-page tools use it.
type Unlimited struct{}

func (Unlimited) Wait(context.Context, string) error { return nil }
func (Unlimited) Allow(string) bool                  { return true }
