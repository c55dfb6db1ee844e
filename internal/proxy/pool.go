// Package proxy rotates outbound HTTP proxies for website harvesting.
package proxy

import (
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a failed proxy is skipped
const DefaultCooldown = 5 * time.Minute

// ProxyPool hands out proxies round-robin, skipping recently failed ones
type ProxyPool struct {
	proxies  []string
	index    int
	mu       sync.Mutex
	failed   map[string]time.Time
	cooldown time.Duration
}

// NewProxyPool creates a new ProxyPool
func NewProxyPool(proxies []string) *ProxyPool {
	return &ProxyPool{
		proxies:  proxies,
		failed:   make(map[string]time.Time),
		cooldown: DefaultCooldown,
	}
}

// ParseList splits a comma or whitespace separated proxy list
func ParseList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of configured proxies
func (p *ProxyPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}

// GetNext returns the next healthy proxy. When every proxy is cooling down
// the rotation continues anyway rather than stalling the harvest.
func (p *ProxyPool) GetNext() string {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		failTime, failed := p.failed[proxy]
		if !failed {
			return proxy
		}
		if time.Since(failTime) >= p.cooldown {
			delete(p.failed, proxy)
			return proxy
		}
		if p.index == start {
			return proxy
		}
	}
}

// MarkFailed puts a proxy on cooldown
func (p *ProxyPool) MarkFailed(proxy string) {
	if p == nil || proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = time.Now()
}

// MarkHealthy clears the failure status of a proxy
func (p *ProxyPool) MarkHealthy(proxy string) {
	if p == nil || proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}
