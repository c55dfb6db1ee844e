package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/leadharvest/internal/utils/headers"
	"github.com/law-makers/leadharvest/pkg/models"
)

func validate(c *Config) error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.BrowserPoolSize <= 0 || c.BrowserPoolSize > DefaultMaxBrowserPoolSize {
		return fmt.Errorf("browser pool size must be between 1 and %d", DefaultMaxBrowserPoolSize)
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	switch models.RendererMode(c.Renderer) {
	case models.ModeChrome, models.ModeStatic:
	default:
		return fmt.Errorf("renderer must be %q or %q, got %q", models.ModeChrome, models.ModeStatic, c.Renderer)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit rps and burst must be > 0")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be > 0")
	}
	if c.ScrollMaxIterations <= 0 {
		return fmt.Errorf("scroll max iterations must be > 0")
	}
	for name, d := range map[string]time.Duration{
		"nav timeout":    c.NavTimeout,
		"page timeout":   c.PageTimeout,
		"signal timeout": c.SignalTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	for name, d := range map[string]time.Duration{
		"initial wait":   c.InitialWait,
		"page delay":     c.PageDelay,
		"business delay": c.BusinessDelay,
		"settle":         c.Settle,
		"scroll settle":  c.ScrollSettle,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if err := headers.Validate(c.Headers); err != nil {
		return err
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}
