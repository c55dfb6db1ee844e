package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel            = "info"
	DefaultJSONLog             = false
	DefaultDataDir             = "data"
	DefaultDBFile              = "leads.db"
	DefaultListen              = ":3001"
	DefaultUserAgent           = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultHTTPTimeout         = 15 * time.Second
	DefaultRateLimitRPS        = 2.0
	DefaultRateLimitBurst      = 4
	DefaultBrowserPoolSize     = 2
	DefaultMaxBrowserPoolSize  = 10
	DefaultBrowserHeadless     = true
	DefaultRenderer            = "chrome"
	DefaultCacheTTL            = 30 * time.Minute
	DefaultCacheMaxSizeBytes   = 64 * 1024 * 1024 // 64MB
	DefaultNavTimeout          = 30 * time.Second
	DefaultPageTimeout         = 10 * time.Second
	DefaultSignalTimeout       = 8 * time.Second
	DefaultInitialWait         = 5 * time.Second
	DefaultPageDelay           = 1 * time.Second
	DefaultBusinessDelay       = 2 * time.Second
	DefaultSettle              = 1 * time.Second
	DefaultScrollSettle        = 2 * time.Second
	DefaultScrollMaxIterations = 10
	DefaultQueueCapacity       = 100
	DefaultJobHistory          = 50
	DefaultWaitTimeout         = 10 * time.Minute
	DefaultConfigFile          = "leadharvest.yml"
	EnvPrefix                  = "LEADS_"
)
