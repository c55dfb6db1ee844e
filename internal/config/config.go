package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Config holds application configuration values. Sources are applied in
// order: defaults, YAML file, .env, LEADS_* environment, CLI flags.
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLog  bool   `yaml:"json_log"`

	// Storage
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`

	// HTTP API
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// HTTP/Scraping
	HTTPTimeout time.Duration     `yaml:"http_timeout"`
	UserAgent   string            `yaml:"user_agent"`
	Proxy       string            `yaml:"proxy"` // comma separated
	Headers     map[string]string `yaml:"headers"`
	Renderer    string            `yaml:"renderer"`

	// Rate Limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// Browser Pool
	BrowserPoolSize int    `yaml:"browser_pool_size"`
	BrowserHeadless bool   `yaml:"browser_headless"`
	ChromePath      string `yaml:"chrome_path"`
	MapsSession     string `yaml:"maps_session"`
	SessionDir      string `yaml:"session_dir"`

	// Timeouts and delays
	NavTimeout          time.Duration `yaml:"nav_timeout"`
	PageTimeout         time.Duration `yaml:"page_timeout"`
	SignalTimeout       time.Duration `yaml:"signal_timeout"`
	InitialWait         time.Duration `yaml:"initial_wait"`
	PageDelay           time.Duration `yaml:"page_delay"`
	BusinessDelay       time.Duration `yaml:"business_delay"`
	Settle              time.Duration `yaml:"settle"`
	ScrollSettle        time.Duration `yaml:"scroll_settle"`
	ScrollMaxIterations int           `yaml:"scroll_max_iterations"`

	// Queue
	QueueCapacity int `yaml:"queue_capacity"`
	JobHistory    int `yaml:"job_history"`

	// Caching
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	CacheMaxSizeBytes int64         `yaml:"cache_max_size_bytes"`
	RedisURL          string        `yaml:"redis_url"`
}

// Default returns a Config holding only default values
func Default() *Config {
	return &Config{
		LogLevel:            DefaultLogLevel,
		JSONLog:             DefaultJSONLog,
		DataDir:             DefaultDataDir,
		Listen:              DefaultListen,
		HTTPTimeout:         DefaultHTTPTimeout,
		UserAgent:           DefaultUserAgent,
		Renderer:            DefaultRenderer,
		RateLimitRPS:        DefaultRateLimitRPS,
		RateLimitBurst:      DefaultRateLimitBurst,
		BrowserPoolSize:     DefaultBrowserPoolSize,
		BrowserHeadless:     DefaultBrowserHeadless,
		NavTimeout:          DefaultNavTimeout,
		PageTimeout:         DefaultPageTimeout,
		SignalTimeout:       DefaultSignalTimeout,
		InitialWait:         DefaultInitialWait,
		PageDelay:           DefaultPageDelay,
		BusinessDelay:       DefaultBusinessDelay,
		Settle:              DefaultSettle,
		ScrollSettle:        DefaultScrollSettle,
		ScrollMaxIterations: DefaultScrollMaxIterations,
		QueueCapacity:       DefaultQueueCapacity,
		JobHistory:          DefaultJobHistory,
		CacheTTL:            DefaultCacheTTL,
		CacheMaxSizeBytes:   DefaultCacheMaxSizeBytes,
	}
}

// Load builds a Config by combining defaults, an optional config file, environment variables, and CLI flags.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	path, explicit := configPath(cmd)
	if err := loadFile(cfg, path, explicit); err != nil {
		return nil, err
	}

	// .env never overrides variables that are already set
	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cmd != nil {
		if err := applyFlags(cfg, cmd); err != nil {
			return nil, err
		}
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, DefaultDBFile)
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = filepath.Join(cfg.DataDir, "sessions")
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
