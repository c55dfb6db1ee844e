package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/law-makers/leadharvest/internal/utils/headers"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func configPath(cmd *cobra.Command) (string, bool) {
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String(), true
		}
	}
	if v := os.Getenv(EnvPrefix + "CONFIG"); v != "" {
		return v, true
	}
	return DefaultConfigFile, false
}

// loadFile overlays the YAML file at path. A missing file is only an error
// when it was asked for explicitly.
func loadFile(cfg *Config, path string, explicit bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &cfg.LogLevel)
	str("DATA_DIR", &cfg.DataDir)
	str("DB_PATH", &cfg.DBPath)
	str("LISTEN", &cfg.Listen)
	str("USER_AGENT", &cfg.UserAgent)
	str("PROXY", &cfg.Proxy)
	str("RENDERER", &cfg.Renderer)
	str("CHROME_PATH", &cfg.ChromePath)
	str("MAPS_SESSION", &cfg.MapsSession)
	str("SESSION_DIR", &cfg.SessionDir)
	str("REDIS_URL", &cfg.RedisURL)

	// hosting platforms hand out the port this way
	if v := os.Getenv("PORT"); v != "" && os.Getenv(EnvPrefix+"LISTEN") == "" {
		cfg.Listen = ":" + v
	}
	if v := os.Getenv(EnvPrefix + "ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	var errs []string
	boolean := func(name string, dst *bool) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, EnvPrefix+name)
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, EnvPrefix+name)
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, EnvPrefix+name)
				return
			}
			*dst = d
		}
	}

	boolean("JSON_LOG", &cfg.JSONLog)
	boolean("HEADLESS", &cfg.BrowserHeadless)
	integer("BROWSER_POOL_SIZE", &cfg.BrowserPoolSize)
	integer("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	integer("QUEUE_CAPACITY", &cfg.QueueCapacity)
	integer("SCROLL_MAX_ITERATIONS", &cfg.ScrollMaxIterations)
	duration("HTTP_TIMEOUT", &cfg.HTTPTimeout)
	duration("NAV_TIMEOUT", &cfg.NavTimeout)
	duration("PAGE_TIMEOUT", &cfg.PageTimeout)
	duration("PAGE_DELAY", &cfg.PageDelay)
	duration("BUSINESS_DELAY", &cfg.BusinessDelay)
	duration("CACHE_TTL", &cfg.CacheTTL)

	if v := os.Getenv(EnvPrefix + "RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, EnvPrefix+"RATE_LIMIT_RPS")
		} else {
			cfg.RateLimitRPS = f
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment values: %s", strings.Join(errs, ", "))
	}
	return nil
}

func applyFlags(cfg *Config, cmd *cobra.Command) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("verbose") {
		if v, _ := flags.GetBool("verbose"); v {
			cfg.LogLevel = "debug"
		}
	}
	if changed("quiet") {
		if v, _ := flags.GetBool("quiet"); v {
			cfg.LogLevel = "error"
		}
	}
	if changed("json") {
		cfg.JSONLog, _ = flags.GetBool("json")
	}
	if changed("user-agent") {
		cfg.UserAgent, _ = flags.GetString("user-agent")
	}
	if changed("proxy") {
		cfg.Proxy, _ = flags.GetString("proxy")
	}
	if changed("timeout") {
		s, _ := flags.GetString("timeout")
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	if changed("chrome-path") {
		cfg.ChromePath, _ = flags.GetString("chrome-path")
	}
	if changed("headless") {
		cfg.BrowserHeadless, _ = flags.GetBool("headless")
	}
	if changed("renderer") {
		cfg.Renderer, _ = flags.GetString("renderer")
	}
	if changed("redis-url") {
		cfg.RedisURL, _ = flags.GetString("redis-url")
	}
	if changed("session") {
		cfg.MapsSession, _ = flags.GetString("session")
	}
	if changed("listen") {
		cfg.Listen, _ = flags.GetString("listen")
	}
	if changed("header") {
		hs, _ := flags.GetStringArray("header")
		parsed, err := headers.ParseHeaders(hs)
		if err != nil {
			return fmt.Errorf("invalid --header: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range parsed {
			cfg.Headers[k] = v
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
