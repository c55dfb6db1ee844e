// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/law-makers/leadharvest/internal/auth"
	"github.com/law-makers/leadharvest/internal/browser"
	"github.com/law-makers/leadharvest/internal/cache"
	"github.com/law-makers/leadharvest/internal/config"
	"github.com/law-makers/leadharvest/internal/harvest"
	"github.com/law-makers/leadharvest/internal/maps"
	"github.com/law-makers/leadharvest/internal/proxy"
	"github.com/law-makers/leadharvest/internal/queue"
	"github.com/law-makers/leadharvest/internal/ratelimit"
	"github.com/law-makers/leadharvest/internal/render"
	"github.com/law-makers/leadharvest/internal/store"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	DB          *store.Store
	Cache       cache.Cache
	RateLimiter ratelimit.RateLimiter
	Proxies     *proxy.ProxyPool
	HTTPClient  *http.Client
	Sessions    *auth.Store
	Renderer    render.Renderer
	Harvester   *harvest.Harvester
	Discoverer  *maps.Discoverer
	Scheduler   *queue.Scheduler

	poolMu      sync.Mutex
	BrowserPool *browser.Pool

	startTime time.Time
}

// ConfigureLogging sets the global zerolog level and writer from cfg.
func ConfigureLogging(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(logWriter).With().Timestamp().Logger()
	return log.Logger
}

// New creates and initializes a new Application with all dependencies.
//
// The browser pool is not started here. Chrome launches on the first map
// search or the first page loaded by the chrome renderer.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := ConfigureLogging(cfg)
	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DBPath, err)
	}
	logger.Debug().Str("path", cfg.DBPath).Msg("Database opened")

	var pageCache cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		pageCache = rc
		logger.Debug().Msg("Redis page cache initialized")
	} else {
		pageCache = cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
		logger.Debug().
			Int64("max_size_bytes", cfg.CacheMaxSizeBytes).
			Msg("Memory cache initialized")
	}

	rateLimiter := ratelimit.NewDomainLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Msg("Rate limiter initialized")

	var proxies *proxy.ProxyPool
	if list := proxy.ParseList(cfg.Proxy); len(list) > 0 {
		proxies = proxy.NewProxyPool(list)
		logger.Debug().Int("proxies", proxies.Len()).Msg("Proxy pool initialized")
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	a := &Application{
		Config:      cfg,
		Logger:      &logger,
		DB:          db,
		Cache:       pageCache,
		RateLimiter: rateLimiter,
		Proxies:     proxies,
		HTTPClient:  httpClient,
		Sessions:    auth.NewStore(cfg.SessionDir),
		startTime:   time.Now(),
	}

	var base render.Renderer
	switch models.RendererMode(cfg.Renderer) {
	case models.ModeStatic:
		base = render.NewStatic(httpClient, rateLimiter, proxies, cfg.UserAgent, cfg.Headers)
	default:
		base = render.NewChrome(a.EnsureBrowserPool, rateLimiter)
	}
	a.Renderer = render.WithCache(base, pageCache, cfg.CacheTTL)
	a.Harvester = harvest.New(a.Renderer, harvest.Options{
		PageTimeout: cfg.PageTimeout,
		PageDelay:   cfg.PageDelay,
	})
	logger.Debug().Str("renderer", a.Renderer.Name()).Msg("Harvester initialized")

	var session *auth.SessionData
	if cfg.MapsSession != "" {
		session, err = a.Sessions.Load(cfg.MapsSession)
		if err != nil {
			// discovery still runs without cookies
			logger.Warn().Err(err).Str("session", cfg.MapsSession).Msg("Map session not applied")
			session = nil
		} else {
			logger.Debug().Str("session", session.Name).Int("cookies", len(session.Cookies)).Msg("Map session loaded")
		}
	}

	opts := maps.DefaultOptions()
	opts.InitialWait = cfg.InitialWait
	opts.SignalTimeout = cfg.SignalTimeout
	opts.Scroll.MaxIterations = cfg.ScrollMaxIterations
	opts.Scroll.Settle = cfg.ScrollSettle
	a.Discoverer = maps.NewDiscoverer(maps.NewChromeBrowser(a.EnsureBrowserPool, session, cfg.NavTimeout), opts)

	a.Scheduler = queue.New(a.Discoverer, a.Harvester, db, queue.Options{
		Capacity:      cfg.QueueCapacity,
		Settle:        cfg.Settle,
		BusinessDelay: cfg.BusinessDelay,
		History:       cfg.JobHistory,
	})

	logger.Debug().Msg("Application initialized successfully")
	return a, nil
}

// EnsureBrowserPool lazily creates the browser pool and returns it. It is
// the render.PoolProvider shared by the map browser and the chrome renderer.
func (a *Application) EnsureBrowserPool(ctx context.Context) (*browser.Pool, error) {
	if a == nil {
		return nil, fmt.Errorf("application is nil")
	}

	a.poolMu.Lock()
	defer a.poolMu.Unlock()

	if a.BrowserPool != nil {
		return a.BrowserPool, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var browserProxy string
	if a.Proxies != nil {
		browserProxy = a.Proxies.GetNext()
	}

	a.Logger.Debug().Msg("Initializing browser pool on demand")
	pool, err := browser.NewPool(browser.Options{
		Size:       a.Config.BrowserPoolSize,
		Headless:   a.Config.BrowserHeadless,
		UserAgent:  a.Config.UserAgent,
		Proxy:      browserProxy,
		ChromePath: a.Config.ChromePath,
	})
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to create browser pool on demand")
		return nil, err
	}

	a.BrowserPool = pool
	a.Logger.Info().Int("pool_size", pool.Size()).Msg("Browser pool initialized on demand")
	return pool, nil
}

// Close gracefully shuts down the application and all its resources.
//
// The scheduler stops accepting jobs first, then the browsers, cache and
// database are released. Errors are logged and do not stop later steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	if a.Scheduler != nil {
		a.Scheduler.Close()
	}

	a.poolMu.Lock()
	if a.BrowserPool != nil {
		if err := a.BrowserPool.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser pool")
		}
		a.BrowserPool = nil
	}
	a.poolMu.Unlock()

	if a.Cache != nil {
		a.Cache.Close()
	}

	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	var err error
	if a.DB != nil {
		if err = a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing database")
		}
	}

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return err
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
