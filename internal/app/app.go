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

	"github.com/law-makers/quake/internal/cache"
	"github.com/law-makers/quake/internal/config"
	"github.com/law-makers/quake/internal/engine/batch"
	"github.com/law-makers/quake/internal/engine/phivolcs"
	"github.com/law-makers/quake/internal/engine/static"
	"github.com/law-makers/quake/internal/proxy"
	"github.com/law-makers/quake/internal/ratelimit"
	"github.com/law-makers/quake/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redisPingTimeout = 3 * time.Second

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// The API server and its limiter store are only built by Server.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config  *config.Config
	Logger  *zerolog.Logger
	Proxies *proxy.ProxyPool
	Fetcher *static.Fetcher
	Scraper *phivolcs.Scraper

	// Upstream throttles batch bulletin fetches only; nil when disabled
	Upstream *ratelimit.DomainLimiter
	fetchOpts static.Options

	mu        sync.Mutex
	limiter   *ratelimit.WindowLimiter
	redis     redis.UniversalClient
	cache     *cache.MemoryCache
	startTime time.Time
}

// SetupLogger configures the global zerolog logger from cfg
func SetupLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
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

// New creates the logger and the upstream stack: proxy pool, fetcher,
// bulletin scraper and the per-host politeness limiter used by Batch.
// Single fetches (API and the latest/details commands) are not throttled.
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := SetupLogger(cfg)
	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	proxies := proxy.Parse(cfg.Proxy)
	if cfg.Proxy != "" && proxies.Len() == 0 {
		return nil, fmt.Errorf("no valid proxy in %q", cfg.Proxy)
	}

	upstream := ratelimit.NewDomainLimiter(cfg.UpstreamRPS, cfg.UpstreamBurst)
	logger.Debug().
		Float64("rps", cfg.UpstreamRPS).
		Int("burst", cfg.UpstreamBurst).
		Int("proxies", proxies.Len()).
		Bool("batch_throttle", upstream != nil).
		Msg("Upstream limiter initialized")

	opts := static.Options{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
		Headers:   cfg.Headers,
		Proxies:   proxies,
	}
	fetcher := static.New(nil, nil, opts)

	app := &Application{
		Config:    cfg,
		Logger:    &logger,
		Proxies:   proxies,
		Upstream:  upstream,
		fetchOpts: opts,
		Fetcher:   fetcher,
		Scraper:   phivolcs.New(fetcher, cfg.UpstreamURL),
		startTime: time.Now(),
	}

	logger.Debug().Str("upstream", cfg.UpstreamURL).Msg("Application initialized")
	return app, nil
}

// Batch returns a batch scraper whose fetches share the application's
// client and wait on the upstream limiter when one is configured
func (a *Application) Batch(concurrency int) *batch.Scraper {
	scraper := a.Scraper
	if a.Upstream != nil {
		throttled := static.New(a.Fetcher.Client(), a.Upstream, a.fetchOpts)
		scraper = phivolcs.New(throttled, a.Config.UpstreamURL)
	}
	return batch.New(scraper, concurrency)
}

// Server builds the API server: the fixed-window limiter on Redis when
// configured (memory otherwise) with its sweep started, and the optional
// latest-list cache.
func (a *Application) Server(ctx context.Context) (*server.Server, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.limiter != nil {
		return nil, fmt.Errorf("server already created")
	}

	cfg := a.Config
	store := a.limiterStore(ctx)

	a.limiter = ratelimit.NewWindowLimiter(store, ratelimit.WithSweepInterval(cfg.SweepInterval))
	a.limiter.Start(context.Background())

	var respCache cache.Cache
	if cfg.CacheTTL > 0 {
		a.cache = cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
		respCache = a.cache
		a.Logger.Debug().
			Dur("ttl", cfg.CacheTTL).
			Int64("max_size_bytes", cfg.CacheMaxSizeBytes).
			Msg("Response cache initialized")
	}

	srv := server.New(a.Scraper, a.limiter, respCache, server.Options{
		Addr:          cfg.ListenAddr,
		LatestPolicy:  ratelimit.Policy{Window: cfg.RateWindow, MaxRequests: cfg.LatestLimit},
		DetailsPolicy: ratelimit.Policy{Window: cfg.RateWindow, MaxRequests: cfg.DetailsLimit},
		CacheTTL:      cfg.CacheTTL,
	})

	a.Logger.Info().Str("config", cfg.String()).Msg("API server configured")
	return srv, nil
}

// limiterStore connects to Redis when configured and falls back to memory
// when it is unreachable. Must be called with a.mu held.
func (a *Application) limiterStore(ctx context.Context) ratelimit.Store {
	cfg := a.Config
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryStore()
	}

	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := cli.Ping(pingCtx).Err(); err != nil {
		a.Logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, using in-memory rate limit store")
		_ = cli.Close()
		return ratelimit.NewMemoryStore()
	}

	a.redis = cli
	a.Logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Rate limit store on Redis")
	return ratelimit.NewRedisStore(cli, cfg.RedisPrefix)
}

// HTTPClient returns the upstream client, shared with map downloads
func (a *Application) HTTPClient() *http.Client {
	return a.Fetcher.Client()
}

// Close gracefully shuts down the application and all its resources.
//
// It stops the limiter sweep, closes the cache and the Redis connection and
// releases idle upstream connections. Errors are logged; shutdown continues.
func (a *Application) Close(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.limiter != nil {
		a.limiter.Close()
	}

	if a.cache != nil {
		a.cache.Close()
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing Redis client")
		}
	}

	a.HTTPClient().CloseIdleConnections()

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
