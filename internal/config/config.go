package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/law-makers/quake/internal/utils/headers"
	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Upstream
	UpstreamURL string
	HTTPTimeout time.Duration
	UserAgent   string
	Headers     http.Header
	Proxy       string

	// Upstream politeness for batch fetches; rps 0 disables it
	UpstreamRPS   float64
	UpstreamBurst int

	// API server
	ListenAddr    string
	LatestLimit   int
	DetailsLimit  int
	RateWindow    time.Duration
	SweepInterval time.Duration

	// Shared limiter store; memory when RedisAddr is empty
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Caching
	CacheTTL          time.Duration
	CacheMaxSizeBytes int64
}

// Default returns a Config holding only default values
func Default() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		UpstreamURL:       DefaultUpstreamURL,
		HTTPTimeout:       DefaultHTTPTimeout,
		UserAgent:         DefaultUserAgent,
		UpstreamRPS:       DefaultUpstreamRPS,
		UpstreamBurst:     DefaultUpstreamBurst,
		ListenAddr:        DefaultListenAddr,
		LatestLimit:       DefaultLatestLimit,
		DetailsLimit:      DefaultDetailsLimit,
		RateWindow:        DefaultRateWindow,
		SweepInterval:     DefaultSweepInterval,
		RedisPrefix:       DefaultRedisPrefix,
		CacheTTL:          DefaultCacheTTL,
		CacheMaxSizeBytes: DefaultCacheMaxSizeBytes,
	}
}

// Load builds a Config by combining defaults, an optional .env file,
// QUAKE_* environment variables and CLI flags, in increasing precedence.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	file, err := readEnvFile(flagString(cmd, "config"))
	if err != nil {
		return nil, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := file[EnvPrefix+key]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.applyFlags(cmd); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// readEnvFile reads path, or ./.env when path is empty. Only an explicitly
// named file is required to exist.
func readEnvFile(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	parse := func(key string, set func(string) error) {
		if v, ok := lookup(key); ok && v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(s string) (err error) { *dst, err = time.ParseDuration(s); return }
	}
	integer := func(dst *int) func(string) error {
		return func(s string) (err error) { *dst, err = strconv.Atoi(s); return }
	}

	str("LOG_LEVEL", &c.LogLevel)
	str("UPSTREAM_URL", &c.UpstreamURL)
	str("USER_AGENT", &c.UserAgent)
	str("PROXY", &c.Proxy)
	str("ADDR", &c.ListenAddr)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("REDIS_PREFIX", &c.RedisPrefix)

	parse("JSON_LOG", func(s string) (err error) { c.JSONLog, err = strconv.ParseBool(s); return })
	parse("HTTP_TIMEOUT", duration(&c.HTTPTimeout))
	parse("RATE_WINDOW", duration(&c.RateWindow))
	parse("SWEEP_INTERVAL", duration(&c.SweepInterval))
	parse("CACHE_TTL", duration(&c.CacheTTL))
	parse("LATEST_LIMIT", integer(&c.LatestLimit))
	parse("DETAILS_LIMIT", integer(&c.DetailsLimit))
	parse("UPSTREAM_BURST", integer(&c.UpstreamBurst))
	parse("REDIS_DB", integer(&c.RedisDB))
	parse("UPSTREAM_RPS", func(s string) (err error) { c.UpstreamRPS, err = strconv.ParseFloat(s, 64); return })
	parse("CACHE_MAX_SIZE", func(s string) (err error) { c.CacheMaxSizeBytes, err = strconv.ParseInt(s, 10, 64); return })

	return errors.Join(errs...)
}

func (c *Config) applyFlags(cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if s := flagString(cmd, "user-agent"); s != "" {
		c.UserAgent = s
	}
	if s := flagString(cmd, "proxy"); s != "" {
		c.Proxy = s
	}
	if s := flagString(cmd, "upstream"); s != "" {
		c.UpstreamURL = s
	}
	if s := flagString(cmd, "addr"); s != "" {
		c.ListenAddr = s
	}
	if s := flagString(cmd, "timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
		c.HTTPTimeout = d
	}
	if flagString(cmd, "json") == "true" {
		c.JSONLog = true
	}
	if flagString(cmd, "verbose") == "true" {
		c.LogLevel = "debug"
	}

	if f := cmd.Flags().Lookup("header"); f != nil {
		raw, err := cmd.Flags().GetStringArray("header")
		if err != nil {
			return err
		}
		h, err := headers.Parse(raw)
		if err != nil {
			return fmt.Errorf("--header: %w", err)
		}
		if len(h) > 0 {
			c.Headers = h
		}
	}

	return nil
}

func flagString(cmd *cobra.Command, name string) string {
	if cmd == nil {
		return ""
	}
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

// String returns a redacted representation for logging
func (c *Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "upstream=%s addr=%s timeout=%s ", c.UpstreamURL, c.ListenAddr, c.HTTPTimeout)
	fmt.Fprintf(&sb, "limits=%d/%d per %s ", c.LatestLimit, c.DetailsLimit, c.RateWindow)
	if c.RedisAddr != "" {
		fmt.Fprintf(&sb, "redis=%s/%d ", c.RedisAddr, c.RedisDB)
		if c.RedisPassword != "" {
			sb.WriteString("redis_password=*** ")
		}
	}
	fmt.Fprintf(&sb, "cache_ttl=%s", c.CacheTTL)
	return sb.String()
}
