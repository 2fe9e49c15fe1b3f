package config

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

func validate(c *Config) error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if u, err := url.Parse(c.UpstreamURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream URL must be an absolute http(s) URL")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must be >= 0")
	}
	if c.UpstreamRPS < 0 {
		return fmt.Errorf("upstream rps must be >= 0")
	}
	if c.UpstreamRPS > 0 && c.UpstreamBurst <= 0 {
		return fmt.Errorf("upstream burst must be > 0 when rps is set")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.LatestLimit <= 0 || c.DetailsLimit <= 0 {
		return fmt.Errorf("rate limits must be > 0")
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("rate window must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be > 0")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis db must be >= 0")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must be >= 0")
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	return nil
}
