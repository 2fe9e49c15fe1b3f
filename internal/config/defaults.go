package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultUpstreamURL       = "https://earthquake.phivolcs.dost.gov.ph"
	DefaultUserAgent         = "Mozilla/5.0"
	DefaultHTTPTimeout       = 0 * time.Second
	DefaultListenAddr        = ":8080"
	DefaultLatestLimit       = 20
	DefaultDetailsLimit      = 30
	DefaultRateWindow        = 5 * time.Minute
	DefaultSweepInterval     = 10 * time.Minute
	DefaultUpstreamRPS       = 5.0
	DefaultUpstreamBurst     = 10
	DefaultRedisPrefix       = "quake:ratelimit:"
	DefaultCacheTTL          = 0 * time.Second
	DefaultCacheMaxSizeBytes = 8 * 1024 * 1024 // 8MB
	DefaultEnvFile           = ".env"
	EnvPrefix                = "QUAKE_"
)
