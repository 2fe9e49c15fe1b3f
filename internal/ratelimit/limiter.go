// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// UpstreamLimiter throttles outbound requests to the bulletin site, one
// bucket per host, so a batch of bulletin fetches never reaches upstream as
// a burst
type UpstreamLimiter interface {
	// Wait blocks until a request to pageURL may proceed or ctx is done
	Wait(ctx context.Context, pageURL string) error
}

// DomainLimiter is the token-bucket UpstreamLimiter
type DomainLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

var _ UpstreamLimiter = (*DomainLimiter)(nil)

// NewDomainLimiter allows rps requests per second per host with the given
// burst. It returns nil when rps <= 0, which disables upstream throttling.
// A non-positive burst falls back to 1.
func NewDomainLimiter(rps float64, burst int) *DomainLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &DomainLimiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Wait blocks on the host's bucket. URLs without a host pass through; the
// fetch itself reports them.
func (dl *DomainLimiter) Wait(ctx context.Context, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return dl.bucket(u.Host).Wait(ctx)
}

func (dl *DomainLimiter) bucket(host string) *rate.Limiter {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	b, ok := dl.buckets[host]
	if !ok {
		b = rate.NewLimiter(dl.rps, dl.burst)
		dl.buckets[host] = b
		log.Debug().Str("host", host).Float64("rps", float64(dl.rps)).Int("burst", dl.burst).Msg("Upstream bucket created")
	}
	return b
}
