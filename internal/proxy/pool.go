package proxy

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCooldown is how long a failed proxy is skipped
const DefaultCooldown = 5 * time.Minute

// ProxyPool rotates upstream requests across a list of proxies and skips
// proxies that recently failed at the transport level
type ProxyPool struct {
	proxies  []*url.URL
	index    int
	cooldown time.Duration
	mu       sync.Mutex
	failed   map[string]time.Time
}

// Parse builds a pool from a comma separated list. Invalid entries are
// logged and skipped; an empty result returns nil.
func Parse(list string) *ProxyPool {
	var proxies []*url.URL
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			log.Warn().Str("proxy", raw).Msg("Ignoring invalid proxy")
			continue
		}
		proxies = append(proxies, u)
	}
	if len(proxies) == 0 {
		return nil
	}
	return NewProxyPool(proxies)
}

// NewProxyPool creates a new ProxyPool
func NewProxyPool(proxies []*url.URL) *ProxyPool {
	return &ProxyPool{
		proxies:  proxies,
		cooldown: DefaultCooldown,
		failed:   make(map[string]time.Time),
	}
}

// Len returns the number of configured proxies
func (p *ProxyPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}

// GetNext returns the next healthy proxy, or nil for an empty pool.
// When every proxy is cooling down the next one in order is returned anyway.
func (p *ProxyPool) GetNext() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return nil
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		key := proxy.String()
		if failTime, ok := p.failed[key]; ok {
			if time.Since(failTime) < p.cooldown {
				if p.index == start {
					return proxy
				}
				continue
			}
			delete(p.failed, key)
		}

		return proxy
	}
}

// MarkFailed marks a proxy as failed so it will be skipped for a while
func (p *ProxyPool) MarkFailed(proxy *url.URL) {
	if proxy == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy.String()] = time.Now()
	log.Debug().Str("proxy", proxy.Redacted()).Msg("Proxy marked failed")
}

// MarkHealthy clears the failure status of a proxy
func (p *ProxyPool) MarkHealthy(proxy *url.URL) {
	if proxy == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy.String())
}

type proxyKey struct{}

// ProxyFunc is an http.Transport Proxy hook that picks the next proxy and
// records the choice on the request context holder, if one is attached.
func (p *ProxyPool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(r *http.Request) (*url.URL, error) {
		u := p.GetNext()
		if holder, ok := r.Context().Value(proxyKey{}).(*Choice); ok {
			holder.set(u)
		}
		return u, nil
	}
}

// WithChoice attaches a Choice to ctx so the caller can learn which proxy
// the transport picked for the request
func WithChoice(ctx context.Context) (context.Context, *Choice) {
	c := &Choice{}
	return context.WithValue(ctx, proxyKey{}, c), c
}

// Choice records which proxy served a request
type Choice struct {
	mu  sync.Mutex
	url *url.URL
}

func (c *Choice) set(u *url.URL) {
	c.mu.Lock()
	c.url = u
	c.mu.Unlock()
}

// URL returns the chosen proxy, nil if none was used
func (c *Choice) URL() *url.URL {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}
