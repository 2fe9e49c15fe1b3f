// internal/engine/static/scraper.go
package static

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/quake/internal/engine"
	"github.com/law-makers/quake/internal/proxy"
	"github.com/law-makers/quake/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// DefaultUserAgent is sent when none is configured; the bulletin site
// rejects Go's default agent
const DefaultUserAgent = "Mozilla/5.0"

// Options configures a Fetcher
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   http.Header
	Proxies   *proxy.ProxyPool
}

// Fetcher downloads and parses upstream HTML pages.
// It holds no per-request state and is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	limiter   ratelimit.UpstreamLimiter
	proxies   *proxy.ProxyPool
	userAgent string
	headers   http.Header
}

// NewTransport returns the transport used for upstream requests. The
// bulletin site serves a broken certificate chain, so verification is off.
func NewTransport(proxies *proxy.ProxyPool) *http.Transport {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
	}
	if proxies.Len() > 0 {
		transport.Proxy = proxies.ProxyFunc()
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return transport
}

// NewClient returns an http.Client on top of NewTransport
func NewClient(opts Options) *http.Client {
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: NewTransport(opts.Proxies),
	}
}

// New creates a Fetcher. A nil client is replaced by NewClient(opts).
func New(client *http.Client, lim ratelimit.UpstreamLimiter, opts Options) *Fetcher {
	if client == nil {
		client = NewClient(opts)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Fetcher{
		client:    client,
		limiter:   lim,
		proxies:   opts.Proxies,
		userAgent: ua,
		headers:   opts.Headers,
	}
}

// Name returns the name of this fetcher
func (f *Fetcher) Name() string {
	return "StaticFetcher"
}

// Client exposes the underlying client so collaborators (map downloads)
// share the relaxed TLS policy
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// UserAgent returns the agent sent upstream
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// Fetch retrieves pageURL and parses it as HTML. Every failure is an
// *engine.EngineError; nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	start := time.Now()

	log.Debug().
		Str("url", pageURL).
		Str("fetcher", f.Name()).
		Msg("Starting fetch")

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, pageURL); err != nil {
			return nil, engine.NewEngineError(engine.ErrCodeNetworkError, "upstream rate limit wait aborted", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeInvalidURL, "failed to create request", err).
			WithDetail("url", pageURL)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for key, values := range f.headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	var choice *proxy.Choice
	if f.proxies.Len() > 0 {
		var pctx context.Context
		pctx, choice = proxy.WithChoice(req.Context())
		req = req.WithContext(pctx)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if choice != nil {
			f.proxies.MarkFailed(choice.URL())
		}
		return nil, engine.NewEngineError(engine.ErrCodeNetworkError, "failed to fetch URL", err).
			WithDetail("url", pageURL)
	}
	defer resp.Body.Close()

	if choice != nil {
		f.proxies.MarkHealthy(choice.URL())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, engine.NewEngineError(engine.ErrCodeUpstreamStatus,
			fmt.Sprintf("upstream answered %s", resp.Status), engine.ErrUpstreamStatus).
			WithDetail("url", pageURL).
			WithDetail("status", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !isHTML(ct) {
		return nil, engine.NewEngineError(engine.ErrCodeUnsupportedType,
			fmt.Sprintf("expected HTML, got %q", ct), engine.ErrUnsupportedType).
			WithDetail("url", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeParseError, "failed to parse HTML", err).
			WithDetail("url", pageURL)
	}

	log.Debug().
		Str("url", pageURL).
		Int("status", resp.StatusCode).
		Dur("response_time", time.Since(start)).
		Msg("Fetch completed")

	return doc, nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
