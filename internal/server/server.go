// Package server exposes the scraper over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/law-makers/quake/internal/cache"
	"github.com/law-makers/quake/internal/engine"
	"github.com/law-makers/quake/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// Route paths double as rate limit endpoint names
const (
	PathLatest  = "/api/phivolcs/latest"
	PathDetails = "/api/phivolcs/details"
	PathHealth  = "/healthz"
)

// Options configures a Server
type Options struct {
	Addr          string
	LatestPolicy  ratelimit.Policy
	DetailsPolicy ratelimit.Policy
	// CacheTTL > 0 serves repeated latest requests from Cache
	CacheTTL time.Duration
	Now      func() time.Time
}

// Server serves the latest list and bulletin details
type Server struct {
	source  engine.Source
	limiter *ratelimit.WindowLimiter
	cache   cache.Cache
	opts    Options
	started time.Time
	handler http.Handler
	http    *http.Server
}

// New builds a Server. c may be nil when caching is disabled.
func New(source engine.Source, limiter *ratelimit.WindowLimiter, c cache.Cache, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if limiter == nil {
		limiter = ratelimit.NewWindowLimiter(nil, ratelimit.WithClock(opts.Now))
	}

	s := &Server{
		source:  source,
		limiter: limiter,
		cache:   c,
		opts:    opts,
		started: opts.Now(),
	}
	s.handler = Chain(s.routes(), Recovery, RequestID, Logging, CORS)
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(PathLatest, s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc(PathDetails, s.handleDetails).Methods(http.MethodGet)
	r.HandleFunc(PathHealth, s.handleHealth).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorBody{Error: "Not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: "Method not allowed"})
	})
	return r
}

// Handler returns the full middleware-wrapped handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.opts.Addr
}

// Serve accepts connections on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	log.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("API server shutting down")
	return s.http.Shutdown(ctx)
}
