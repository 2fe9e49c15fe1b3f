package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/law-makers/quake/internal/cache"
	"github.com/law-makers/quake/internal/engine"
	"github.com/law-makers/quake/internal/ratelimit"
	"github.com/law-makers/quake/internal/reqctx"
	urlutil "github.com/law-makers/quake/internal/utils/url"
	"github.com/rs/zerolog/log"
)

const latestCacheKey = "latest"

// admit applies the endpoint's window and writes the rate limit headers.
// It writes the 429 response itself and reports false when rejected.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, endpoint string, policy ratelimit.Policy) bool {
	client := ratelimit.ClientIdentifier(r)
	res := s.limiter.Check(r.Context(), client, endpoint, policy)

	setRateLimitHeaders(w.Header(), res)
	if res.Success {
		return true
	}

	log.Warn().
		Str("request_id", reqctx.GetRequestContext(r.Context()).RequestID).
		Str("client", client).
		Str("endpoint", endpoint).
		Time("reset", res.Reset).
		Msg("Rate limit exceeded")

	writeTooManyRequests(w, res, s.opts.Now())
	return false
}

// fail logs the diagnostic and answers 500 with a fixed message. Upstream
// fetch failures are logged at warn; anything else is a server bug.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	code := engine.CodeOf(err)
	event := log.Error()
	if engine.IsFetchError(err) {
		event = log.Warn()
	}
	err = reqctx.NewRequestError(r.Context(), err)
	event.Err(err).Str("code", string(code)).Str("path", r.URL.Path).Msg(message)
	writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: message})
}

// upstreamContext detaches the upstream fetch from the client connection: a
// request abandoned mid-fetch leaves the fetch to finish (or time out on the
// HTTP client) so its result still lands in the cache.
func upstreamContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r, PathLatest, s.opts.LatestPolicy) {
		return
	}

	if s.cacheEnabled() {
		if payload, ok := s.cache.Get(latestCacheKey); ok {
			w.Header().Set("X-Cache", "HIT")
			writeRaw(w, http.StatusOK, payload)
			return
		}
	}

	list, err := s.source.FetchLatest(upstreamContext(r))
	if err != nil {
		s.fail(w, r, "Failed to fetch PHIVOLCS data", err)
		return
	}

	payload, err := json.Marshal(list)
	if err != nil {
		s.fail(w, r, "Failed to fetch PHIVOLCS data", err)
		return
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(latestCacheKey, payload, s.opts.CacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache latest list")
		}
		w.Header().Set("X-Cache", "MISS")
	}

	writeRaw(w, http.StatusOK, payload)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r, PathDetails, s.opts.DetailsPolicy) {
		return
	}

	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "Missing url parameter"})
		return
	}
	if err := urlutil.ValidateURL(pageURL); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "Invalid url parameter"})
		return
	}

	d, err := s.source.FetchDetails(upstreamContext(r), pageURL)
	if err != nil {
		s.fail(w, r, "Failed to fetch details", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// HealthBody is the payload of the health endpoint
type HealthBody struct {
	Status string       `json:"status"`
	Source string       `json:"source"`
	Uptime string       `json:"uptime"`
	Cache  *cache.Stats `json:"cache,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := HealthBody{
		Status: "ok",
		Source: s.source.Name(),
		Uptime: s.opts.Now().Sub(s.started).Round(time.Second).String(),
	}
	if mc, ok := s.cache.(*cache.MemoryCache); ok && mc != nil {
		stats := mc.Stats()
		body.Cache = &stats
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) cacheEnabled() bool {
	return s.cache != nil && s.opts.CacheTTL > 0
}
