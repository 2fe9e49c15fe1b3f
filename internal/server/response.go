package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/law-makers/quake/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the payload of every non-429 error response
type ErrorBody struct {
	Error string `json:"error"`
}

// RateLimitBody is the payload of a 429 response
type RateLimitBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"resetAt"`
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"Internal server error"}`)
	}
	writeRaw(w, status, payload)
}

func writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func setRateLimitHeaders(h http.Header, res ratelimit.Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.UnixMilli(), 10))
}

// retryAfterSeconds rounds the time left until reset up to whole seconds
func retryAfterSeconds(reset, now time.Time) int {
	secs := int(math.Ceil(float64(reset.Sub(now)) / float64(time.Second)))
	if secs < 0 {
		return 0
	}
	return secs
}

func writeTooManyRequests(w http.ResponseWriter, res ratelimit.Result, now time.Time) {
	retryAfter := retryAfterSeconds(res.Reset, now)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, RateLimitBody{
		Error:     "Too many requests",
		Message:   "Rate limit exceeded. Please try again in " + strconv.Itoa(retryAfter) + " seconds.",
		Limit:     res.Limit,
		Remaining: res.Remaining,
		ResetAt:   res.Reset.UTC().Format(isoMillis),
	})
}
