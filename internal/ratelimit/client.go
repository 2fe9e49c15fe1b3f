package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient is the shared bucket for requests without proxy headers
const UnknownClient = "unknown"

// ClientIdentifier resolves the rate limit identity of a request: the first
// X-Forwarded-For entry, else X-Real-IP, else UnknownClient.
//
// The remote address is deliberately not consulted, so every client reaching
// the server without a proxy in front shares one bucket.
func ClientIdentifier(r *http.Request) string {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return UnknownClient
}
