package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that urlStr is an absolute http(s) URL with a host
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string.
// Unparseable input is returned unchanged.
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// Origin returns scheme://host of urlStr, or urlStr without a trailing
// slash when it cannot be parsed
func Origin(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return strings.TrimRight(urlStr, "/")
	}
	return u.Scheme + "://" + u.Host
}

// ResolveUpstreamPath turns a bulletin link as written in the upstream table
// (Windows-style backslashes, relative to the site root) into an absolute URL
func ResolveUpstreamPath(origin, href string) string {
	href = strings.ReplaceAll(strings.TrimSpace(href), `\`, "/")
	return ResolveURL(strings.TrimRight(origin, "/")+"/", href)
}
