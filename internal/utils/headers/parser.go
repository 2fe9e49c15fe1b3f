package headers

import (
	"fmt"
	"net/http"
	"strings"
)

// Parse converts "Key: Value" strings from the -H flag into an http.Header.
// An entry without a colon or with an empty key is an error.
func Parse(h []string) (http.Header, error) {
	out := make(http.Header, len(h))
	for _, hdr := range h {
		key, value, ok := strings.Cut(hdr, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed header %q: expected \"Key: Value\"", hdr)
		}
		out.Add(key, strings.TrimSpace(value))
	}
	return out, nil
}
