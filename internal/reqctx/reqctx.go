// Package reqctx carries per-request identity through handlers and fetches.
package reqctx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type key int

const requestKey key = 0

// RequestContext identifies one API request
type RequestContext struct {
	RequestID string
	ClientID  string
	StartTime time.Time
}

// WithRequestContext attaches a RequestContext. An empty requestID gets a
// fresh UUID.
func WithRequestContext(ctx context.Context, requestID, clientID string) context.Context {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return context.WithValue(ctx, requestKey, &RequestContext{
		RequestID: requestID,
		ClientID:  clientID,
		StartTime: time.Now(),
	})
}

// Elapsed is the time since the request entered the server
func (rc *RequestContext) Elapsed() time.Duration {
	return time.Since(rc.StartTime)
}

// GetRequestContext returns the attached RequestContext or a placeholder
func GetRequestContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{
		RequestID: "unknown",
		ClientID:  "unknown",
		StartTime: time.Now(),
	}
}

// RequestError tags a server-side failure with the request and client it
// happened for. It is logged, never sent to the client.
type RequestError struct {
	RequestID string
	ClientID  string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s client=%s] %v", e.RequestID, e.ClientID, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError wraps err with the identity stored in ctx
func NewRequestError(ctx context.Context, err error) error {
	rc := GetRequestContext(ctx)
	return &RequestError{
		RequestID: rc.RequestID,
		ClientID:  rc.ClientID,
		Err:       err,
	}
}
