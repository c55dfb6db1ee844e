// Package reqctx carries per-request identity through API handlers.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type key int

const requestKey key = 0

// HeaderName is the header a request ID is read from and echoed in
const HeaderName = "X-Request-ID"

type RequestContext struct {
	RequestID string
	StartTime time.Time
}

// WithRequestContext attaches a request context to ctx. An empty or overlong
// id is replaced by a generated one.
func WithRequestContext(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 64 {
		id = generateID()
	}
	return context.WithValue(ctx, requestKey, &RequestContext{
		RequestID: id,
		StartTime: time.Now(),
	})
}

func GetRequestContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{
		RequestID: "unknown",
		StartTime: time.Now(),
	}
}

// ID returns the request ID of ctx, or "" outside a request
func ID(ctx context.Context) string {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc.RequestID
	}
	return ""
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// RequestError wraps an error with request context
type RequestError struct {
	RequestID string
	Err       error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RequestID, e.Err)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError from context
func NewRequestError(ctx context.Context, err error) error {
	rc := GetRequestContext(ctx)
	return &RequestError{
		RequestID: rc.RequestID,
		Err:       err,
	}
}
