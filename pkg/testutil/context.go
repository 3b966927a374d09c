package testutil

import (
	"context"
	"net/http"

	"multisig/pkg/domain"
	"multisig/pkg/requestcontext"
)

// WithCaller adds a verified caller identity to the request context.
// This simulates what the identity middleware does for authenticated requests.
func WithCaller(req *http.Request, caller domain.Identity) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithRequestID adds a request id to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
