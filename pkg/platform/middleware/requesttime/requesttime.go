// Package requesttime pins "now" for the lifetime of a request so every
// timestamp derived while serving it agrees.
package requesttime

import (
	"net/http"
	"time"

	"multisig/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and stores
// it in the context. Proposal execution stamps executed_at from this value.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
