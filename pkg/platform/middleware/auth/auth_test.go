package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"multisig/pkg/domain"
	"multisig/pkg/requestcontext"
)

type stubValidator struct {
	identity domain.Identity
	err      error
}

func (s stubValidator) ValidateCaller(string) (domain.Identity, error) {
	return s.identity, s.err
}

func TestRequireCaller(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var id domain.Identity
	id[0] = 0x42

	newHandler := func(v CallerValidator, seen *domain.Identity) http.Handler {
		return RequireCaller(v, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := requestcontext.Caller(r.Context())
			assert.True(t, ok)
			*seen = caller
			w.WriteHeader(http.StatusNoContent)
		}))
	}

	t.Run("valid token sets caller", func(t *testing.T) {
		var seen domain.Identity
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		newHandler(stubValidator{identity: id}, &seen).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, id, seen)
	})

	t.Run("missing header", func(t *testing.T) {
		var seen domain.Identity
		rr := httptest.NewRecorder()
		newHandler(stubValidator{identity: id}, &seen).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`, rr.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		var seen domain.Identity
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rr := httptest.NewRecorder()
		newHandler(stubValidator{err: errors.New("bad sig")}, &seen).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.True(t, seen.IsZero())
	})
}
