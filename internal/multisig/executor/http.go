package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"multisig/pkg/platform/circuit"
)

const defaultHostTimeout = 10 * time.Second

// ErrHostUnavailable is returned without contacting the host while its
// breaker is open.
var ErrHostUnavailable = errors.New("execution host unavailable")

// HTTPHost posts invocations as JSON to a remote execution host. Any non-2xx
// response is an execution failure. Transport errors and 5xx responses trip
// the optional breaker; 4xx responses are the host's own verdict and do not.
type HTTPHost struct {
	url     string
	client  *http.Client
	breaker *circuit.Breaker
}

type HTTPOption func(*HTTPHost)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTPHost) {
		if client != nil {
			h.client = client
		}
	}
}

func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(h *HTTPHost) {
		h.breaker = b
	}
}

func NewHTTPHost(url string, opts ...HTTPOption) *HTTPHost {
	h := &HTTPHost{
		url:    url,
		client: &http.Client{Timeout: defaultHostTimeout},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPHost) Invoke(ctx context.Context, inv Invocation) error {
	if h.breaker != nil && !h.breaker.Allow() {
		return ErrHostUnavailable
	}
	status, err := h.post(ctx, inv)
	if h.breaker != nil {
		if err != nil && (status == 0 || status >= 500) {
			h.breaker.RecordFailure()
		} else {
			h.breaker.RecordSuccess()
		}
	}
	return err
}

// post returns the response status, or 0 when no response was received.
func (h *HTTPHost) post(ctx context.Context, inv Invocation) (int, error) {
	body, err := json.Marshal(inv)
	if err != nil {
		return 0, fmt.Errorf("encode invocation: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build invocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", inv.ProposalID.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("invocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("execution host returned %s: %s", resp.Status, bytes.TrimSpace(detail))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
