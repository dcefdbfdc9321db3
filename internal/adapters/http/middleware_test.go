package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/study-workspace/internal/core/domain"
)

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	h := newHarness(t, Options{RateLimitRPS: 1, RateLimitBurst: 1})

	res1 := h.do(t, http.MethodGet, "/v1/view", nil)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := h.do(t, http.MethodGet, "/v1/view", nil)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}

	if res := h.do(t, http.MethodGet, "/healthz", nil); res.Code != http.StatusOK {
		t.Fatalf("health check must bypass the limiter, got %d", res.Code)
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	rejected := 0
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond, func() { rejected++ })

	go func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/view", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodGet, "/v1/view", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}
	if rejected != 1 {
		t.Fatalf("expected reject hook called once, got %d", rejected)
	}

	var resp map[string]any
	if err := json.NewDecoder(bytes.NewReader(res2.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode overload response: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("expected overload error message in response")
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := newHarness(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	h.handler.ServeHTTP(res, req)
	if got := res.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	res = h.do(t, http.MethodGet, "/healthz", nil)
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		err  error
		want int
	}{
		{domain.Reject(domain.ErrInvalidInput, "op", "bad"), http.StatusBadRequest},
		{domain.Reject(domain.ErrNoSession, "op", "none"), http.StatusNotFound},
		{domain.Reject(domain.ErrRouteNotFound, "op", "/x"), http.StatusNotFound},
		{domain.Reject(domain.ErrBusy, "op", "pending"), http.StatusConflict},
		{domain.Reject(domain.ErrStaleResponse, "op", "reset"), http.StatusConflict},
		{domain.Reject(domain.ErrAlreadyReleased, "op", "h"), http.StatusGone},
		{domain.WrapError(domain.ErrAskFailed, "ask", cause), http.StatusBadGateway},
		{domain.WrapError(domain.ErrUploadFailed, "upload", domain.WrapError(domain.ErrTemporary, "upload", cause)), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrDeleteFailed, "delete", domain.WrapError(domain.ErrDocumentNotFound, "delete", cause)), http.StatusNotFound},
		{cause, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
