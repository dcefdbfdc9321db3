package scholarnet

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kirillkom/study-workspace/internal/core/domain"
	"github.com/kirillkom/study-workspace/internal/infrastructure/resilience"
)

// idempotentOperations are replayed on transient failures.
var idempotentOperations = []string{opListDocuments}

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "backend status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("backend %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("backend %s status: %s: %s", e.Operation, e.Status, e.Body)
}

// Outcome places the status on the breaker's view of backend health. The
// backend answers 4xx for unknown documents and bad input, which says
// nothing about its health.
func (e *HTTPStatusError) Outcome() resilience.Outcome {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return resilience.Transient
	}
	if e.StatusCode >= 500 {
		return resilience.Fault
	}
	return resilience.Refused
}

func backendOutcome(err error) resilience.Outcome {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Outcome()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Transient
	}
	return resilience.Fault
}

// wrapFailure tags err with the operation kind, plus ErrTemporary when a
// later attempt could succeed and ErrDocumentNotFound on 404.
func (c *Client) wrapFailure(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	if c.exec.Temporary(err) {
		return fmt.Errorf("%s: %w: %w: %w", operation, kind, domain.ErrTemporary, err)
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %w: %w", operation, kind, domain.ErrDocumentNotFound, err)
	}
	return domain.WrapError(kind, operation, err)
}
