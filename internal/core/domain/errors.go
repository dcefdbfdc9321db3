package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrStateViolation   = errors.New("state violation")
	ErrBusy             = fmt.Errorf("operation already in flight: %w", ErrStateViolation)
	ErrNoSession        = errors.New("no document session")
	ErrRouteNotFound    = errors.New("route not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrStaleResponse    = errors.New("stale response discarded")
	ErrAlreadyReleased  = errors.New("preview handle already released")

	// ErrTransport marks any non-success exchange with the backend.
	ErrTransport = errors.New("transport failure")
	ErrTemporary = errors.New("temporary failure")

	ErrUploadFailed    = fmt.Errorf("upload failed: %w", ErrTransport)
	ErrSummarizeFailed = fmt.Errorf("summarize failed: %w", ErrTransport)
	ErrAskFailed       = fmt.Errorf("ask failed: %w", ErrTransport)
	ErrQuizGenFailed   = fmt.Errorf("quiz generation failed: %w", ErrTransport)
	ErrListFailed      = fmt.Errorf("list documents failed: %w", ErrTransport)
	ErrDeleteFailed    = fmt.Errorf("delete document failed: %w", ErrTransport)
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// Reject builds a kind error without an underlying cause.
func Reject(kind error, operation, reason string) error {
	return fmt.Errorf("%s: %w: %s", operation, kind, reason)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
