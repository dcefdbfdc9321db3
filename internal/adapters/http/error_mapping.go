package httpadapter

import (
	"net/http"

	"github.com/kirillkom/study-workspace/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNoSession),
		domain.IsKind(err, domain.ErrRouteNotFound),
		domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrAlreadyReleased):
		return http.StatusGone
	case domain.IsKind(err, domain.ErrStateViolation),
		domain.IsKind(err, domain.ErrStaleResponse):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
