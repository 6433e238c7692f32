package handler

import (
	"errors"
	"net/http"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/repository"
	"tripaudit/internal/audit/service"

	"github.com/labstack/echo/v4"
)

// Helper to map errors to HTTP status and body
func httpError(err error) (int, model.ErrorResponse) {
	var status int
	var code string
	msg := err.Error()

	var detail *model.ErrorDetail
	switch {
	case errors.As(err, &detail):
		return http.StatusBadRequest, model.ErrorResponse{Error: *detail}
	case errors.Is(err, service.ErrUnauthenticated):
		status, code, msg = http.StatusUnauthorized, "unauthorized", "Authentication required"
	case errors.Is(err, service.ErrForbidden):
		status, code, msg = http.StatusForbidden, "forbidden", "Permission denied"
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrVersionNotFound),
		errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrVersionMismatch),
		errors.Is(err, service.ErrUnknownDocumentType),
		errors.Is(err, service.ErrBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotDeleted),
		errors.Is(err, repository.ErrDuplicate):
		status, code = http.StatusConflict, "conflict"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}

	return status, model.ErrorResponse{
		Error: model.ErrorDetail{Code: code, Message: msg},
	}
}

// respondError writes err as the standard error envelope, tagged with the request id.
func respondError(c echo.Context, err error) error {
	status, body := httpError(err)
	body.Error.RequestID = requestID(c)
	return c.JSON(status, body)
}

