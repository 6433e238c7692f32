package handler

import (
	"fmt"
	"net/http"
	"time"

	"tripaudit/internal/audit/model"

	"github.com/labstack/echo/v4"
)

// GetRecordAudit handles GET /audit/records/:type/:id
func (h *Handler) GetRecordAudit(c echo.Context) error {
	var req model.GetRecordAuditReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.AuditLog.ListForRecord(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetUserAudit handles GET /audit/users/:userId
func (h *Handler) GetUserAudit(c echo.Context) error {
	var req model.GetUserAuditReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.AuditLog.ListForUser(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetRecentAudit handles GET /audit/recent
func (h *Handler) GetRecentAudit(c echo.Context) error {
	var req model.GetRecentAuditReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.AuditLog.ListRecent(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// SearchAudit handles GET /audit/search
func (h *Handler) SearchAudit(c echo.Context) error {
	var req model.SearchAuditReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.AuditLog.Search(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ExportAudit handles GET /audit/export. The body is streamed, so a store
// failure part way through truncates the file rather than changing the status.
func (h *Handler) ExportAudit(c echo.Context) error {
	var req model.ExportAuditReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	filename := fmt.Sprintf("audit-logs-%s.csv", time.Now().UTC().Format("20060102-150405"))
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	res.WriteHeader(http.StatusOK)

	n, err := h.AuditLog.ExportCSV(c.Request().Context(), res, req.Filter())
	if err != nil {
		h.AuditLog.Logger.ErrorContext(c.Request().Context(), "audit export failed", "rows", n, "error", err)
	}
	return nil
}
