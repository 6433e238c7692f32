package handler

import (
	"net/http"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/service"

	"github.com/labstack/echo/v4"
)

type (
	PropertyRepo = service.AuditedRepository[model.Property, *model.Property]
	BookingRepo  = service.AuditedRepository[model.Booking, *model.Booking]
)

type Handler struct {
	AuditLog   *service.AuditLogService
	Versions   *service.VersionService
	Properties *PropertyRepo
	Bookings   *BookingRepo
	Guard      *Guard
}

func NewHandler(auditLog *service.AuditLogService, versions *service.VersionService, properties *PropertyRepo, bookings *BookingRepo, guard *Guard) *Handler {
	return &Handler{
		AuditLog:   auditLog,
		Versions:   versions,
		Properties: properties,
		Bookings:   bookings,
		Guard:      guard,
	}
}

// HealthCheck handles GET /health
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// bind fills req from the path, query and body and runs its Validate. The
// returned error is ready for respondError.
func bind(c echo.Context, req interface{ Validate() error }) error {
	if err := c.Bind(req); err != nil {
		return &model.ErrorDetail{Code: "bad_request", Message: "Invalid parameters"}
	}
	return req.Validate()
}
