package router

import (
	"tripaudit/internal/audit/handler"
	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/policy"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo, h *handler.Handler, gatherer prometheus.Gatherer) {
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			handler.HeaderUserID, handler.HeaderUserName, handler.HeaderUserRole, handler.HeaderSessionID,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID, echo.HeaderContentDisposition},
	}))

	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := e.Group("/api/v1")
	v1.Use(handler.RequestIDMiddleware)
	v1.Use(handler.ActorMiddleware)

	g := h.Guard

	// Audit trail
	audit := v1.Group("/audit", g.RequirePermission(model.PermAuditRead))
	audit.GET("/records/:type/:id", h.GetRecordAudit)
	audit.GET("/users/:userId", h.GetUserAudit)
	audit.GET("/recent", h.GetRecentAudit)
	audit.GET("/search", h.SearchAudit)
	audit.GET("/export", h.ExportAudit, g.RequirePermission(model.PermAuditExport))

	// Versions
	// Each route also checks the document the versions belong to, so `:own`
	// read and update scopes carry over to its history.
	document := g.AuthorizeTarget(h.VersionedDocument())
	versions := v1.Group("/versions")
	versions.GET("/compare", h.CompareVersions, g.RequirePermission(model.PermVersionRead), g.AuthorizeTarget(h.VersionOwner("a", false)))
	versions.GET("/:type/:id", h.GetVersionHistory, g.RequirePermission(model.PermVersionRead), document)
	versions.GET("/:type/:id/:version", h.GetVersion, g.RequirePermission(model.PermVersionRead), document)
	versions.POST("/:versionId/restore", h.RestoreVersion, g.RequirePermission(model.PermVersionRestore), g.AuthorizeTarget(h.VersionOwner("", true)))
	versions.POST("/:type/:id/snapshot", h.CreateSnapshot, g.RequirePermission(model.PermVersionCreate), document)

	// Properties
	liveProperty := handler.FetchProperty(h.Properties, false)
	anyProperty := handler.FetchProperty(h.Properties, true)
	properties := v1.Group("/properties")
	properties.POST("", h.CreateProperty, g.RequirePermission(model.PermPropertyCreate))
	properties.GET("", h.ListProperties, g.RequireAccessLevel(model.ResourceProperty, policy.AccessRead))
	properties.GET("/:id", h.GetProperty, g.RequirePermission(model.PermPropertyRead))
	properties.PUT("/:id", h.UpdateProperty, g.AuthorizeResource(model.PermPropertyUpdateOwn, liveProperty))
	properties.DELETE("/:id", h.DeleteProperty, g.AuthorizeResource(model.PermPropertyDeleteOwn, liveProperty))
	properties.POST("/:id/restore", h.RestoreProperty, g.AuthorizeResource(model.PermPropertyDeleteOwn, anyProperty))

	// Bookings
	liveBooking := handler.FetchBooking(h.Bookings, false)
	anyBooking := handler.FetchBooking(h.Bookings, true)
	bookings := v1.Group("/bookings")
	bookings.POST("", h.CreateBooking, g.RequirePermission(model.PermBookingCreate))
	bookings.GET("", h.ListBookings, g.RequireAnyPermission(model.PermBookingReadOwn, model.PermBookingReadAll))
	bookings.GET("/:id", h.GetBooking, g.AuthorizeResource(model.PermBookingReadOwn, handler.FetchBookingAsRequested(h.Bookings)))
	bookings.PUT("/:id", h.UpdateBooking, g.AuthorizeResource(model.PermBookingUpdateOwn, liveBooking))
	bookings.DELETE("/:id", h.DeleteBooking, g.AuthorizeResource(model.PermBookingDeleteOwn, liveBooking))
	bookings.POST("/:id/restore", h.RestoreBooking, g.AuthorizeResource(model.PermBookingDeleteOwn, anyBooking))
}
