package handler

import (
	"strings"

	"tripaudit/internal/audit/model"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys set by the middleware in this package.
const (
	ctxActor       = "actor"
	ctxRole        = "role"
	ctxPermissions = "permissions"
	ctxAccessLevel = "access_level"
	ctxResource    = "resource"
)

// Actor headers
const (
	HeaderUserID    = "x-user-id"
	HeaderUserName  = "x-user-name"
	HeaderUserRole  = "x-user-role"
	HeaderSessionID = "x-session-id"
)

func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := c.Request().Header.Get(echo.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, reqID)
		return next(c)
	}
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// ActorMiddleware builds the request's AuditContext from the identity headers
// set by the upstream gateway. Requests without x-user-id carry no actor.
func ActorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Request().Header
		actx := model.AuditContext{
			UserID:    strings.TrimSpace(h.Get(HeaderUserID)),
			UserName:  strings.TrimSpace(h.Get(HeaderUserName)),
			UserRole:  strings.ToLower(strings.TrimSpace(h.Get(HeaderUserRole))),
			SessionID: strings.TrimSpace(h.Get(HeaderSessionID)),
			IPAddress: c.RealIP(),
			UserAgent: c.Request().UserAgent(),
		}
		if actx.UserID == "" {
			actx = model.AuditContext{IPAddress: actx.IPAddress, UserAgent: actx.UserAgent}
		}
		c.Set(ctxActor, actx)
		return next(c)
	}
}

// Actor returns the AuditContext set by ActorMiddleware, or the zero value.
func Actor(c echo.Context) model.AuditContext {
	actx, _ := c.Get(ctxActor).(model.AuditContext)
	return actx
}

// GuardedResource returns the document fetched by an ownership check, if any.
func GuardedResource(c echo.Context) any {
	return c.Get(ctxResource)
}
