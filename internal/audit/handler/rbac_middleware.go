package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/policy"
	"tripaudit/internal/audit/service"
	"tripaudit/internal/audit/util"

	"github.com/labstack/echo/v4"
)

// ResourceFetcher loads the document a request targets. It returns
// service.ErrDocumentNotFound (or a nil resource) when there is none.
type ResourceFetcher func(c echo.Context) (any, error)

// TargetResolver loads the document a request targets together with the
// permission the actor needs on it, for routes where that depends on the
// document type.
type TargetResolver func(c echo.Context) (resource any, permission string, err error)

// Guard builds route middleware that checks the request's actor against the
// permission matrix. It must run after ActorMiddleware.
type Guard struct {
	Matrix  *policy.Matrix
	Metrics *util.Metrics
	Logger  *slog.Logger
}

func NewGuard(matrix *policy.Matrix, metrics *util.Metrics) *Guard {
	return &Guard{Matrix: matrix, Metrics: metrics, Logger: util.GetLogger()}
}

// RequirePermission admits actors whose role holds permission.
func (g *Guard) RequirePermission(permission string) echo.MiddlewareFunc {
	return g.check(func(c echo.Context, role string) *denial {
		if g.Matrix.HasPermission(role, permission) {
			return nil
		}
		return &denial{required: permission, message: "Missing permission " + permission}
	})
}

// RequireAnyPermission admits actors whose role holds at least one of permissions.
func (g *Guard) RequireAnyPermission(permissions ...string) echo.MiddlewareFunc {
	return g.check(func(c echo.Context, role string) *denial {
		if g.Matrix.HasAnyPermission(role, permissions) {
			return nil
		}
		return &denial{required: permissions, message: "Requires any of the listed permissions"}
	})
}

// RequireAllPermissions admits actors whose role holds every one of permissions.
func (g *Guard) RequireAllPermissions(permissions ...string) echo.MiddlewareFunc {
	return g.check(func(c echo.Context, role string) *denial {
		if g.Matrix.HasAllPermissions(role, permissions) {
			return nil
		}
		return &denial{required: permissions, message: "Requires all of the listed permissions"}
	})
}

// RequireRole admits actors holding one of roles.
func (g *Guard) RequireRole(roles ...string) echo.MiddlewareFunc {
	return g.check(func(c echo.Context, role string) *denial {
		for _, r := range roles {
			if r == role {
				return nil
			}
		}
		return &denial{required: roles, message: "Role not allowed"}
	})
}

// RequireAccessLevel admits actors whose access level on resource is at least minLevel.
func (g *Guard) RequireAccessLevel(resource string, minLevel policy.AccessLevel) echo.MiddlewareFunc {
	return g.check(func(c echo.Context, role string) *denial {
		level := g.Matrix.AccessLevel(role, resource)
		c.Set(ctxAccessLevel, level)
		if level >= minLevel {
			return nil
		}
		return &denial{
			required: resource + ":" + minLevel.String(),
			message:  "Access level " + level.String() + " on " + resource + " is below " + minLevel.String(),
		}
	})
}

// CheckResourceOwnership fetches the target and admits its owner. Admins and
// managers bypass the ownership comparison but the target must still exist.
// The fetched document is available to the handler through GuardedResource.
func (g *Guard) CheckResourceOwnership(fetch ResourceFetcher) echo.MiddlewareFunc {
	return g.checkResource(withPermission(fetch, ""), func(actx model.AuditContext, resource any, _ string) *denial {
		if actx.UserRole == model.RoleAdmin || actx.UserRole == model.RoleManager {
			return nil
		}
		if policy.IsResourceOwner(actx.UserID, resource) {
			return nil
		}
		return &denial{required: "owner", message: "You do not own this resource"}
	})
}

// AuthorizeResource checks permission against the fetched target. A `:own`
// permission is satisfied by the owner, or by any role holding the matching
// `:all` grant.
func (g *Guard) AuthorizeResource(permission string, fetch ResourceFetcher) echo.MiddlewareFunc {
	return g.AuthorizeTarget(withPermission(fetch, permission))
}

// AuthorizeTarget is AuthorizeResource with the permission chosen per request
// by resolve.
func (g *Guard) AuthorizeTarget(resolve TargetResolver) echo.MiddlewareFunc {
	return g.checkResource(resolve, func(actx model.AuditContext, resource any, permission string) *denial {
		if g.Matrix.CanAccess(actx.UserRole, permission, actx.UserID, resource) {
			return nil
		}
		return &denial{required: permission, message: "Missing permission " + permission}
	})
}

func withPermission(fetch ResourceFetcher, permission string) TargetResolver {
	return func(c echo.Context) (any, string, error) {
		resource, err := fetch(c)
		return resource, permission, err
	}
}

type denial struct {
	required any
	message  string
}

func (g *Guard) check(rule func(c echo.Context, role string) *denial) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actx, ok := g.authenticate(c)
			if !ok {
				return g.unauthenticated(c)
			}
			if d := rule(c, actx.UserRole); d != nil {
				return g.forbidden(c, actx, d)
			}
			g.attach(c, actx)
			return next(c)
		}
	}
}

func (g *Guard) checkResource(resolve TargetResolver, rule func(actx model.AuditContext, resource any, permission string) *denial) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actx, ok := g.authenticate(c)
			if !ok {
				return g.unauthenticated(c)
			}

			resource, permission, err := resolve(c)
			if err != nil && !errors.Is(err, service.ErrDocumentNotFound) {
				return respondError(c, err)
			}
			if err != nil || resource == nil {
				g.countDenial("not_found")
				return respondError(c, service.ErrDocumentNotFound)
			}

			if d := rule(actx, resource, permission); d != nil {
				return g.forbidden(c, actx, d)
			}
			c.Set(ctxResource, resource)
			g.attach(c, actx)
			return next(c)
		}
	}
}

// authenticate requires an actor whose role the matrix knows.
func (g *Guard) authenticate(c echo.Context) (model.AuditContext, bool) {
	actx := Actor(c)
	if !actx.Authenticated() || !g.Matrix.IsRole(actx.UserRole) {
		return actx, false
	}
	return actx, true
}

func (g *Guard) attach(c echo.Context, actx model.AuditContext) {
	c.Set(ctxRole, actx.UserRole)
	c.Set(ctxPermissions, g.Matrix.Permissions(actx.UserRole))
}

func (g *Guard) unauthenticated(c echo.Context) error {
	g.countDenial("unauthenticated")
	return c.JSON(http.StatusUnauthorized, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:      "unauthorized",
			Message:   "Authentication required",
			RequestID: requestID(c),
		},
	})
}

func (g *Guard) forbidden(c echo.Context, actx model.AuditContext, d *denial) error {
	g.countDenial("forbidden")
	g.Logger.InfoContext(c.Request().Context(), "guard denied request",
		"user_id", actx.UserID,
		"role", actx.UserRole,
		"path", c.Path(),
		"required", d.required,
	)
	return c.JSON(http.StatusForbidden, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:      "forbidden",
			Message:   d.message,
			RequestID: requestID(c),
			Required:  d.required,
			Current:   actx.UserRole,
		},
	})
}

func (g *Guard) countDenial(reason string) {
	if g.Metrics != nil {
		g.Metrics.GuardDenialsTotal.WithLabelValues(reason).Inc()
	}
}

// Role returns the role the guard resolved for the request.
func Role(c echo.Context) string {
	role, _ := c.Get(ctxRole).(string)
	return role
}

// Permissions returns the permissions of the resolved role.
func Permissions(c echo.Context) []string {
	perms, _ := c.Get(ctxPermissions).([]string)
	return perms
}

// AccessLevel returns the level resolved by RequireAccessLevel.
func AccessLevel(c echo.Context) policy.AccessLevel {
	level, _ := c.Get(ctxAccessLevel).(policy.AccessLevel)
	return level
}
