package handler

import (
	"errors"
	"net/http"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/repository"
	"tripaudit/internal/audit/service"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fetchByID loads the document named by the :id path param for the guard.
func fetchByID[T any, PT model.AuditablePtr[T]](repo *service.AuditedRepository[T, PT], includeDeleted bool) ResourceFetcher {
	return fetchWhen(repo, func(echo.Context) bool { return includeDeleted })
}

// includeDeletedParam reports whether the caller asked for soft-deleted documents.
func includeDeletedParam(c echo.Context) bool {
	return c.QueryParam("include_deleted") == "true"
}

func fetchWhen[T any, PT model.AuditablePtr[T]](repo *service.AuditedRepository[T, PT], includeDeleted func(echo.Context) bool) ResourceFetcher {
	return func(c echo.Context) (any, error) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			return nil, service.ErrDocumentNotFound
		}
		doc, err := repo.FindByID(c.Request().Context(), id, includeDeleted(c))
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
}

// FetchProperty loads the property named by :id for ownership checks.
func FetchProperty(repo *PropertyRepo, includeDeleted bool) ResourceFetcher {
	return fetchByID(repo, includeDeleted)
}

// FetchBooking loads the booking named by :id for ownership checks.
func FetchBooking(repo *BookingRepo, includeDeleted bool) ResourceFetcher {
	return fetchByID(repo, includeDeleted)
}

// FetchBookingAsRequested is FetchBooking with soft-deleted bookings included
// when the request passes include_deleted=true.
func FetchBookingAsRequested(repo *BookingRepo) ResourceFetcher {
	return fetchWhen(repo, includeDeletedParam)
}

// guarded returns the document the guard fetched, or loads it when the route
// has no ownership check.
func guarded[T any, PT model.AuditablePtr[T]](c echo.Context, repo *service.AuditedRepository[T, PT], includeDeleted bool) (*T, error) {
	if doc, ok := GuardedResource(c).(*T); ok {
		return doc, nil
	}
	doc, err := fetchByID(repo, includeDeleted)(c)
	if err != nil {
		return nil, err
	}
	return doc.(*T), nil
}

func getEntity[T any, PT model.AuditablePtr[T]](c echo.Context, repo *service.AuditedRepository[T, PT]) error {
	doc, err := guarded(c, repo, includeDeletedParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func listEntities[T any, PT model.AuditablePtr[T]](c echo.Context, repo *service.AuditedRepository[T, PT], filter bson.M) error {
	var req model.ListEntitiesReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.Status != "" {
		filter["status"] = req.Status
	}

	docs, total, err := repo.Find(c.Request().Context(), filter, repository.ListOptions{
		IncludeDeleted: req.IncludeDeleted,
		Limit:          req.Limit,
		Skip:           req.Skip,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.ListResp[*T]{
		Data:       docs,
		Limit:      req.Limit,
		Skip:       req.Skip,
		TotalCount: total,
	})
}

func deleteEntity[T any, PT model.AuditablePtr[T]](c echo.Context, repo *service.AuditedRepository[T, PT]) error {
	var req model.DeleteEntityReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	id, _ := primitive.ObjectIDFromHex(req.ID)

	doc, err := repo.SoftDelete(c.Request().Context(), Actor(c), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func restoreEntity[T any, PT model.AuditablePtr[T]](c echo.Context, repo *service.AuditedRepository[T, PT]) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return respondError(c, service.ErrDocumentNotFound)
	}

	doc, err := repo.Restore(c.Request().Context(), Actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// updated is the response of the update endpoints.
type updated[T any] struct {
	Data    *T                  `json:"data"`
	Changes []model.FieldChange `json:"changes"`
}

// CreateProperty handles POST /properties
func (h *Handler) CreateProperty(c echo.Context) error {
	var req model.PropertyReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	actx := Actor(c)
	p := &model.Property{HostID: actx.UserID, OwnerID: actx.UserID}
	req.Apply(p)
	if err := h.Properties.Create(c.Request().Context(), actx, p); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdateProperty handles PUT /properties/:id
func (h *Handler) UpdateProperty(c echo.Context) error {
	var req model.PropertyReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	p, err := guarded(c, h.Properties, false)
	if err != nil {
		return respondError(c, err)
	}
	req.Apply(p)

	changes, err := h.Properties.Update(c.Request().Context(), Actor(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated[model.Property]{Data: p, Changes: changes})
}

// GetProperty handles GET /properties/:id
func (h *Handler) GetProperty(c echo.Context) error {
	return getEntity(c, h.Properties)
}

// ListProperties handles GET /properties
func (h *Handler) ListProperties(c echo.Context) error {
	filter := bson.M{}
	if host := c.QueryParam("host_id"); host != "" {
		filter["host_id"] = host
	}
	return listEntities(c, h.Properties, filter)
}

// DeleteProperty handles DELETE /properties/:id
func (h *Handler) DeleteProperty(c echo.Context) error {
	return deleteEntity(c, h.Properties)
}

// RestoreProperty handles POST /properties/:id/restore
func (h *Handler) RestoreProperty(c echo.Context) error {
	return restoreEntity(c, h.Properties)
}

// CreateBooking handles POST /bookings. The booking belongs to the caller.
func (h *Handler) CreateBooking(c echo.Context) error {
	var req model.BookingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx := c.Request().Context()
	propertyID, _ := primitive.ObjectIDFromHex(req.PropertyID)
	if _, err := h.Properties.FindByID(ctx, propertyID, false); err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			return respondError(c, &model.ErrorDetail{Code: "bad_request", Message: "property_id does not reference a live property"})
		}
		return respondError(c, err)
	}

	actx := Actor(c)
	b := &model.Booking{UserID: actx.UserID}
	req.Apply(b)
	if err := h.Bookings.Create(ctx, actx, b); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// UpdateBooking handles PUT /bookings/:id
func (h *Handler) UpdateBooking(c echo.Context) error {
	var req model.BookingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	b, err := guarded(c, h.Bookings, false)
	if err != nil {
		return respondError(c, err)
	}
	req.Apply(b)

	changes, err := h.Bookings.Update(c.Request().Context(), Actor(c), b)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated[model.Booking]{Data: b, Changes: changes})
}

// GetBooking handles GET /bookings/:id
func (h *Handler) GetBooking(c echo.Context) error {
	return getEntity(c, h.Bookings)
}

// ListBookings handles GET /bookings. Roles without booking:read:all only
// see their own bookings.
func (h *Handler) ListBookings(c echo.Context) error {
	filter := bson.M{}
	actx := Actor(c)
	if !h.Guard.Matrix.HasPermission(actx.UserRole, model.PermBookingReadAll) {
		filter["user_id"] = actx.UserID
	}
	if pid := c.QueryParam("property_id"); pid != "" {
		id, err := primitive.ObjectIDFromHex(pid)
		if err != nil {
			return respondError(c, &model.ErrorDetail{Code: "bad_request", Message: "property_id must be an object id"})
		}
		filter["property_id"] = id
	}
	return listEntities(c, h.Bookings, filter)
}

// DeleteBooking handles DELETE /bookings/:id
func (h *Handler) DeleteBooking(c echo.Context) error {
	return deleteEntity(c, h.Bookings)
}

// RestoreBooking handles POST /bookings/:id/restore
func (h *Handler) RestoreBooking(c echo.Context) error {
	return restoreEntity(c, h.Bookings)
}
