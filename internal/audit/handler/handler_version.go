package handler

import (
	"fmt"
	"net/http"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/repository"
	"tripaudit/internal/audit/service"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Permissions a version route needs on the document it reads or rewrites,
// per document type.
var (
	versionReadPermissions = map[string]string{
		model.EntityProperty: model.PermPropertyRead,
		model.EntityBooking:  model.PermBookingReadOwn,
	}
	versionWritePermissions = map[string]string{
		model.EntityProperty: model.PermPropertyUpdateOwn,
		model.EntityBooking:  model.PermBookingUpdateOwn,
	}
)

// VersionedDocument resolves the document named by :type and :id, soft
// deleted or not, with the read permission its type requires.
func (h *Handler) VersionedDocument() TargetResolver {
	return func(c echo.Context) (any, string, error) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid document id", service.ErrBadRequest)
		}
		return h.versionedDocument(c, c.Param("type"), id, versionReadPermissions)
	}
}

// VersionOwner resolves the document a stored version belongs to. The version
// id comes from the :versionId param, or from the query param when one is
// named. write selects the update permission instead of the read one.
func (h *Handler) VersionOwner(queryParam string, write bool) TargetResolver {
	perms := versionReadPermissions
	if write {
		perms = versionWritePermissions
	}
	return func(c echo.Context) (any, string, error) {
		raw := c.Param("versionId")
		if queryParam != "" {
			raw = c.QueryParam(queryParam)
		}
		versionID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid version id", service.ErrBadRequest)
		}
		v, err := h.Versions.FindVersion(c.Request().Context(), versionID)
		if err != nil {
			return nil, "", err
		}
		return h.versionedDocument(c, v.DocumentType, v.DocumentID, perms)
	}
}

func (h *Handler) versionedDocument(c echo.Context, documentType string, id primitive.ObjectID, perms map[string]string) (any, string, error) {
	permission, ok := perms[documentType]
	if !ok {
		return nil, "", service.ErrUnknownDocumentType
	}
	ctx := c.Request().Context()
	var (
		doc any
		err error
	)
	switch documentType {
	case model.EntityProperty:
		doc, err = h.Properties.FindByID(ctx, id, true)
	case model.EntityBooking:
		doc, err = h.Bookings.FindByID(ctx, id, true)
	}
	if err != nil {
		return nil, "", err
	}
	return doc, permission, nil
}

// GetVersionHistory handles GET /versions/:type/:id
func (h *Handler) GetVersionHistory(c echo.Context) error {
	var req model.GetVersionHistoryReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	id, _ := primitive.ObjectIDFromHex(req.DocumentID)

	history, err := h.Versions.GetVersionHistory(c.Request().Context(), id, req.DocumentType, repository.VersionQuery{
		Limit:       req.Limit,
		Skip:        req.Skip,
		IncludeData: req.IncludeData,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

// GetVersion handles GET /versions/:type/:id/:version
func (h *Handler) GetVersion(c echo.Context) error {
	var req model.GetVersionReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	id, _ := primitive.ObjectIDFromHex(req.DocumentID)

	v, err := h.Versions.GetVersion(c.Request().Context(), id, req.DocumentType, req.Version)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// CompareVersions handles GET /versions/compare?a=&b=
func (h *Handler) CompareVersions(c echo.Context) error {
	var req model.CompareVersionsReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	a, _ := primitive.ObjectIDFromHex(req.VersionA)
	b, _ := primitive.ObjectIDFromHex(req.VersionB)

	result, err := h.Versions.CompareVersions(c.Request().Context(), a, b)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// RestoreVersion handles POST /versions/:versionId/restore
func (h *Handler) RestoreVersion(c echo.Context) error {
	var req model.RestoreVersionReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	id, _ := primitive.ObjectIDFromHex(req.VersionID)

	doc, err := h.Versions.RestoreVersion(c.Request().Context(), id, Actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// CreateSnapshot handles POST /versions/:type/:id/snapshot
func (h *Handler) CreateSnapshot(c echo.Context) error {
	var req model.CreateSnapshotReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	id, _ := primitive.ObjectIDFromHex(req.DocumentID)

	v, err := h.Versions.Snapshot(c.Request().Context(), req.DocumentType, id, Actor(c), service.VersionOptions{
		Label:       req.Label,
		Notes:       req.Notes,
		Tags:        req.Tags,
		KeepForever: req.KeepForever,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}
