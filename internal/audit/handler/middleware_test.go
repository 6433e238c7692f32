package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/repository"
	"tripaudit/internal/audit/service"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorMiddleware(t *testing.T) {
	e := echo.New()
	var got model.AuditContext
	e.GET("/", func(c echo.Context) error {
		got = Actor(c)
		return c.NoContent(http.StatusNoContent)
	}, ActorMiddleware)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, " u1 ")
	req.Header.Set(HeaderUserName, "Alice")
	req.Header.Set(HeaderUserRole, "HOST")
	req.Header.Set(HeaderSessionID, "sess-9")
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	req.Header.Set("User-Agent", "curl/8")
	e.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, model.AuditContext{
		UserID:    "u1",
		UserName:  "Alice",
		UserRole:  model.RoleHost,
		SessionID: "sess-9",
		IPAddress: "203.0.113.7",
		UserAgent: "curl/8",
	}, got)

	// no user id: no actor, only the connection details
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserRole, model.RoleAdmin)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	e.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, got.Authenticated())
	assert.Empty(t, got.UserRole)
	assert.Equal(t, "203.0.113.7", got.IPAddress)
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware)
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "given")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "given", rec.Header().Get(echo.HeaderXRequestID))
}

func TestHTTPError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
		{service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{service.ErrDocumentNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("load: %w", service.ErrVersionNotFound), http.StatusNotFound, "not_found"},
		{service.ErrVersionMismatch, http.StatusBadRequest, "bad_request"},
		{fmt.Errorf("%w: Spaceship", service.ErrUnknownDocumentType), http.StatusBadRequest, "bad_request"},
		{service.ErrNotDeleted, http.StatusConflict, "conflict"},
		{fmt.Errorf("create version 3: %w", repository.ErrDuplicate), http.StatusConflict, "conflict"},
		{&model.ErrorDetail{Code: "bad_request", Message: "limit too large"}, http.StatusBadRequest, "bad_request"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, body := httpError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Error.Code)
			require.NotEmpty(t, body.Error.Message)
		})
	}
}
