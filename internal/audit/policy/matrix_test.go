package policy

import (
	"encoding/json"
	"testing"

	"tripaudit/internal/audit/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func loadTestMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := Default()
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func TestLoadMatrix(t *testing.T) {
	m := loadTestMatrix(t)
	assert.Equal(t, 1, m.Version())
	for _, role := range model.AllRoles {
		assert.True(t, m.IsRole(role), role)
		assert.NotEmpty(t, m.Permissions(role), role)
	}
	assert.False(t, m.IsRole("superuser"))
}

// Every embedded grant must round-trip through HasPermission, and nothing else may.
func TestHasPermissionMatchesMatrix(t *testing.T) {
	m := loadTestMatrix(t)

	data, err := permissionsFS.ReadFile("permissions/matrix.json")
	require.NoError(t, err)
	var file matrixFile
	require.NoError(t, json.Unmarshal(data, &file))

	universe := map[string]bool{}
	for _, perms := range file.Roles {
		for _, p := range perms {
			universe[p] = true
		}
	}

	for role, perms := range file.Roles {
		granted := map[string]bool{}
		for _, p := range perms {
			granted[p] = true
		}
		for p := range universe {
			assert.Equal(t, granted[p], m.HasPermission(role, p), "%s %s", role, p)
		}
	}
}

func TestHasPermissionExamples(t *testing.T) {
	m := loadTestMatrix(t)

	assert.False(t, m.HasPermission(model.RoleCustomer, model.PermBookingDeleteAll))
	assert.True(t, m.HasPermission(model.RoleAdmin, model.PermBookingDeleteAll))
	assert.True(t, m.HasPermission(model.RoleCustomer, model.PermBookingReadOwn))
	assert.False(t, m.HasPermission("nobody", model.PermBookingReadOwn))
	assert.False(t, m.HasPermission(model.RoleAdmin, "booking:teleport"))
}

func TestPermissionCombinators(t *testing.T) {
	m := loadTestMatrix(t)

	assert.True(t, m.HasAnyPermission(model.RoleCustomer, []string{model.PermBookingDeleteAll, model.PermBookingCreate}))
	assert.False(t, m.HasAnyPermission(model.RoleCustomer, []string{model.PermAuditRead, model.PermVersionRestore}))
	assert.False(t, m.HasAnyPermission(model.RoleCustomer, nil))

	assert.True(t, m.HasAllPermissions(model.RoleManager, []string{model.PermAuditRead, model.PermAuditExport}))
	assert.False(t, m.HasAllPermissions(model.RoleSupport, []string{model.PermAuditRead, model.PermAuditExport}))
	assert.True(t, m.HasAllPermissions(model.RoleSupport, nil))
}

func TestRolesWithPermission(t *testing.T) {
	m := loadTestMatrix(t)
	assert.Equal(t, []string{model.RoleAdmin, model.RoleManager, model.RoleSystem}, m.RolesWithPermission(model.PermVersionRestore))
}

func TestAccessLevel(t *testing.T) {
	m := loadTestMatrix(t)

	tests := []struct {
		role     string
		resource string
		expected AccessLevel
	}{
		{model.RoleAdmin, model.ResourceBooking, AccessFull},
		{model.RoleManager, model.ResourceProperty, AccessFull},
		{model.RoleCustomer, model.ResourceBooking, AccessDelete},
		{model.RoleHost, model.ResourceProperty, AccessDelete},
		{model.RoleSupport, model.ResourceBooking, AccessUpdate},
		{model.RoleCustomer, model.ResourceReview, AccessDelete},
		{model.RoleCustomer, model.ResourcePayment, AccessWrite},
		{model.RoleCustomer, model.ResourceFlight, AccessRead},
		{model.RoleSupport, model.ResourceAudit, AccessRead},
		{model.RoleCustomer, model.ResourceAudit, AccessNone},
		{"nobody", model.ResourceBooking, AccessNone},
	}

	for _, tc := range tests {
		t.Run(tc.role+"/"+tc.resource, func(t *testing.T) {
			assert.Equal(t, tc.expected, m.AccessLevel(tc.role, tc.resource))
		})
	}
}

func TestAccessLevelPrefixDoesNotLeak(t *testing.T) {
	m, err := ParseMatrix([]byte(`{"version":1,"roles":{"customer":["bookingx:read","booking:reader"]}}`))
	require.NoError(t, err)
	assert.Equal(t, AccessNone, m.AccessLevel(model.RoleCustomer, "booking"))
}

func TestParseAccessLevel(t *testing.T) {
	l, ok := ParseAccessLevel("update")
	assert.True(t, ok)
	assert.Equal(t, AccessUpdate, l)
	assert.Equal(t, "UPDATE", l.String())

	_, ok = ParseAccessLevel("root")
	assert.False(t, ok)
	assert.True(t, AccessFull > AccessDelete)
}

func TestParseMatrixRejectsBadInput(t *testing.T) {
	_, err := ParseMatrix([]byte(`{"roles":{"wizard":["booking:read"]}}`))
	assert.Error(t, err)

	_, err = ParseMatrix([]byte(`{"roles":{"customer":["booking"]}}`))
	assert.Error(t, err)

	_, err = ParseMatrix([]byte(`{"roles":{"customer":["booking:read:mine"]}}`))
	assert.Error(t, err)

	_, err = ParseMatrix([]byte(`not json`))
	assert.Error(t, err)
}

func TestIsResourceOwner(t *testing.T) {
	oid := primitive.NewObjectID()

	assert.True(t, IsResourceOwner("u1", map[string]any{"userId": "u1"}))
	assert.True(t, IsResourceOwner("u1", bson.M{"owner_id": "u1"}))
	assert.True(t, IsResourceOwner("u1", map[string]any{"createdBy": "u1"}))
	assert.True(t, IsResourceOwner(oid.Hex(), bson.M{"_id": oid}))
	assert.True(t, IsResourceOwner("42", map[string]any{"id": 42}))

	assert.False(t, IsResourceOwner("u1", map[string]any{"userId": "u2"}))
	assert.False(t, IsResourceOwner("", map[string]any{"userId": ""}))
	assert.False(t, IsResourceOwner("u1", nil))

	booking := &model.Booking{UserID: "cust-1"}
	booking.CreatedBy = "mgr-1"
	assert.True(t, IsResourceOwner("cust-1", booking))
	assert.True(t, IsResourceOwner("mgr-1", booking))
	assert.False(t, IsResourceOwner("cust-2", booking))
}

func TestCanAccess(t *testing.T) {
	m := loadTestMatrix(t)
	mine := map[string]any{"user_id": "x"}
	theirs := map[string]any{"user_id": "y"}

	assert.True(t, m.CanAccess(model.RoleCustomer, model.PermBookingReadOwn, "x", mine))
	assert.False(t, m.CanAccess(model.RoleCustomer, model.PermBookingReadOwn, "x", theirs))
	// :all supersedes ownership
	assert.True(t, m.CanAccess(model.RoleSupport, model.PermBookingReadOwn, "x", theirs))
	assert.True(t, m.CanAccess(model.RoleAdmin, model.PermBookingUpdateOwn, "x", theirs))

	assert.True(t, m.CanAccess(model.RoleCustomer, model.PermBookingCreate, "x", nil))
	assert.False(t, m.CanAccess(model.RoleCustomer, "bad", "x", mine))
}
