package model

// Roles
const (
	RoleCustomer = "customer"
	RoleHost     = "host"
	RoleManager  = "manager"
	RoleSupport  = "support"
	RoleAdmin    = "admin"
	RoleSystem   = "system"
)

// AllRoles lists every role known to the permission matrix.
var AllRoles = []string{RoleCustomer, RoleHost, RoleManager, RoleSupport, RoleAdmin, RoleSystem}

// Audit log actions
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionRestore = "restore"
)

// Version change types
const (
	ChangeCreated  = "created"
	ChangeUpdated  = "updated"
	ChangeDeleted  = "deleted"
	ChangeRestored = "restored"
	ChangeSnapshot = "snapshot"
)

// Version tags
const (
	TagPreRestore = "pre-restore"
	TagRestored   = "restored"
	TagManual     = "manual"
)

// Entity types under audit
const (
	EntityProperty = "Property"
	EntityBooking  = "Booking"
)

// Resource names used in permission strings
const (
	ResourceBooking   = "booking"
	ResourceProperty  = "property"
	ResourceFlight    = "flight"
	ResourceTransfer  = "transfer"
	ResourcePackage   = "package"
	ResourceTour      = "tour"
	ResourcePromotion = "promotion"
	ResourceUser      = "user"
	ResourceReview    = "review"
	ResourcePayment   = "payment"
	ResourceAudit     = "audit"
	ResourceVersion   = "version"
)

// Permission constants for strict typing
const (
	PermBookingCreate    = "booking:create"
	PermBookingReadOwn   = "booking:read:own"
	PermBookingReadAll   = "booking:read:all"
	PermBookingUpdateOwn = "booking:update:own"
	PermBookingUpdateAll = "booking:update:all"
	PermBookingDeleteOwn = "booking:delete:own"
	PermBookingDeleteAll = "booking:delete:all"

	PermPropertyCreate    = "property:create"
	PermPropertyRead      = "property:read"
	PermPropertyUpdateOwn = "property:update:own"
	PermPropertyUpdateAll = "property:update:all"
	PermPropertyDeleteOwn = "property:delete:own"
	PermPropertyDeleteAll = "property:delete:all"

	PermAuditRead   = "audit:read"
	PermAuditExport = "audit:export"

	PermVersionRead    = "version:read"
	PermVersionCreate  = "version:create"
	PermVersionRestore = "version:restore"
)
