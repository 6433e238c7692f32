package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Auditable is implemented by every document stored through the audit interceptor.
type Auditable interface {
	GetID() primitive.ObjectID
	SetID(id primitive.ObjectID)
	Audit() *AuditStamps
}

// AuditStamps carries who-created/updated/deleted metadata on the document itself.
type AuditStamps struct {
	CreatedBy     string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedByName string    `bson:"created_by_name,omitempty" json:"created_by_name,omitempty"`
	CreatedByRole string    `bson:"created_by_role,omitempty" json:"created_by_role,omitempty"`
	CreatedByIP   string    `bson:"created_by_ip,omitempty" json:"created_by_ip,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`

	UpdatedBy     string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	UpdatedByName string    `bson:"updated_by_name,omitempty" json:"updated_by_name,omitempty"`
	UpdatedByRole string    `bson:"updated_by_role,omitempty" json:"updated_by_role,omitempty"`
	UpdatedByIP   string    `bson:"updated_by_ip,omitempty" json:"updated_by_ip,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`

	DeletedBy     string     `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`
	DeletedByName string     `bson:"deleted_by_name,omitempty" json:"deleted_by_name,omitempty"`
	DeletedAt     *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	DeletedReason string     `bson:"deleted_reason,omitempty" json:"deleted_reason,omitempty"`
	IsDeleted     bool       `bson:"is_deleted" json:"is_deleted"`
}

// StampCreate fills the creation stamps. CreatedAt is never overwritten once set.
func (s *AuditStamps) StampCreate(actx AuditContext, now time.Time) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.CreatedBy = actx.UserID
	s.CreatedByName = actx.UserName
	s.CreatedByRole = actx.UserRole
	s.CreatedByIP = actx.IPAddress
	s.UpdatedAt = s.CreatedAt
}

// StampUpdate fills the update stamps. UpdatedAt strictly increases across calls,
// even when the clock has not moved past the stored (millisecond truncated) value.
func (s *AuditStamps) StampUpdate(actx AuditContext, now time.Time) {
	floor := s.UpdatedAt
	if s.CreatedAt.After(floor) {
		floor = s.CreatedAt
	}
	if !now.After(floor) {
		now = floor.Add(time.Millisecond)
	}
	s.UpdatedAt = now
	s.UpdatedBy = actx.UserID
	s.UpdatedByName = actx.UserName
	s.UpdatedByRole = actx.UserRole
	s.UpdatedByIP = actx.IPAddress
}

// StampDelete marks the document as soft-deleted.
func (s *AuditStamps) StampDelete(actx AuditContext, reason string, now time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &now
	s.DeletedBy = actx.UserID
	s.DeletedByName = actx.UserName
	s.DeletedReason = reason
}

// ClearDelete removes the soft-delete stamps.
func (s *AuditStamps) ClearDelete() {
	s.IsDeleted = false
	s.DeletedAt = nil
	s.DeletedBy = ""
	s.DeletedByName = ""
	s.DeletedReason = ""
}

// Base is embedded (inline) by auditable entities.
type Base struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuditStamps `bson:",inline"`
}

func (b *Base) GetID() primitive.ObjectID { return b.ID }

func (b *Base) SetID(id primitive.ObjectID) { b.ID = id }

func (b *Base) Audit() *AuditStamps { return &b.AuditStamps }

// CreationKeys are the bson keys that identify a document and its origin.
// They are preserved when a stored version is written back over a live document.
var CreationKeys = []string{"_id", "created_by", "created_by_name", "created_by_role", "created_by_ip", "created_at"}

// AuditablePtr constrains generic stores to pointer types implementing Auditable.
type AuditablePtr[T any] interface {
	*T
	Auditable
}

// StampKeys are the bson keys owned by AuditStamps.
var StampKeys = []string{
	"created_by", "created_by_name", "created_by_role", "created_by_ip", "created_at",
	"updated_by", "updated_by_name", "updated_by_role", "updated_by_ip", "updated_at",
	"deleted_by", "deleted_by_name", "deleted_at", "deleted_reason", "is_deleted",
}
