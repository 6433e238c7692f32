package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldChange is one tracked field whose value differs between two document states.
type FieldChange struct {
	Field    string `bson:"field" json:"field"`
	OldValue any    `bson:"old_value" json:"old_value"`
	NewValue any    `bson:"new_value" json:"new_value"`
}

// AuditLogEntry is an append-only record of a create/update/delete/restore.
type AuditLogEntry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecordID   string             `bson:"record_id" json:"record_id"`
	RecordType string             `bson:"record_type" json:"record_type"`
	Action     string             `bson:"action" json:"action"` // create, update, delete, restore

	PerformedBy     string    `bson:"performed_by,omitempty" json:"performed_by,omitempty"`
	PerformedByName string    `bson:"performed_by_name,omitempty" json:"performed_by_name,omitempty"`
	PerformedByRole string    `bson:"performed_by_role,omitempty" json:"performed_by_role,omitempty"`
	PerformedAt     time.Time `bson:"performed_at" json:"performed_at"`

	IPAddress string `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	SessionID string `bson:"session_id,omitempty" json:"session_id,omitempty"`

	Changes []FieldChange `bson:"changes,omitempty" json:"changes,omitempty"`
	Reason  string        `bson:"reason,omitempty" json:"reason,omitempty"`
}

// AuditLogFilter selects entries for the query endpoints. Empty fields match everything.
type AuditLogFilter struct {
	RecordID    string
	RecordType  string
	Action      string
	PerformedBy string
	From        *time.Time
	To          *time.Time
	Limit       int64
	Skip        int64
}
