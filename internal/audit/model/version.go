package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SnapshotInfo describes the serialized form of a version's data.
type SnapshotInfo struct {
	Size int    `bson:"size" json:"size"`
	Hash string `bson:"hash" json:"hash"` // sha256 hex of the bson bytes
}

type RetentionPolicy struct {
	KeepForever bool       `bson:"keep_forever" json:"keep_forever"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
}

// DocumentVersion is a full snapshot of one document at one point in time.
// Version numbers per (DocumentID, DocumentType) start at 1 and never repeat.
type DocumentVersion struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID   primitive.ObjectID `bson:"document_id" json:"document_id"`
	DocumentType string             `bson:"document_type" json:"document_type"`
	Version      int                `bson:"version" json:"version"`
	Label        string             `bson:"label,omitempty" json:"label,omitempty"`

	Data     bson.M       `bson:"data,omitempty" json:"data,omitempty"`
	Snapshot SnapshotInfo `bson:"snapshot" json:"snapshot"`

	ChangeType    string        `bson:"change_type" json:"change_type"` // created, updated, deleted, restored, snapshot
	ChangeSummary string        `bson:"change_summary,omitempty" json:"change_summary,omitempty"`
	ChangedFields []string      `bson:"changed_fields,omitempty" json:"changed_fields,omitempty"`
	Changes       []FieldChange `bson:"changes,omitempty" json:"changes,omitempty"`

	CreatedBy     string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedByName string    `bson:"created_by_name,omitempty" json:"created_by_name,omitempty"`
	CreatedByRole string    `bson:"created_by_role,omitempty" json:"created_by_role,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`

	BackupSnapshotID string              `bson:"backup_snapshot_id,omitempty" json:"backup_snapshot_id,omitempty"`
	RestoredFrom     *primitive.ObjectID `bson:"restored_from,omitempty" json:"restored_from,omitempty"`
	RestoredAt       *time.Time          `bson:"restored_at,omitempty" json:"restored_at,omitempty"`
	RestoredBy       string              `bson:"restored_by,omitempty" json:"restored_by,omitempty"`

	Tags            []string        `bson:"tags,omitempty" json:"tags,omitempty"`
	Notes           string          `bson:"notes,omitempty" json:"notes,omitempty"`
	RetentionPolicy RetentionPolicy `bson:"retention_policy" json:"retention_policy"`
}

// VersionHistory is a newest-first page of versions for one document.
type VersionHistory struct {
	DocumentID     primitive.ObjectID `json:"document_id"`
	DocumentType   string             `json:"document_type"`
	Versions       []*DocumentVersion `json:"versions"`
	TotalCount     int64              `json:"total_count"`
	CurrentVersion int                `json:"current_version"`
}

// VersionComparison lists the differences between two versions of a document.
type VersionComparison struct {
	VersionA    *DocumentVersion `json:"version_a"`
	VersionB    *DocumentVersion `json:"version_b"`
	Differences []FieldChange    `json:"differences"`
}

// RetentionResult reports what a retention sweep removed.
type RetentionResult struct {
	VersionsDeleted int64     `json:"versions_deleted"`
	RanAt           time.Time `json:"ran_at"`
}
