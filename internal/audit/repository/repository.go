package repository

import (
	"context"
	"errors"
	"time"

	"tripaudit/internal/audit/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrDuplicate = errors.New("duplicate record")
	ErrNotFound  = errors.New("record not found")
)

// AuditLogRepository is the append-only audit trail store.
type AuditLogRepository interface {
	// CreateEntry appends an entry; entries are never updated afterwards
	CreateEntry(ctx context.Context, entry *model.AuditLogEntry) error
	// FindEntries returns one newest-first page and the total matching count
	FindEntries(ctx context.Context, filter model.AuditLogFilter) ([]*model.AuditLogEntry, int64, error)
	EnsureIndexes(ctx context.Context) error
}

// VersionQuery pages over a document's versions.
type VersionQuery struct {
	Limit       int64
	Skip        int64
	IncludeData bool
}

// VersionRepository stores full-document snapshots.
type VersionRepository interface {
	// CreateVersion returns ErrDuplicate if (document_id, document_type, version) is taken
	CreateVersion(ctx context.Context, v *model.DocumentVersion) error
	// LatestVersionNumber returns 0 when the document has no versions
	LatestVersionNumber(ctx context.Context, documentID primitive.ObjectID, documentType string) (int, error)
	FindVersions(ctx context.Context, documentID primitive.ObjectID, documentType string, q VersionQuery) ([]*model.DocumentVersion, int64, error)
	FindVersion(ctx context.Context, documentID primitive.ObjectID, documentType string, version int) (*model.DocumentVersion, error)
	FindVersionByID(ctx context.Context, id primitive.ObjectID) (*model.DocumentVersion, error)
	// MarkRestored is the only mutation ever applied to a stored version
	MarkRestored(ctx context.Context, id primitive.ObjectID, restoredBy string, at time.Time) error
	// DeleteExpired removes versions past their expiry that are not kept forever
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// ListOptions controls soft-delete visibility and pagination of document queries.
type ListOptions struct {
	IncludeDeleted bool
	Limit          int64
	Skip           int64
}

// DocumentStore persists one auditable entity type.
type DocumentStore[T any] interface {
	Insert(ctx context.Context, doc *T) error
	Replace(ctx context.Context, id primitive.ObjectID, doc *T) error
	FindByID(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*T, error)
	Find(ctx context.Context, filter bson.M, opts ListOptions) ([]*T, int64, error)
	EnsureIndexes(ctx context.Context) error
}

// notDeleted is merged into every default query against an audited collection.
func notDeleted(filter bson.M, includeDeleted bool) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	if !includeDeleted {
		out["is_deleted"] = bson.M{"$ne": true}
	}
	return out
}
