package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/repository"
	"tripaudit/internal/audit/tracker"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditOptions configures auditing for one entity type.
type AuditOptions struct {
	// FieldsToTrack are the dot-paths diffed on update. Empty means every
	// non-stamp field.
	FieldsToTrack    []string
	EnableVersioning bool
}

// AuditedRepository wraps a DocumentStore so every create, update, soft
// delete and restore stamps the document, appends an audit entry and, when
// enabled, stores a version. Audit and version writes never fail the call.
type AuditedRepository[T any, PT model.AuditablePtr[T]] struct {
	EntityType string
	Options    AuditOptions
	Store      repository.DocumentStore[T]
	AuditLog   *AuditLogService
	Versions   *VersionService
	Now        func() time.Time
}

// AttachAudit builds the audited repository for entityType and registers it
// with the version service when versioning is enabled.
func AttachAudit[T any, PT model.AuditablePtr[T]](entityType string, store repository.DocumentStore[T], auditLog *AuditLogService, versions *VersionService, opts AuditOptions) *AuditedRepository[T, PT] {
	r := &AuditedRepository[T, PT]{
		EntityType: entityType,
		Options:    opts,
		Store:      store,
		AuditLog:   auditLog,
		Versions:   versions,
		Now:        func() time.Time { return time.Now().UTC() },
	}
	if opts.EnableVersioning && versions != nil {
		versions.Register(entityType, r)
	}
	return r
}

func (r *AuditedRepository[T, PT]) versioning() bool {
	return r.Options.EnableVersioning && r.Versions != nil
}

// Create stamps and inserts doc.
func (r *AuditedRepository[T, PT]) Create(ctx context.Context, actx model.AuditContext, doc *T) error {
	p := PT(doc)
	p.Audit().StampCreate(actx, r.Now())

	if err := r.Store.Insert(ctx, doc); err != nil {
		return err
	}

	r.AuditLog.RecordBestEffort(ctx, NewEntry(actx, r.EntityType, p.GetID().Hex(), model.ActionCreate, nil, "", p.Audit().CreatedAt))
	if r.versioning() {
		r.Versions.CreateVersion(ctx, r.EntityType, p, model.ChangeCreated, actx, VersionOptions{
			Summary: "Document created",
		})
	}
	return nil
}

// Update persists doc over the live document with the same id; a soft-deleted
// document reports ErrDocumentNotFound until it is restored. Audit stamps
// on doc are taken from the stored copy, then the update stamps are set. An
// audit entry and version are written only when a tracked field changed. The
// returned changes are the tracked differences.
func (r *AuditedRepository[T, PT]) Update(ctx context.Context, actx model.AuditContext, doc *T) ([]model.FieldChange, error) {
	p := PT(doc)
	before, err := r.findByID(ctx, p.GetID(), false)
	if err != nil {
		return nil, err
	}

	*p.Audit() = *PT(before).Audit()
	p.Audit().StampUpdate(actx, r.Now())

	if err := r.replace(ctx, p.GetID(), doc); err != nil {
		return nil, err
	}

	changes, err := r.diff(before, doc)
	if err != nil {
		// the update is stored; only its trail is lost
		r.AuditLog.side().fail(ctx, ChannelAudit, r.EntityType, p.GetID().Hex(), fmt.Errorf("diff updated document: %w", err))
		return nil, nil
	}
	if len(changes) == 0 {
		return changes, nil
	}

	r.AuditLog.RecordBestEffort(ctx, NewEntry(actx, r.EntityType, p.GetID().Hex(), model.ActionUpdate, changes, "", p.Audit().UpdatedAt))
	if r.versioning() {
		r.Versions.CreateVersion(ctx, r.EntityType, p, model.ChangeUpdated, actx, VersionOptions{
			Summary:       tracker.Summary(changes),
			ChangedFields: tracker.ChangedFields(changes),
			Changes:       changes,
		})
	}
	return changes, nil
}

// SoftDelete marks a live document deleted. Deleting an already deleted
// document reports ErrDocumentNotFound.
func (r *AuditedRepository[T, PT]) SoftDelete(ctx context.Context, actx model.AuditContext, id primitive.ObjectID, reason string) (*T, error) {
	doc, err := r.findByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	p := PT(doc)
	p.Audit().StampDelete(actx, reason, r.Now())

	if err := r.replace(ctx, id, doc); err != nil {
		return nil, err
	}

	changes := []model.FieldChange{{Field: "is_deleted", OldValue: false, NewValue: true}}
	r.AuditLog.RecordBestEffort(ctx, NewEntry(actx, r.EntityType, id.Hex(), model.ActionDelete, changes, reason, *p.Audit().DeletedAt))
	if r.versioning() {
		r.Versions.CreateVersion(ctx, r.EntityType, p, model.ChangeDeleted, actx, VersionOptions{
			Summary:       "Document deleted",
			ChangedFields: tracker.ChangedFields(changes),
			Changes:       changes,
			Notes:         reason,
		})
	}
	return doc, nil
}

// Restore reverses a soft delete.
func (r *AuditedRepository[T, PT]) Restore(ctx context.Context, actx model.AuditContext, id primitive.ObjectID) (*T, error) {
	doc, err := r.findByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	p := PT(doc)
	if !p.Audit().IsDeleted {
		return nil, ErrNotDeleted
	}
	p.Audit().ClearDelete()
	p.Audit().StampUpdate(actx, r.Now())

	if err := r.replace(ctx, id, doc); err != nil {
		return nil, err
	}

	changes := []model.FieldChange{{Field: "is_deleted", OldValue: true, NewValue: false}}
	r.AuditLog.RecordBestEffort(ctx, NewEntry(actx, r.EntityType, id.Hex(), model.ActionRestore, changes, "", p.Audit().UpdatedAt))
	if r.versioning() {
		r.Versions.CreateVersion(ctx, r.EntityType, p, model.ChangeRestored, actx, VersionOptions{
			Summary:       "Document restored",
			ChangedFields: tracker.ChangedFields(changes),
			Changes:       changes,
		})
	}
	return doc, nil
}

// FindByID hides soft-deleted documents unless includeDeleted is set.
func (r *AuditedRepository[T, PT]) FindByID(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*T, error) {
	return r.findByID(ctx, id, includeDeleted)
}

// Find hides soft-deleted documents unless opts.IncludeDeleted is set.
func (r *AuditedRepository[T, PT]) Find(ctx context.Context, filter bson.M, opts repository.ListOptions) ([]*T, int64, error) {
	return r.Store.Find(ctx, filter, opts)
}

func (r *AuditedRepository[T, PT]) LoadDocument(ctx context.Context, id primitive.ObjectID) (any, error) {
	return r.findByID(ctx, id, true)
}

func (r *AuditedRepository[T, PT]) ApplyVersion(ctx context.Context, id primitive.ObjectID, data map[string]any, actx model.AuditContext) (any, []model.FieldChange, error) {
	current, err := r.findByID(ctx, id, true)
	if err != nil {
		return nil, nil, err
	}
	merged, err := tracker.ToMap(current)
	if err != nil {
		return nil, nil, err
	}

	preserved := make(map[string]bool, len(model.CreationKeys))
	for _, k := range model.CreationKeys {
		preserved[k] = true
	}
	for k, v := range data {
		if !preserved[k] {
			merged[k] = v
		}
	}

	raw, err := bson.Marshal(merged)
	if err != nil {
		return nil, nil, fmt.Errorf("encode merged document: %w", err)
	}
	var next T
	if err := bson.Unmarshal(raw, &next); err != nil {
		return nil, nil, fmt.Errorf("decode merged document: %w", err)
	}

	np := PT(&next)
	np.SetID(id)
	// a payload taken while live omits the delete stamps the current copy may carry
	if !np.Audit().IsDeleted {
		np.Audit().ClearDelete()
	}
	// the stored payload carries an older updated_at; keep the clock moving forward
	np.Audit().UpdatedAt = PT(current).Audit().UpdatedAt
	np.Audit().StampUpdate(actx, r.Now())

	if err := r.replace(ctx, id, &next); err != nil {
		return nil, nil, err
	}

	changes, err := r.diff(current, &next)
	if err != nil {
		r.AuditLog.side().fail(ctx, ChannelAudit, r.EntityType, id.Hex(), fmt.Errorf("diff restored document: %w", err))
		changes = nil
	}
	return &next, changes, nil
}

func (r *AuditedRepository[T, PT]) RecordRestore(ctx context.Context, actx model.AuditContext, id primitive.ObjectID, fromVersion int, changes []model.FieldChange) {
	reason := fmt.Sprintf("restored from version %d", fromVersion)
	r.AuditLog.RecordBestEffort(ctx, NewEntry(actx, r.EntityType, id.Hex(), model.ActionUpdate, changes, reason, r.Now()))
}

func (r *AuditedRepository[T, PT]) findByID(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*T, error) {
	doc, err := r.Store.FindByID(ctx, id, includeDeleted)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *AuditedRepository[T, PT]) replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	if err := r.Store.Replace(ctx, id, doc); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	return nil
}

func (r *AuditedRepository[T, PT]) diff(before, after *T) ([]model.FieldChange, error) {
	b, err := tracker.ToMap(before)
	if err != nil {
		return nil, err
	}
	a, err := tracker.ToMap(after)
	if err != nil {
		return nil, err
	}
	if len(r.Options.FieldsToTrack) > 0 {
		return tracker.Diff(b, a, r.Options.FieldsToTrack), nil
	}
	for _, k := range model.StampKeys {
		delete(b, k)
		delete(a, k)
	}
	return tracker.Diff(b, a, nil), nil
}

var _ VersionedCollection = (*AuditedRepository[model.Property, *model.Property])(nil)
