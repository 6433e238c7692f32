package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/repository"
	"tripaudit/internal/audit/tracker"
	"tripaudit/internal/audit/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VersionOptions carries the optional metadata of a new version.
type VersionOptions struct {
	Label            string
	Summary          string
	ChangedFields    []string
	Changes          []model.FieldChange
	Tags             []string
	Notes            string
	KeepForever      bool
	BackupSnapshotID string
	RestoredFrom     *primitive.ObjectID
}

// VersionedCollection gives the version service access to the live documents
// of one entity type so it can snapshot and restore them.
type VersionedCollection interface {
	// LoadDocument returns the live document, soft-deleted or not.
	LoadDocument(ctx context.Context, id primitive.ObjectID) (any, error)
	// ApplyVersion shallow-merges data onto the live document, stamps the update
	// and persists it without writing audit entries or versions.
	ApplyVersion(ctx context.Context, id primitive.ObjectID, data map[string]any, actx model.AuditContext) (any, []model.FieldChange, error)
	// RecordRestore writes the audit entry for a completed restore. Best effort.
	RecordRestore(ctx context.Context, actx model.AuditContext, id primitive.ObjectID, fromVersion int, changes []model.FieldChange)
}

// VersionService is the document version store.
type VersionService struct {
	Repo repository.VersionRepository
	// Retention is the expiry applied to versions not kept forever. Zero means never.
	Retention time.Duration
	// MaxRetries bounds re-reads of the latest version number after a collision.
	MaxRetries int
	Metrics    *util.Metrics
	Logger     *slog.Logger
	Hook       FailureHook
	Now        func() time.Time

	mu          sync.RWMutex
	collections map[string]VersionedCollection
}

func NewVersionService(repo repository.VersionRepository, retention time.Duration, maxRetries int, metrics *util.Metrics) *VersionService {
	return &VersionService{
		Repo:        repo,
		Retention:   retention,
		MaxRetries:  maxRetries,
		Metrics:     metrics,
		Logger:      util.GetLogger(),
		Now:         func() time.Time { return time.Now().UTC() },
		collections: make(map[string]VersionedCollection),
	}
}

// Register makes documentType available to restore and manual snapshots.
func (s *VersionService) Register(documentType string, c VersionedCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[documentType] = c
}

func (s *VersionService) collection(documentType string) (VersionedCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[documentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocumentType, documentType)
	}
	return c, nil
}

// DocumentTypes lists the registered document types.
func (s *VersionService) DocumentTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.collections))
	for t := range s.collections {
		types = append(types, t)
	}
	return types
}

// CreateVersion snapshots doc as the next version. Failures are swallowed and
// reported through the failure hook; the result is nil in that case.
func (s *VersionService) CreateVersion(ctx context.Context, documentType string, doc model.Auditable, changeType string, actx model.AuditContext, opts VersionOptions) *model.DocumentVersion {
	ctx, cancel := detach(ctx)
	defer cancel()

	v, err := s.createVersion(ctx, documentType, doc.GetID(), doc, changeType, actx, opts)
	if err != nil {
		s.side().fail(ctx, ChannelVersion, documentType, doc.GetID().Hex(), err)
		return nil
	}
	return v
}

func (s *VersionService) createVersion(ctx context.Context, documentType string, documentID primitive.ObjectID, doc any, changeType string, actx model.AuditContext, opts VersionOptions) (*model.DocumentVersion, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	var data bson.M
	if err := bson.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)
	now := s.Now()

	v := &model.DocumentVersion{
		DocumentID:   documentID,
		DocumentType: documentType,
		Label:        opts.Label,
		Data:         data,
		Snapshot: model.SnapshotInfo{
			Size: len(raw),
			Hash: hex.EncodeToString(sum[:]),
		},
		ChangeType:       changeType,
		ChangeSummary:    opts.Summary,
		ChangedFields:    opts.ChangedFields,
		Changes:          opts.Changes,
		CreatedBy:        actx.UserID,
		CreatedByName:    actx.UserName,
		CreatedByRole:    actx.UserRole,
		CreatedAt:        now,
		BackupSnapshotID: opts.BackupSnapshotID,
		RestoredFrom:     opts.RestoredFrom,
		Tags:             opts.Tags,
		Notes:            opts.Notes,
		RetentionPolicy:  model.RetentionPolicy{KeepForever: opts.KeepForever},
	}
	if opts.RestoredFrom != nil {
		v.RestoredAt = &now
		v.RestoredBy = actx.UserID
	}
	if !opts.KeepForever && s.Retention > 0 {
		expires := now.Add(s.Retention)
		v.RetentionPolicy.ExpiresAt = &expires
	}

	for attempt := 0; ; attempt++ {
		latest, err := s.Repo.LatestVersionNumber(ctx, documentID, documentType)
		if err != nil {
			return nil, fmt.Errorf("read latest version: %w", err)
		}
		v.Version = latest + 1

		err = s.Repo.CreateVersion(ctx, v)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt >= s.MaxRetries {
			return nil, fmt.Errorf("create version %d: %w", v.Version, err)
		}
		if s.Metrics != nil {
			s.Metrics.VersionConflictsTotal.WithLabelValues(documentType).Inc()
		}
		s.Logger.DebugContext(ctx, "version number taken, retrying",
			"document_type", documentType,
			"document_id", documentID.Hex(),
			"version", v.Version,
			"attempt", attempt+1,
		)
		v.ID = primitive.NilObjectID
	}

	if s.Metrics != nil {
		s.Metrics.VersionsCreatedTotal.WithLabelValues(documentType, changeType).Inc()
	}
	return v, nil
}

// GetVersionHistory returns versions newest first. The payload is omitted
// unless q.IncludeData is set.
func (s *VersionService) GetVersionHistory(ctx context.Context, documentID primitive.ObjectID, documentType string, q repository.VersionQuery) (*model.VersionHistory, error) {
	versions, total, err := s.Repo.FindVersions(ctx, documentID, documentType, q)
	if err != nil {
		return nil, err
	}
	current, err := s.Repo.LatestVersionNumber(ctx, documentID, documentType)
	if err != nil {
		return nil, err
	}
	return &model.VersionHistory{
		DocumentID:     documentID,
		DocumentType:   documentType,
		Versions:       versions,
		TotalCount:     total,
		CurrentVersion: current,
	}, nil
}

func (s *VersionService) GetVersion(ctx context.Context, documentID primitive.ObjectID, documentType string, version int) (*model.DocumentVersion, error) {
	v, err := s.Repo.FindVersion(ctx, documentID, documentType, version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return v, nil
}

// FindVersion loads one version by id.
func (s *VersionService) FindVersion(ctx context.Context, id primitive.ObjectID) (*model.DocumentVersion, error) {
	return s.getVersionByID(ctx, id)
}

func (s *VersionService) getVersionByID(ctx context.Context, id primitive.ObjectID) (*model.DocumentVersion, error) {
	v, err := s.Repo.FindVersionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return v, nil
}

// RestoreVersion rolls the live document back to the stored payload of
// versionID. The current state is snapshotted first so the restore can itself
// be undone. Any failure is returned to the caller.
func (s *VersionService) RestoreVersion(ctx context.Context, versionID primitive.ObjectID, actx model.AuditContext) (any, error) {
	target, err := s.getVersionByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	restored, err := s.restore(ctx, target, actx)
	if s.Metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.Metrics.RestoresTotal.WithLabelValues(target.DocumentType, status).Inc()
	}
	return restored, err
}

func (s *VersionService) restore(ctx context.Context, target *model.DocumentVersion, actx model.AuditContext) (any, error) {
	coll, err := s.collection(target.DocumentType)
	if err != nil {
		return nil, err
	}
	if len(target.Data) == 0 {
		return nil, fmt.Errorf("%w: version %d has no stored payload", ErrBadRequest, target.Version)
	}

	current, err := coll.LoadDocument(ctx, target.DocumentID)
	if err != nil {
		return nil, err
	}

	_, err = s.createVersion(ctx, target.DocumentType, target.DocumentID, current, model.ChangeSnapshot, actx, VersionOptions{
		Label:   fmt.Sprintf("Before restore to version %d", target.Version),
		Summary: "Pre-restore snapshot",
		Tags:    []string{model.TagPreRestore},
	})
	if err != nil {
		return nil, fmt.Errorf("pre-restore snapshot: %w", err)
	}

	restored, changes, err := coll.ApplyVersion(ctx, target.DocumentID, target.Data, actx)
	if err != nil {
		return nil, fmt.Errorf("apply version %d: %w", target.Version, err)
	}

	_, err = s.createVersion(ctx, target.DocumentType, target.DocumentID, restored, model.ChangeRestored, actx, VersionOptions{
		Summary:       fmt.Sprintf("Restored from version %d", target.Version),
		ChangedFields: tracker.ChangedFields(changes),
		Changes:       changes,
		Tags:          []string{model.TagRestored},
		KeepForever:   true,
		RestoredFrom:  &target.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("restored version: %w", err)
	}

	if err := s.Repo.MarkRestored(ctx, target.ID, actx.UserID, s.Now()); err != nil {
		return nil, fmt.Errorf("mark version %d restored: %w", target.Version, err)
	}

	coll.RecordRestore(ctx, actx, target.DocumentID, target.Version, changes)
	return restored, nil
}

// CompareVersions diffs the payloads of two versions of the same document.
// The returned summaries carry no payload.
func (s *VersionService) CompareVersions(ctx context.Context, idA, idB primitive.ObjectID) (*model.VersionComparison, error) {
	a, err := s.getVersionByID(ctx, idA)
	if err != nil {
		return nil, err
	}
	b, err := s.getVersionByID(ctx, idB)
	if err != nil {
		return nil, err
	}
	if a.DocumentID != b.DocumentID || a.DocumentType != b.DocumentType {
		return nil, ErrVersionMismatch
	}

	differences := tracker.Diff(a.Data, b.Data, nil)
	a.Data, b.Data = nil, nil
	return &model.VersionComparison{
		VersionA:    a,
		VersionB:    b,
		Differences: differences,
	}, nil
}

// Snapshot stores an ad-hoc version of the live document.
func (s *VersionService) Snapshot(ctx context.Context, documentType string, documentID primitive.ObjectID, actx model.AuditContext, opts VersionOptions) (*model.DocumentVersion, error) {
	coll, err := s.collection(documentType)
	if err != nil {
		return nil, err
	}
	doc, err := coll.LoadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if opts.Summary == "" {
		opts.Summary = "Manual snapshot"
	}
	opts.Tags = append([]string{model.TagManual}, opts.Tags...)
	return s.createVersion(ctx, documentType, documentID, doc, model.ChangeSnapshot, actx, opts)
}

// PurgeExpired deletes versions whose expiry has passed and that are not kept
// forever. Running it again immediately deletes nothing.
func (s *VersionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.Repo.DeleteExpired(ctx, s.Now())
}

func (s *VersionService) side() sideChannel {
	return sideChannel{logger: s.Logger, metrics: s.Metrics, hook: s.Hook}
}
