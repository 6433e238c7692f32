package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/tracker"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The memory stores keep documents as bson bytes so callers never share
// pointers with stored state, and timestamps lose precision exactly as they
// would in MongoDB. Not persisted; for tests and local development.

func clone[T any](src *T) (*T, error) {
	raw, err := bson.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	var dst T
	if err := bson.Unmarshal(raw, &dst); err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	return &dst, nil
}

func page[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

// MemoryAuditLogRepository is an in-memory AuditLogRepository.
type MemoryAuditLogRepository struct {
	mu      sync.RWMutex
	entries []*model.AuditLogEntry
}

func NewMemoryAuditLogRepository() *MemoryAuditLogRepository {
	return &MemoryAuditLogRepository{}
}

func (r *MemoryAuditLogRepository) EnsureIndexes(ctx context.Context) error { return nil }

func (r *MemoryAuditLogRepository) CreateEntry(ctx context.Context, entry *model.AuditLogEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now().UTC()
	}
	stored, err := clone(entry)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, stored)
	return nil
}

func (r *MemoryAuditLogRepository) FindEntries(ctx context.Context, f model.AuditLogFilter) ([]*model.AuditLogEntry, int64, error) {
	r.mu.RLock()
	var matched []*model.AuditLogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if matchesAudit(e, f) {
			matched = append(matched, e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].PerformedAt.After(matched[j].PerformedAt)
	})

	out := []*model.AuditLogEntry{}
	for _, e := range page(matched, f.Skip, f.Limit) {
		c, err := clone(e)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, int64(len(matched)), nil
}

// Count returns the number of stored entries.
func (r *MemoryAuditLogRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func matchesAudit(e *model.AuditLogEntry, f model.AuditLogFilter) bool {
	switch {
	case f.RecordID != "" && e.RecordID != f.RecordID:
		return false
	case f.RecordType != "" && e.RecordType != f.RecordType:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.PerformedBy != "" && e.PerformedBy != f.PerformedBy:
		return false
	case f.From != nil && e.PerformedAt.Before(*f.From):
		return false
	case f.To != nil && e.PerformedAt.After(*f.To):
		return false
	}
	return true
}

var _ AuditLogRepository = (*MemoryAuditLogRepository)(nil)

// MemoryVersionRepository is an in-memory VersionRepository that enforces the
// (document_id, document_type, version) uniqueness the Mongo index provides.
type MemoryVersionRepository struct {
	mu       sync.RWMutex
	versions map[primitive.ObjectID]*model.DocumentVersion
}

func NewMemoryVersionRepository() *MemoryVersionRepository {
	return &MemoryVersionRepository{versions: make(map[primitive.ObjectID]*model.DocumentVersion)}
}

func (r *MemoryVersionRepository) EnsureIndexes(ctx context.Context) error { return nil }

func (r *MemoryVersionRepository) CreateVersion(ctx context.Context, v *model.DocumentVersion) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	stored, err := clone(v)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.versions {
		if existing.DocumentID == v.DocumentID && existing.DocumentType == v.DocumentType && existing.Version == v.Version {
			return ErrDuplicate
		}
	}
	r.versions[stored.ID] = stored
	return nil
}

func (r *MemoryVersionRepository) LatestVersionNumber(ctx context.Context, documentID primitive.ObjectID, documentType string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := 0
	for _, v := range r.versions {
		if v.DocumentID == documentID && v.DocumentType == documentType && v.Version > latest {
			latest = v.Version
		}
	}
	return latest, nil
}

func (r *MemoryVersionRepository) FindVersions(ctx context.Context, documentID primitive.ObjectID, documentType string, q VersionQuery) ([]*model.DocumentVersion, int64, error) {
	r.mu.RLock()
	var matched []*model.DocumentVersion
	for _, v := range r.versions {
		if v.DocumentID == documentID && v.DocumentType == documentType {
			matched = append(matched, v)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Version > matched[j].Version })

	out := []*model.DocumentVersion{}
	for _, v := range page(matched, q.Skip, q.Limit) {
		c, err := clone(v)
		if err != nil {
			return nil, 0, err
		}
		if !q.IncludeData {
			c.Data = nil
		}
		out = append(out, c)
	}
	return out, int64(len(matched)), nil
}

func (r *MemoryVersionRepository) FindVersion(ctx context.Context, documentID primitive.ObjectID, documentType string, version int) (*model.DocumentVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.versions {
		if v.DocumentID == documentID && v.DocumentType == documentType && v.Version == version {
			return clone(v)
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryVersionRepository) FindVersionByID(ctx context.Context, id primitive.ObjectID) (*model.DocumentVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.versions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v)
}

func (r *MemoryVersionRepository) MarkRestored(ctx context.Context, id primitive.ObjectID, restoredBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.versions[id]
	if !ok {
		return ErrNotFound
	}
	v.RestoredAt = &at
	v.RestoredBy = restoredBy
	return nil
}

func (r *MemoryVersionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, v := range r.versions {
		rp := v.RetentionPolicy
		if !rp.KeepForever && rp.ExpiresAt != nil && !rp.ExpiresAt.After(now) {
			delete(r.versions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Count returns the number of stored versions.
func (r *MemoryVersionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.versions)
}

var _ VersionRepository = (*MemoryVersionRepository)(nil)

// MemoryDocumentStore is an in-memory DocumentStore. Filters support equality
// on dot-paths only.
type MemoryDocumentStore[T any, PT model.AuditablePtr[T]] struct {
	mu   sync.RWMutex
	docs map[primitive.ObjectID][]byte
}

func NewMemoryDocumentStore[T any, PT model.AuditablePtr[T]]() *MemoryDocumentStore[T, PT] {
	return &MemoryDocumentStore[T, PT]{docs: make(map[primitive.ObjectID][]byte)}
}

func (s *MemoryDocumentStore[T, PT]) EnsureIndexes(ctx context.Context) error { return nil }

func (s *MemoryDocumentStore[T, PT]) Insert(ctx context.Context, doc *T) error {
	p := PT(doc)
	if p.GetID().IsZero() {
		p.SetID(primitive.NewObjectID())
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[p.GetID()]; exists {
		return ErrDuplicate
	}
	s.docs[p.GetID()] = raw
	return nil
}

func (s *MemoryDocumentStore[T, PT]) Replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[id]; !exists {
		return ErrNotFound
	}
	s.docs[id] = raw
	return nil
}

func (s *MemoryDocumentStore[T, PT]) FindByID(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*T, error) {
	s.mu.RLock()
	raw, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if !includeDeleted && PT(&doc).Audit().IsDeleted {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *MemoryDocumentStore[T, PT]) Find(ctx context.Context, filter bson.M, opts ListOptions) ([]*T, int64, error) {
	s.mu.RLock()
	raws := make([][]byte, 0, len(s.docs))
	for _, raw := range s.docs {
		raws = append(raws, raw)
	}
	s.mu.RUnlock()

	var matched []*T
	for _, raw := range raws {
		var doc T
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, 0, err
		}
		if !opts.IncludeDeleted && PT(&doc).Audit().IsDeleted {
			continue
		}
		var asMap bson.M
		if err := bson.Unmarshal(raw, &asMap); err != nil {
			return nil, 0, err
		}
		if matchesDoc(asMap, filter) {
			matched = append(matched, &doc)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return PT(matched[i]).Audit().CreatedAt.After(PT(matched[j]).Audit().CreatedAt)
	})

	return page(matched, opts.Skip, opts.Limit), int64(len(matched)), nil
}

func matchesDoc(doc bson.M, filter bson.M) bool {
	for k, want := range filter {
		if !tracker.Equal(tracker.Resolve(doc, k), want) {
			return false
		}
	}
	return true
}

var _ DocumentStore[model.Property] = (*MemoryDocumentStore[model.Property, *model.Property])(nil)
