package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/repository"
	"tripaudit/internal/audit/util"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	hostActor    = model.AuditContext{UserID: "host-1", UserName: "Hana Host", UserRole: model.RoleHost, IPAddress: "10.0.0.1", UserAgent: "test", SessionID: "s-1"}
	managerActor = model.AuditContext{UserID: "mgr-1", UserName: "Mo Manager", UserRole: model.RoleManager, IPAddress: "10.0.0.2"}
)

// testClock advances one second on every read.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	clock      *testClock
	metrics    *util.Metrics
	auditRepo  repository.AuditLogRepository
	versionRep repository.VersionRepository
	auditLog   *AuditLogService
	versions   *VersionService
	properties *AuditedRepository[model.Property, *model.Property]
	failures   []string
	mu         sync.Mutex
}

type fixtureOption func(*fixture)

func withAuditRepo(r repository.AuditLogRepository) fixtureOption {
	return func(f *fixture) { f.auditRepo = r }
}

func withVersionRepo(r repository.VersionRepository) fixtureOption {
	return func(f *fixture) { f.versionRep = r }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		clock:      newTestClock(),
		metrics:    util.NopMetrics(),
		auditRepo:  repository.NewMemoryAuditLogRepository(),
		versionRep: repository.NewMemoryVersionRepository(),
	}
	for _, o := range opts {
		o(f)
	}

	hook := func(ctx context.Context, channel, entityType string, err error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.failures = append(f.failures, channel+"/"+entityType)
	}

	f.auditLog = NewAuditLogService(f.auditRepo, f.metrics)
	f.auditLog.Now = f.clock.Now
	f.auditLog.Hook = hook

	f.versions = NewVersionService(f.versionRep, 24*time.Hour, 3, f.metrics)
	f.versions.Now = f.clock.Now
	f.versions.Hook = hook

	store := repository.NewMemoryDocumentStore[model.Property, *model.Property]()
	f.properties = AttachAudit[model.Property, *model.Property](model.EntityProperty, store, f.auditLog, f.versions, AuditOptions{
		FieldsToTrack:    model.PropertyTrackedFields,
		EnableVersioning: true,
	})
	f.properties.Now = f.clock.Now
	return f
}

func (f *fixture) failureLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.failures...)
}

func (f *fixture) createProperty(t *testing.T) *model.Property {
	t.Helper()
	p := &model.Property{
		Name:      "Sea View Loft",
		Status:    model.PropertyDraft,
		HostID:    hostActor.UserID,
		OwnerID:   hostActor.UserID,
		City:      "Lisbon",
		Pricing:   model.PropertyPricing{BasePrice: 100, Currency: "EUR"},
		Amenities: []string{"wifi"},
	}
	require.NoError(t, f.properties.Create(context.Background(), hostActor, p))
	return p
}

func (f *fixture) updateProperty(t *testing.T, id primitive.ObjectID, mutate func(*model.Property)) []model.FieldChange {
	t.Helper()
	ctx := context.Background()
	p, err := f.properties.FindByID(ctx, id, false)
	require.NoError(t, err)
	mutate(p)
	changes, err := f.properties.Update(ctx, hostActor, p)
	require.NoError(t, err)
	return changes
}

func (f *fixture) auditTrail(t *testing.T, id primitive.ObjectID) []*model.AuditLogEntry {
	t.Helper()
	entries, _, err := f.auditRepo.FindEntries(context.Background(), model.AuditLogFilter{RecordID: id.Hex()})
	require.NoError(t, err)
	return entries
}

// mockAuditLogRepo lets tests make the audit store fail.
type mockAuditLogRepo struct {
	mock.Mock
}

func (m *mockAuditLogRepo) CreateEntry(ctx context.Context, entry *model.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditLogRepo) FindEntries(ctx context.Context, filter model.AuditLogFilter) ([]*model.AuditLogEntry, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*model.AuditLogEntry), args.Get(1).(int64), args.Error(2)
}

func (m *mockAuditLogRepo) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// flakyVersionRepo reports a stale latest version number staleReads times,
// forcing duplicate-key collisions, and can fail every insert.
type flakyVersionRepo struct {
	*repository.MemoryVersionRepository
	mu         sync.Mutex
	staleReads int
	failInsert bool
}

var errStoreDown = errors.New("version store unavailable")

func (r *flakyVersionRepo) LatestVersionNumber(ctx context.Context, id primitive.ObjectID, documentType string) (int, error) {
	n, err := r.MemoryVersionRepository.LatestVersionNumber(ctx, id, documentType)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staleReads > 0 && n > 0 {
		r.staleReads--
		return n - 1, err
	}
	return n, err
}

func (r *flakyVersionRepo) CreateVersion(ctx context.Context, v *model.DocumentVersion) error {
	if r.failInsert {
		return errStoreDown
	}
	return r.MemoryVersionRepository.CreateVersion(ctx, v)
}
