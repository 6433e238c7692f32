package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewEntryCopiesActor(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	changes := []model.FieldChange{{Field: "status", OldValue: "draft", NewValue: "active"}}

	e := NewEntry(hostActor, model.EntityProperty, "abc", model.ActionUpdate, changes, "why", at)
	assert.Equal(t, "abc", e.RecordID)
	assert.Equal(t, model.EntityProperty, e.RecordType)
	assert.Equal(t, hostActor.UserID, e.PerformedBy)
	assert.Equal(t, hostActor.UserName, e.PerformedByName)
	assert.Equal(t, hostActor.UserRole, e.PerformedByRole)
	assert.Equal(t, hostActor.IPAddress, e.IPAddress)
	assert.Equal(t, hostActor.UserAgent, e.UserAgent)
	assert.Equal(t, hostActor.SessionID, e.SessionID)
	assert.Equal(t, at, e.PerformedAt)
	assert.Equal(t, changes, e.Changes)
	assert.Equal(t, "why", e.Reason)
}

func TestRecordStrictReturnsError(t *testing.T) {
	repo := new(mockAuditLogRepo)
	repo.On("CreateEntry", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	f := newFixture(t, withAuditRepo(repo))
	err := f.auditLog.Record(context.Background(), NewEntry(hostActor, model.EntityBooking, "b1", model.ActionCreate, nil, "", time.Time{}))
	require.Error(t, err)
	assert.Empty(t, f.failureLog(), "strict writes do not go through the failure hook")
	repo.AssertExpectations(t)
}

func TestRecordBestEffortReportsFailure(t *testing.T) {
	repo := new(mockAuditLogRepo)
	repo.On("CreateEntry", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	f := newFixture(t, withAuditRepo(repo))
	ok := f.auditLog.RecordBestEffort(context.Background(), NewEntry(hostActor, model.EntityBooking, "b1", model.ActionCreate, nil, "", time.Time{}))
	assert.False(t, ok)
	assert.Equal(t, []string{"audit/Booking"}, f.failureLog())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SideChannelFailuresTotal.WithLabelValues(ChannelAudit, model.EntityBooking)))
}

func TestRecordBestEffortSurvivesCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := f.auditLog.RecordBestEffort(ctx, NewEntry(hostActor, model.EntityBooking, "b1", model.ActionCreate, nil, "", time.Time{}))
	assert.True(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuditEntriesTotal.WithLabelValues(model.EntityBooking, model.ActionCreate)))
}

// seedTrail writes entries one second apart starting at the fixture clock.
func seedTrail(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	rows := []struct {
		actor  model.AuditContext
		typ    string
		id     string
		action string
	}{
		{hostActor, model.EntityProperty, "p1", model.ActionCreate},
		{hostActor, model.EntityProperty, "p1", model.ActionUpdate},
		{managerActor, model.EntityProperty, "p1", model.ActionDelete},
		{managerActor, model.EntityBooking, "b1", model.ActionCreate},
		{hostActor, model.EntityBooking, "b1", model.ActionUpdate},
	}
	for _, r := range rows {
		require.NoError(t, f.auditLog.Record(ctx, NewEntry(r.actor, r.typ, r.id, r.action, nil, "", f.clock.Now())))
	}
}

func TestAuditQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedTrail(t, f)

	record := model.GetRecordAuditReq{RecordType: model.EntityProperty, RecordID: "p1"}
	require.NoError(t, record.Validate())
	byRecord, err := f.auditLog.ListForRecord(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, int64(3), byRecord.TotalCount)
	assert.Equal(t, int64(50), byRecord.Limit)
	require.Len(t, byRecord.Data, 3)
	assert.Equal(t, model.ActionDelete, byRecord.Data[0].Action, "newest first")
	assert.Equal(t, model.ActionCreate, byRecord.Data[2].Action)

	user := model.GetUserAuditReq{UserID: managerActor.UserID, Limit: 1}
	require.NoError(t, user.Validate())
	byUser, err := f.auditLog.ListForUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byUser.TotalCount)
	require.Len(t, byUser.Data, 1)
	assert.Equal(t, model.EntityBooking, byUser.Data[0].RecordType)

	search := model.SearchAuditReq{Action: "CREATE"}
	require.NoError(t, search.Validate())
	created, err := f.auditLog.Search(ctx, search)
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.TotalCount)

	recent := model.GetRecentAuditReq{}
	require.NoError(t, recent.Validate())
	last, err := f.auditLog.ListRecent(ctx, recent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), last.TotalCount)
}

func TestSearchTimeWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedTrail(t, f)

	// entries sit at 12:00:01 through 12:00:05
	start := time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC)
	end := time.Date(2026, 3, 1, 12, 0, 4, 0, time.UTC)
	req := model.SearchAuditReq{StartTime: &start, EndTime: &end}
	require.NoError(t, req.Validate())

	res, err := f.auditLog.Search(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalCount)
	for _, e := range res.Data {
		assert.False(t, e.PerformedAt.Before(start))
		assert.False(t, e.PerformedAt.After(end))
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedTrail(t, f)
	changes := []model.FieldChange{
		{Field: "status", OldValue: "pending", NewValue: "confirmed"},
		{Field: "guests", OldValue: 2, NewValue: 3},
	}
	require.NoError(t, f.auditLog.Record(ctx, NewEntry(managerActor, model.EntityBooking, "b1", model.ActionUpdate, changes, "guest request", f.clock.Now())))

	var buf bytes.Buffer
	n, err := f.auditLog.ExportCSV(ctx, &buf, model.AuditLogFilter{RecordID: "b1"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])

	newest := rows[1]
	assert.Equal(t, "2026-03-01T12:00:06Z", newest[1])
	assert.Equal(t, model.ActionUpdate, newest[2])
	assert.Equal(t, managerActor.UserID, newest[5])
	assert.Equal(t, "status;guests", newest[11])
	assert.JSONEq(t, `[{"field":"status","old_value":"pending","new_value":"confirmed"},{"field":"guests","old_value":2,"new_value":3}]`, newest[12])
	assert.Equal(t, "guest request", newest[13])
	assert.Empty(t, rows[3][12], "no changes, empty column")
}

func TestExportCSVHonorsLimit(t *testing.T) {
	f := newFixture(t)
	seedTrail(t, f)

	var buf bytes.Buffer
	n, err := f.auditLog.ExportCSV(context.Background(), &buf, model.AuditLogFilter{Limit: 2, Skip: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExportCSVReadsPastOneBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	total := exportBatchSize*2 + 100
	for i := 0; i < total; i++ {
		e := NewEntry(hostActor, model.EntityProperty, "p1", model.ActionUpdate, nil, "", f.clock.Now())
		require.NoError(t, f.auditRepo.CreateEntry(ctx, e))
	}

	var buf bytes.Buffer
	n, err := f.auditLog.ExportCSV(ctx, &buf, model.AuditLogFilter{RecordID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, total, n)
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, total+1)

	buf.Reset()
	n, err = f.auditLog.ExportCSV(ctx, &buf, model.AuditLogFilter{RecordID: "p1", Limit: exportBatchSize + 1})
	require.NoError(t, err)
	assert.Equal(t, exportBatchSize+1, n)
}

func TestExportCSVStoreError(t *testing.T) {
	repo := new(mockAuditLogRepo)
	repo.On("FindEntries", mock.Anything, mock.Anything).Return([]*model.AuditLogEntry(nil), int64(0), repository.ErrNotFound)
	f := newFixture(t, withAuditRepo(repo))

	_, err := f.auditLog.ExportCSV(context.Background(), &bytes.Buffer{}, model.AuditLogFilter{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
