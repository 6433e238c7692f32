package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/repository"
	"tripaudit/internal/audit/tracker"
	"tripaudit/internal/audit/util"
)

// exportBatchSize is the page size used when streaming a CSV export.
const exportBatchSize = 500

// AuditLogService writes and queries the audit trail.
type AuditLogService struct {
	Repo    repository.AuditLogRepository
	Metrics *util.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
	// Hook is told about every swallowed write failure.
	Hook FailureHook
}

func NewAuditLogService(repo repository.AuditLogRepository, metrics *util.Metrics) *AuditLogService {
	return &AuditLogService{
		Repo:    repo,
		Metrics: metrics,
		Logger:  util.GetLogger(),
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewEntry snapshots the actor into an entry for one action.
func NewEntry(actx model.AuditContext, recordType, recordID, action string, changes []model.FieldChange, reason string, at time.Time) *model.AuditLogEntry {
	return &model.AuditLogEntry{
		RecordID:        recordID,
		RecordType:      recordType,
		Action:          action,
		PerformedBy:     actx.UserID,
		PerformedByName: actx.UserName,
		PerformedByRole: actx.UserRole,
		PerformedAt:     at,
		IPAddress:       actx.IPAddress,
		UserAgent:       actx.UserAgent,
		SessionID:       actx.SessionID,
		Changes:         changes,
		Reason:          reason,
	}
}

// Record persists entry and returns any store error to the caller.
func (s *AuditLogService) Record(ctx context.Context, entry *model.AuditLogEntry) error {
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = s.Now()
	}
	if err := s.Repo.CreateEntry(ctx, entry); err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}
	if s.Metrics != nil {
		s.Metrics.AuditEntriesTotal.WithLabelValues(entry.RecordType, entry.Action).Inc()
	}
	return nil
}

func (s *AuditLogService) ListForRecord(ctx context.Context, req model.GetRecordAuditReq) (*model.ListResp[*model.AuditLogEntry], error) {
	return s.list(ctx, model.AuditLogFilter{
		RecordType: req.RecordType,
		RecordID:   req.RecordID,
		Limit:      req.Limit,
		Skip:       req.Skip,
	})
}

func (s *AuditLogService) ListForUser(ctx context.Context, req model.GetUserAuditReq) (*model.ListResp[*model.AuditLogEntry], error) {
	return s.list(ctx, model.AuditLogFilter{
		PerformedBy: req.UserID,
		Limit:       req.Limit,
		Skip:        req.Skip,
	})
}

func (s *AuditLogService) ListRecent(ctx context.Context, req model.GetRecentAuditReq) (*model.ListResp[*model.AuditLogEntry], error) {
	from := s.Now().Add(-time.Duration(req.Hours) * time.Hour)
	return s.list(ctx, model.AuditLogFilter{
		From:  &from,
		Limit: req.Limit,
		Skip:  req.Skip,
	})
}

func (s *AuditLogService) Search(ctx context.Context, req model.SearchAuditReq) (*model.ListResp[*model.AuditLogEntry], error) {
	return s.list(ctx, req.Filter())
}

func (s *AuditLogService) list(ctx context.Context, filter model.AuditLogFilter) (*model.ListResp[*model.AuditLogEntry], error) {
	entries, total, err := s.Repo.FindEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &model.ListResp[*model.AuditLogEntry]{
		Data:       entries,
		Limit:      filter.Limit,
		Skip:       filter.Skip,
		TotalCount: total,
	}, nil
}

var csvHeader = []string{
	"ID",
	"PerformedAt",
	"Action",
	"RecordType",
	"RecordID",
	"PerformedBy",
	"PerformedByName",
	"PerformedByRole",
	"IPAddress",
	"UserAgent",
	"SessionID",
	"ChangedFields",
	"Changes",
	"Reason",
}

// ExportCSV streams every entry matching filter to w, newest first, reading
// the store in batches. A positive filter.Limit caps the row count; zero
// exports everything. Skip is honored.
func (s *AuditLogService) ExportCSV(ctx context.Context, w io.Writer, filter model.AuditLogFilter) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	limit := filter.Limit
	written := 0
	for limit <= 0 || int64(written) < limit {
		batch := int64(exportBatchSize)
		if limit > 0 {
			batch = min(batch, limit-int64(written))
		}
		filter.Limit = batch
		entries, _, err := s.Repo.FindEntries(ctx, filter)
		if err != nil {
			return written, err
		}
		for _, e := range entries {
			row, err := csvRow(e)
			if err != nil {
				return written, err
			}
			if err := writer.Write(row); err != nil {
				return written, fmt.Errorf("failed to write CSV row: %w", err)
			}
			written++
		}
		if int64(len(entries)) < batch {
			break
		}
		filter.Skip += int64(len(entries))
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return written, fmt.Errorf("CSV writer error: %w", err)
	}
	return written, nil
}

func csvRow(e *model.AuditLogEntry) ([]string, error) {
	fields := strings.Join(tracker.ChangedFields(e.Changes), ";")
	changes := ""
	if len(e.Changes) > 0 {
		b, err := json.Marshal(e.Changes)
		if err != nil {
			return nil, fmt.Errorf("encode changes: %w", err)
		}
		changes = string(b)
	}
	return []string{
		e.ID.Hex(),
		e.PerformedAt.UTC().Format(time.RFC3339),
		e.Action,
		e.RecordType,
		e.RecordID,
		e.PerformedBy,
		e.PerformedByName,
		e.PerformedByRole,
		e.IPAddress,
		e.UserAgent,
		e.SessionID,
		fields,
		changes,
		e.Reason,
	}, nil
}

// RecordBestEffort writes entry, swallowing and reporting any failure. It
// reports whether the entry was stored.
func (s *AuditLogService) RecordBestEffort(ctx context.Context, entry *model.AuditLogEntry) bool {
	ctx, cancel := detach(ctx)
	defer cancel()

	if err := s.Record(ctx, entry); err != nil {
		s.side().fail(ctx, ChannelAudit, entry.RecordType, entry.RecordID, err)
		return false
	}
	return true
}

func (s *AuditLogService) side() sideChannel {
	return sideChannel{logger: s.Logger, metrics: s.Metrics, hook: s.Hook}
}
