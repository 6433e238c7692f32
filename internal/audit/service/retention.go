package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/util"

	"github.com/robfig/cron/v3"
)

// retentionRunTimeout bounds one scheduled sweep.
const retentionRunTimeout = 5 * time.Minute

// RetentionSweeper periodically deletes expired versions. Audit entries age
// out through the TTL index on their collection.
type RetentionSweeper struct {
	Versions *VersionService
	Metrics  *util.Metrics
	Logger   *slog.Logger

	cron *cron.Cron
}

// NewRetentionSweeper schedules Run on a standard cron spec or descriptor
// such as "@daily".
func NewRetentionSweeper(versions *VersionService, schedule string, metrics *util.Metrics) (*RetentionSweeper, error) {
	s := &RetentionSweeper{
		Versions: versions,
		Metrics:  metrics,
		Logger:   util.GetLogger(),
		cron:     cron.New(),
	}

	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), retentionRunTimeout)
		defer cancel()
		_, _ = s.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule retention sweep: %w", err)
	}
	return s, nil
}

// Run performs one sweep. It is idempotent.
func (s *RetentionSweeper) Run(ctx context.Context) (model.RetentionResult, error) {
	result := model.RetentionResult{RanAt: s.Versions.Now()}

	deleted, err := s.Versions.PurgeExpired(ctx)
	if err != nil {
		s.Logger.ErrorContext(ctx, "retention sweep failed", "error", err)
		if s.Metrics != nil {
			s.Metrics.RetentionRunsTotal.WithLabelValues("error").Inc()
		}
		return result, err
	}

	result.VersionsDeleted = deleted
	if s.Metrics != nil {
		s.Metrics.RetentionRunsTotal.WithLabelValues("success").Inc()
		s.Metrics.RetentionDeletedTotal.Add(float64(deleted))
	}
	s.Logger.InfoContext(ctx, "retention sweep completed", "versions_deleted", deleted)
	return result, nil
}

func (s *RetentionSweeper) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context done once a running sweep finishes.
func (s *RetentionSweeper) Stop() context.Context {
	return s.cron.Stop()
}
