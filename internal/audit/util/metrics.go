package util

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the audit subsystem.
type Metrics struct {
	AuditEntriesTotal        *prometheus.CounterVec
	VersionsCreatedTotal     *prometheus.CounterVec
	VersionConflictsTotal    *prometheus.CounterVec
	SideChannelFailuresTotal *prometheus.CounterVec
	RestoresTotal            *prometheus.CounterVec
	RetentionDeletedTotal    prometheus.Counter
	RetentionRunsTotal       *prometheus.CounterVec
	GuardDenialsTotal        *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuditEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripaudit_audit_entries_total",
				Help: "Audit log entries written",
			},
			[]string{"record_type", "action"},
		),
		VersionsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripaudit_versions_created_total",
				Help: "Document versions written",
			},
			[]string{"document_type", "change_type"},
		),
		VersionConflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripaudit_version_conflicts_total",
				Help: "Version number collisions that forced a retry",
			},
			[]string{"document_type"},
		),
		SideChannelFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripaudit_side_channel_failures_total",
				Help: "Audit or version writes that failed and were swallowed",
			},
			[]string{"channel", "entity_type"},
		),
		RestoresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripaudit_restores_total",
				Help: "Restore-to-version commands by outcome",
			},
			[]string{"document_type", "status"},
		),
		RetentionDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tripaudit_retention_deleted_total",
				Help: "Versions removed by the retention sweep",
			},
		),
		RetentionRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripaudit_retention_runs_total",
				Help: "Retention sweep runs by outcome",
			},
			[]string{"status"},
		),
		GuardDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripaudit_guard_denials_total",
				Help: "Requests rejected by the access control guard",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		m.AuditEntriesTotal,
		m.VersionsCreatedTotal,
		m.VersionConflictsTotal,
		m.SideChannelFailuresTotal,
		m.RestoresTotal,
		m.RetentionDeletedTotal,
		m.RetentionRunsTotal,
		m.GuardDenialsTotal,
	)

	return m
}

// NopMetrics returns collectors registered on a throwaway registry, for tests
// and callers that do not export metrics.
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
