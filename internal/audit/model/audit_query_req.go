package model

import (
	"strings"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func normalizePage(limit, skip *int64) {
	if *limit <= 0 {
		*limit = defaultListLimit
	}
	if *limit > maxListLimit {
		*limit = maxListLimit
	}
	if *skip < 0 {
		*skip = 0
	}
}

// GetRecordAuditReq lists the audit trail for one record.
type GetRecordAuditReq struct {
	RecordType string `param:"type" validate:"required,max=50"`
	RecordID   string `param:"id" validate:"required,max=50"`
	Limit      int64  `query:"limit"`
	Skip       int64  `query:"skip"`
}

func (r *GetRecordAuditReq) Validate() error {
	r.RecordType = strings.TrimSpace(r.RecordType)
	r.RecordID = strings.TrimSpace(r.RecordID)
	normalizePage(&r.Limit, &r.Skip)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// GetUserAuditReq lists everything one actor did.
type GetUserAuditReq struct {
	UserID string `param:"userId" validate:"required,max=100"`
	Limit  int64  `query:"limit"`
	Skip   int64  `query:"skip"`
}

func (r *GetUserAuditReq) Validate() error {
	r.UserID = strings.TrimSpace(r.UserID)
	normalizePage(&r.Limit, &r.Skip)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// GetRecentAuditReq lists entries from the last N hours.
type GetRecentAuditReq struct {
	Hours int   `query:"hours" validate:"min=1,max=720"`
	Limit int64 `query:"limit"`
	Skip  int64 `query:"skip"`
}

func (r *GetRecentAuditReq) Validate() error {
	if r.Hours == 0 {
		r.Hours = 24
	}
	normalizePage(&r.Limit, &r.Skip)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// SearchAuditReq is the free-form audit query.
type SearchAuditReq struct {
	RecordType  string     `query:"record_type" validate:"omitempty,max=50"`
	RecordID    string     `query:"record_id" validate:"omitempty,max=50"`
	Action      string     `query:"action" validate:"omitempty,oneof=create update delete restore"`
	PerformedBy string     `query:"performed_by" validate:"omitempty,max=100"`
	StartTime   *time.Time `query:"start_time"`
	EndTime     *time.Time `query:"end_time"`
	Limit       int64      `query:"limit"`
	Skip        int64      `query:"skip"`
}

func (r *SearchAuditReq) Validate() error {
	r.RecordType = strings.TrimSpace(r.RecordType)
	r.RecordID = strings.TrimSpace(r.RecordID)
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	r.PerformedBy = strings.TrimSpace(r.PerformedBy)
	normalizePage(&r.Limit, &r.Skip)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	if r.StartTime != nil && r.EndTime != nil && r.EndTime.Before(*r.StartTime) {
		return &ErrorDetail{Code: "bad_request", Message: "end_time must not be before start_time"}
	}
	return nil
}

// Filter converts the request to a repository filter.
func (r *SearchAuditReq) Filter() AuditLogFilter {
	return AuditLogFilter{
		RecordID:    r.RecordID,
		RecordType:  r.RecordType,
		Action:      r.Action,
		PerformedBy: r.PerformedBy,
		From:        r.StartTime,
		To:          r.EndTime,
		Limit:       r.Limit,
		Skip:        r.Skip,
	}
}

// ExportAuditReq takes the search filters for a CSV export. Without a limit
// every match is exported; an explicit limit is not held to the page maximum.
type ExportAuditReq struct {
	SearchAuditReq
}

func (r *ExportAuditReq) Validate() error {
	limit := r.Limit
	if err := r.SearchAuditReq.Validate(); err != nil {
		return err
	}
	r.Limit = max(limit, 0)
	return nil
}
