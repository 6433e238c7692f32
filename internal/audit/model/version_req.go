package model

import "strings"

// GetVersionHistoryReq lists stored versions for one document.
type GetVersionHistoryReq struct {
	DocumentType string `param:"type" validate:"required,max=50"`
	DocumentID   string `param:"id" validate:"required,mongodb"`
	IncludeData  bool   `query:"include_data"`
	Limit        int64  `query:"limit"`
	Skip         int64  `query:"skip"`
}

func (r *GetVersionHistoryReq) Validate() error {
	r.DocumentType = strings.TrimSpace(r.DocumentType)
	r.DocumentID = strings.TrimSpace(r.DocumentID)
	normalizePage(&r.Limit, &r.Skip)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// GetVersionReq fetches a single version by number.
type GetVersionReq struct {
	DocumentType string `param:"type" validate:"required,max=50"`
	DocumentID   string `param:"id" validate:"required,mongodb"`
	Version      int    `param:"version" validate:"required,min=1"`
}

func (r *GetVersionReq) Validate() error {
	r.DocumentType = strings.TrimSpace(r.DocumentType)
	r.DocumentID = strings.TrimSpace(r.DocumentID)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// CompareVersionsReq compares two versions by id.
type CompareVersionsReq struct {
	VersionA string `query:"a" validate:"required,mongodb"`
	VersionB string `query:"b" validate:"required,mongodb"`
}

func (r *CompareVersionsReq) Validate() error {
	r.VersionA = strings.TrimSpace(r.VersionA)
	r.VersionB = strings.TrimSpace(r.VersionB)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// RestoreVersionReq restores a document to a stored version.
type RestoreVersionReq struct {
	VersionID string `param:"versionId" validate:"required,mongodb"`
}

func (r *RestoreVersionReq) Validate() error {
	r.VersionID = strings.TrimSpace(r.VersionID)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// CreateSnapshotReq takes a manual snapshot of the live document.
type CreateSnapshotReq struct {
	DocumentType string   `param:"type" validate:"required,max=50"`
	DocumentID   string   `param:"id" validate:"required,mongodb"`
	Label        string   `json:"label" validate:"omitempty,max=100"`
	Notes        string   `json:"notes" validate:"omitempty,max=1000"`
	Tags         []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	KeepForever  bool     `json:"keep_forever"`
}

func (r *CreateSnapshotReq) Validate() error {
	r.DocumentType = strings.TrimSpace(r.DocumentType)
	r.DocumentID = strings.TrimSpace(r.DocumentID)
	r.Label = strings.TrimSpace(r.Label)

	if len(r.Tags) > 0 {
		seen := make(map[string]bool)
		unique := make([]string, 0, len(r.Tags))
		for _, t := range r.Tags {
			trimmed := strings.TrimSpace(t)
			if trimmed != "" && !seen[trimmed] {
				seen[trimmed] = true
				unique = append(unique, trimmed)
			}
		}
		r.Tags = unique
	}

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
