package model

// ErrorResponse for consistent error handling
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	// Set on 403 responses so clients can see what was missing.
	Required any    `json:"required,omitempty"`
	Current  string `json:"current,omitempty"`
}

func (e *ErrorDetail) Error() string {
	return e.Message
}

// ListResp is the paginated envelope shared by list endpoints.
type ListResp[T any] struct {
	Data       []T   `json:"data"`
	Limit      int64 `json:"limit"`
	Skip       int64 `json:"skip"`
	TotalCount int64 `json:"total_count"`
}
