package model

// AuditContext identifies who is performing an operation. It is built once per
// request by the request layer and passed explicitly into every mutating call.
// The zero value means "no actor"; stamps are then left blank.
type AuditContext struct {
	UserID    string `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	UserRole  string `json:"user_role,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Authenticated reports whether an actor identity is present.
func (a AuditContext) Authenticated() bool {
	return a.UserID != ""
}
