package policy

import "strings"

// AccessLevel is a coarse ordinal derived from the permissions a role holds on one resource.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessRead
	AccessWrite
	AccessUpdate
	AccessDelete
	AccessFull
)

var accessLevelNames = [...]string{"NONE", "READ", "WRITE", "UPDATE", "DELETE", "FULL"}

func (l AccessLevel) String() string {
	if l < AccessNone || l > AccessFull {
		return "UNKNOWN"
	}
	return accessLevelNames[l]
}

// ParseAccessLevel accepts the level name in any case.
func ParseAccessLevel(s string) (AccessLevel, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range accessLevelNames {
		if name == s {
			return AccessLevel(i), true
		}
	}
	return AccessNone, false
}

// Permission scopes
const (
	ScopeOwn = "own"
	ScopeAll = "all"
)

// matrixFile is the on-disk shape of the embedded permission matrix.
type matrixFile struct {
	Version int                 `json:"version"`
	Roles   map[string][]string `json:"roles"`
}

// Permission is a parsed `resource:action[:scope]` string.
type Permission struct {
	Resource string
	Action   string
	Scope    string
}

// ParsePermission splits a permission string. ok is false for malformed input.
func ParsePermission(p string) (Permission, bool) {
	parts := strings.Split(p, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Permission{}, false
	}
	for _, part := range parts {
		if part == "" {
			return Permission{}, false
		}
	}
	perm := Permission{Resource: parts[0], Action: parts[1]}
	if len(parts) == 3 {
		if parts[2] != ScopeOwn && parts[2] != ScopeAll {
			return Permission{}, false
		}
		perm.Scope = parts[2]
	}
	return perm, true
}

func (p Permission) String() string {
	if p.Scope == "" {
		return p.Resource + ":" + p.Action
	}
	return p.Resource + ":" + p.Action + ":" + p.Scope
}
