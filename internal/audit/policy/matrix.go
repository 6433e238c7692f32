package policy

import (
	"sort"
	"strings"
)

// Matrix maps each role to its granted permission set. It is never mutated after
// construction, so concurrent reads need no locking.
type Matrix struct {
	version int
	grants  map[string]map[string]struct{}
}

func (m *Matrix) Version() int { return m.version }

// IsRole reports whether role has an entry in the matrix.
func (m *Matrix) IsRole(role string) bool {
	_, ok := m.grants[role]
	return ok
}

// HasPermission is true iff permission is in the role's granted set.
func (m *Matrix) HasPermission(role, permission string) bool {
	set, ok := m.grants[role]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}

func (m *Matrix) HasAnyPermission(role string, permissions []string) bool {
	for _, p := range permissions {
		if m.HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions is true for an empty list.
func (m *Matrix) HasAllPermissions(role string, permissions []string) bool {
	for _, p := range permissions {
		if !m.HasPermission(role, p) {
			return false
		}
	}
	return true
}

// Permissions returns a sorted copy of the role's permissions.
func (m *Matrix) Permissions(role string) []string {
	set := m.grants[role]
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// RolesWithPermission returns the roles granted permission, sorted.
func (m *Matrix) RolesWithPermission(permission string) []string {
	var roles []string
	for role, set := range m.grants {
		if _, ok := set[permission]; ok {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}

// AccessLevel evaluates FULL, DELETE, UPDATE, WRITE, READ in that order and
// returns the first level whose permission the role holds.
func (m *Matrix) AccessLevel(role, resource string) AccessLevel {
	set, ok := m.grants[role]
	if !ok {
		return AccessNone
	}
	has := func(p string) bool {
		_, ok := set[p]
		return ok
	}
	hasPrefix := func(prefix string) bool {
		for p := range set {
			if p == prefix || strings.HasPrefix(p, prefix+":") {
				return true
			}
		}
		return false
	}

	switch {
	case has(resource + ":delete:all"):
		return AccessFull
	case has(resource+":delete") || has(resource+":delete:own"):
		return AccessDelete
	case hasPrefix(resource + ":update"):
		return AccessUpdate
	case has(resource + ":create"):
		return AccessWrite
	case hasPrefix(resource + ":read"):
		return AccessRead
	}
	return AccessNone
}

// CanAccess resolves a permission against a concrete resource. A `:own`
// permission is satisfied by the matching `:all` grant, or by the `:own` grant
// when actorID owns resource. Other permissions reduce to HasPermission.
func (m *Matrix) CanAccess(role, permission, actorID string, resource any) bool {
	perm, ok := ParsePermission(permission)
	if !ok {
		return false
	}
	if perm.Scope != ScopeOwn {
		return m.HasPermission(role, permission)
	}

	all := Permission{Resource: perm.Resource, Action: perm.Action, Scope: ScopeAll}
	if m.HasPermission(role, all.String()) {
		return true
	}
	return m.HasPermission(role, permission) && IsResourceOwner(actorID, resource)
}
