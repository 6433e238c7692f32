package policy

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"tripaudit/internal/audit/model"
)

//go:embed permissions/matrix.json
var permissionsFS embed.FS

var (
	defaultMatrix *Matrix
	defaultErr    error
	loadOnce      sync.Once
)

// LoadMatrix parses the embedded permission matrix.
func LoadMatrix() (*Matrix, error) {
	data, err := permissionsFS.ReadFile("permissions/matrix.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix.json: %w", err)
	}
	return ParseMatrix(data)
}

// ParseMatrix builds a Matrix from JSON, rejecting unknown roles and malformed permissions.
func ParseMatrix(data []byte) (*Matrix, error) {
	var file matrixFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse permission matrix: %w", err)
	}

	known := make(map[string]bool, len(model.AllRoles))
	for _, r := range model.AllRoles {
		known[r] = true
	}

	grants := make(map[string]map[string]struct{}, len(file.Roles))
	for role, perms := range file.Roles {
		if !known[role] {
			return nil, fmt.Errorf("unknown role %q in permission matrix", role)
		}
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			if _, ok := ParsePermission(p); !ok {
				return nil, fmt.Errorf("malformed permission %q for role %q", p, role)
			}
			set[p] = struct{}{}
		}
		grants[role] = set
	}

	return &Matrix{version: file.Version, grants: grants}, nil
}

// Default returns the process-wide matrix, loading it on first use.
func Default() (*Matrix, error) {
	loadOnce.Do(func() {
		defaultMatrix, defaultErr = LoadMatrix()
	})
	return defaultMatrix, defaultErr
}
