// Package tracker computes field-replacement-level diffs between two document states.
package tracker

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"tripaudit/internal/audit/model"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// skipKeys are bookkeeping keys never reported by a full diff.
var skipKeys = map[string]bool{"_id": true, "__v": true}

var equalOpts = cmp.Options{
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Diff compares before and after. With fields set, only those dot-paths are compared;
// a missing intermediate key resolves to nil. With fields nil, every key of both
// documents is walked, nested documents are recursed into and arrays and scalars
// are compared whole.
func Diff(before, after map[string]any, fields []string) []model.FieldChange {
	changes := []model.FieldChange{}
	if fields != nil {
		for _, f := range fields {
			o := Resolve(before, f)
			n := Resolve(after, f)
			if !Equal(o, n) {
				changes = append(changes, model.FieldChange{Field: f, OldValue: o, NewValue: n})
			}
		}
		return changes
	}
	return walk(before, after, "", changes)
}

func walk(before, after map[string]any, prefix string, changes []model.FieldChange) []model.FieldChange {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		if prefix == "" && skipKeys[k] {
			continue
		}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		o, n := before[k], after[k]
		om, oIsMap := asMap(o)
		nm, nIsMap := asMap(n)
		if oIsMap && nIsMap {
			changes = walk(om, nm, path, changes)
			continue
		}
		if !Equal(o, n) {
			changes = append(changes, model.FieldChange{Field: path, OldValue: o, NewValue: n})
		}
	}
	return changes
}

// Resolve walks a dot-path through nested documents.
func Resolve(doc map[string]any, path string) any {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

// Equal is deep structural equality, order-sensitive for arrays. Nested
// documents compare equal regardless of their concrete map or bson type.
func Equal(a, b any) bool {
	return cmp.Equal(normalize(a), normalize(b), equalOpts)
}

// ToMap converts a document to its bson key/value form.
func ToMap(doc any) (map[string]any, error) {
	if m, ok := asMap(doc); ok {
		return m, nil
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return out, nil
}

// ChangedFields returns the field names of changes, in order.
func ChangedFields(changes []model.FieldChange) []string {
	fields := make([]string, 0, len(changes))
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	return fields
}

// Summary renders a short human description of changes.
func Summary(changes []model.FieldChange) string {
	if len(changes) == 0 {
		return "No changes"
	}
	return "Updated " + strings.Join(ChangedFields(changes), ", ")
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case primitive.M:
		return t, true
	case primitive.D:
		return t.Map(), true
	}
	return nil, false
}

// normalize rewrites bson container types to plain maps and slices and widens
// integers so that values decoded by different paths compare equal.
func normalize(v any) any {
	if m, ok := asMap(v); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = normalize(val)
		}
		return out
	}
	switch t := v.(type) {
	case primitive.A:
		return normalizeSlice(t)
	case []any:
		return normalizeSlice(t)
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	}
	return v
}

func normalizeSlice(s []any) []any {
	out := make([]any, len(s))
	for i, val := range s {
		out[i] = normalize(val)
	}
	return out
}
