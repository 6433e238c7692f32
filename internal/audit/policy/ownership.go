package policy

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ownerFields are checked in order; both bson and camelCase spellings are accepted.
var ownerFields = []string{"user_id", "userId", "owner_id", "ownerId", "created_by", "createdBy", "_id", "id"}

// IsResourceOwner is true iff one of the resource's conventional owner fields
// string-equals actorID. Structs are inspected through their bson encoding.
func IsResourceOwner(actorID string, resource any) bool {
	if actorID == "" || resource == nil {
		return false
	}
	doc, ok := toMap(resource)
	if !ok {
		return false
	}
	for _, f := range ownerFields {
		v, ok := doc[f]
		if !ok {
			continue
		}
		if s := stringify(v); s != "" && s == actorID {
			return true
		}
	}
	return false
}

func toMap(resource any) (map[string]any, bool) {
	switch r := resource.(type) {
	case map[string]any:
		return r, true
	case bson.M:
		return r, true
	}
	raw, err := bson.Marshal(resource)
	if err != nil {
		return nil, false
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case primitive.ObjectID:
		if t.IsZero() {
			return ""
		}
		return t.Hex()
	case *primitive.ObjectID:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Hex()
	default:
		return fmt.Sprint(t)
	}
}
