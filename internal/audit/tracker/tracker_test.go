package tracker

import (
	"testing"
	"time"

	"tripaudit/internal/audit/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDiffTrackedFields(t *testing.T) {
	t.Run("nested path change", func(t *testing.T) {
		before := map[string]any{"a": 1, "b": map[string]any{"c": 2}}
		after := map[string]any{"a": 1, "b": map[string]any{"c": 3}}

		got := Diff(before, after, []string{"b.c"})
		assert.Equal(t, []model.FieldChange{{Field: "b.c", OldValue: 2, NewValue: 3}}, got)
	})

	t.Run("no-op produces empty diff", func(t *testing.T) {
		got := Diff(map[string]any{"a": 1}, map[string]any{"a": 1}, []string{"a"})
		assert.Empty(t, got)
	})

	t.Run("missing intermediate resolves to nil", func(t *testing.T) {
		before := map[string]any{"a": 1}
		after := map[string]any{"pricing": bson.M{"total_amount": 100.0}}

		got := Diff(before, after, []string{"pricing.total_amount", "x.y.z"})
		require.Len(t, got, 1)
		assert.Equal(t, "pricing.total_amount", got[0].Field)
		assert.Nil(t, got[0].OldValue)
		assert.Equal(t, 100.0, got[0].NewValue)
	})

	t.Run("untracked changes ignored", func(t *testing.T) {
		got := Diff(map[string]any{"a": 1, "b": 1}, map[string]any{"a": 1, "b": 2}, []string{"a"})
		assert.Empty(t, got)
	})

	t.Run("arrays are order sensitive", func(t *testing.T) {
		before := map[string]any{"tags": primitive.A{"wifi", "pool"}}
		after := map[string]any{"tags": []any{"pool", "wifi"}}
		assert.Len(t, Diff(before, after, []string{"tags"}), 1)

		same := map[string]any{"tags": []any{"wifi", "pool"}}
		assert.Empty(t, Diff(before, same, []string{"tags"}))
	})

	t.Run("integer widths compare equal", func(t *testing.T) {
		got := Diff(map[string]any{"guests": int32(2)}, map[string]any{"guests": 2}, []string{"guests"})
		assert.Empty(t, got)
	})

	t.Run("field order follows the tracked list", func(t *testing.T) {
		before := map[string]any{"a": 1, "b": 1}
		after := map[string]any{"a": 2, "b": 2}
		got := Diff(before, after, []string{"b", "a"})
		assert.Equal(t, []string{"b", "a"}, ChangedFields(got))
	})
}

func TestDiffFullObject(t *testing.T) {
	before := bson.M{
		"_id":    primitive.NewObjectID(),
		"name":   "Sea View",
		"status": "draft",
		"pricing": bson.M{
			"base_price": 100.0,
			"currency":   "USD",
		},
		"amenities": bson.A{"wifi"},
	}
	after := bson.M{
		"_id":    primitive.NewObjectID(),
		"name":   "Sea View",
		"status": "active",
		"pricing": bson.M{
			"base_price": 120.0,
			"currency":   "USD",
		},
		"amenities": bson.A{"wifi", "pool"},
		"city":      "Lisbon",
	}

	got := Diff(before, after, nil)
	assert.Equal(t, []string{"amenities", "city", "pricing.base_price", "status"}, ChangedFields(got))
	assert.Equal(t, 100.0, got[2].OldValue)
	assert.Equal(t, 120.0, got[2].NewValue)
	assert.Nil(t, got[1].OldValue)
}

func TestDiffFullObjectTypeChange(t *testing.T) {
	before := map[string]any{"meta": map[string]any{"k": 1}}
	after := map[string]any{"meta": "flat"}

	got := Diff(before, after, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "meta", got[0].Field)
}

func TestEqual(t *testing.T) {
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, Equal(ts, ts.In(time.FixedZone("x", 3600))))
	assert.True(t, Equal(bson.M{"a": bson.A{1}}, map[string]any{"a": []any{int64(1)}}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, ""))
}

func TestToMap(t *testing.T) {
	p := &model.Property{Name: "Loft", Pricing: model.PropertyPricing{BasePrice: 80, Currency: "EUR"}}
	m, err := ToMap(p)
	require.NoError(t, err)
	assert.Equal(t, "Loft", m["name"])
	assert.Equal(t, 80.0, Resolve(m, "pricing.base_price"))
	assert.Equal(t, "EUR", Resolve(m, "pricing.currency"))

	_, err = ToMap("not a document")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "No changes", Summary(nil))
	assert.Equal(t, "Updated status, guests", Summary([]model.FieldChange{{Field: "status"}, {Field: "guests"}}))
}
