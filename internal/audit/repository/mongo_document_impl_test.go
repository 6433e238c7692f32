package repository

import (
	"context"
	"testing"

	"tripaudit/internal/audit/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoDocumentStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("insert assigns id", func(mt *mtest.T) {
		store := &MongoDocumentStore[model.Property, *model.Property]{Collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		p := &model.Property{Name: "Loft"}
		require.NoError(mt, store.Insert(ctx, p))
		assert.False(mt, p.ID.IsZero())
	})

	mt.Run("find by id decodes inline stamps", func(mt *mtest.T) {
		store := &MongoDocumentStore[model.Property, *model.Property]{Collection: mt.Coll}
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "tripaudit.properties", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Loft"},
			{Key: "created_by", Value: "h1"},
			{Key: "is_deleted", Value: false},
		}))

		p, err := store.FindByID(ctx, id, false)
		require.NoError(mt, err)
		assert.Equal(mt, id, p.ID)
		assert.Equal(mt, "h1", p.CreatedBy)
	})

	mt.Run("find by id missing", func(mt *mtest.T) {
		store := &MongoDocumentStore[model.Property, *model.Property]{Collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "tripaudit.properties", mtest.FirstBatch))

		_, err := store.FindByID(ctx, primitive.NewObjectID(), true)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("replace missing document", func(mt *mtest.T) {
		store := &MongoDocumentStore[model.Booking, *model.Booking]{Collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}, bson.E{Key: "nModified", Value: int32(0)}))

		err := store.Replace(ctx, primitive.NewObjectID(), &model.Booking{})
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}
