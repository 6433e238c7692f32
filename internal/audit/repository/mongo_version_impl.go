package repository

import (
	"context"
	"errors"
	"time"

	"tripaudit/internal/audit/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVersionRepository implements VersionRepository using MongoDB
type MongoVersionRepository struct {
	Collection *mongo.Collection
}

func NewMongoVersionRepository(db *mongo.Database, collectionName string) *MongoVersionRepository {
	return &MongoVersionRepository{
		Collection: db.Collection(collectionName),
	}
}

func (r *MongoVersionRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Losing writer of a concurrent version bump gets a duplicate key error
		{
			Keys: bson.D{
				{Key: "document_id", Value: 1},
				{Key: "document_type", Value: 1},
				{Key: "version", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_document_version"),
		},
		{
			Keys: bson.D{
				{Key: "created_by", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_version_author"),
		},
		{
			Keys: bson.D{{Key: "retention_policy.expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_version_expiry").
				SetExpireAfterSeconds(0).
				SetPartialFilterExpression(bson.M{
					"retention_policy.keep_forever": false,
				}),
		},
	}

	_, err := r.Collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *MongoVersionRepository) CreateVersion(ctx context.Context, v *model.DocumentVersion) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, v)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoVersionRepository) LatestVersionNumber(ctx context.Context, documentID primitive.ObjectID, documentType string) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "version", Value: -1}}).
		SetProjection(bson.M{"version": 1})

	var latest struct {
		Version int `bson:"version"`
	}
	err := r.Collection.FindOne(ctx, bson.M{
		"document_id":   documentID,
		"document_type": documentType,
	}, opts).Decode(&latest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return latest.Version, nil
}

func (r *MongoVersionRepository) FindVersions(ctx context.Context, documentID primitive.ObjectID, documentType string, q VersionQuery) ([]*model.DocumentVersion, int64, error) {
	filter := bson.M{
		"document_id":   documentID,
		"document_type": documentType,
	}

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "version", Value: -1}}).
		SetSkip(q.Skip)
	if q.Limit > 0 {
		findOptions.SetLimit(q.Limit)
	}
	if !q.IncludeData {
		findOptions.SetProjection(bson.M{"data": 0})
	}

	cursor, err := r.Collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	results := []*model.DocumentVersion{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *MongoVersionRepository) FindVersion(ctx context.Context, documentID primitive.ObjectID, documentType string, version int) (*model.DocumentVersion, error) {
	return r.findOne(ctx, bson.M{
		"document_id":   documentID,
		"document_type": documentType,
		"version":       version,
	})
}

func (r *MongoVersionRepository) FindVersionByID(ctx context.Context, id primitive.ObjectID) (*model.DocumentVersion, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoVersionRepository) findOne(ctx context.Context, filter bson.M) (*model.DocumentVersion, error) {
	var v model.DocumentVersion
	if err := r.Collection.FindOne(ctx, filter).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *MongoVersionRepository) MarkRestored(ctx context.Context, id primitive.ObjectID, restoredBy string, at time.Time) error {
	res, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"restored_at": at, "restored_by": restoredBy}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoVersionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.Collection.DeleteMany(ctx, bson.M{
		"retention_policy.keep_forever": bson.M{"$ne": true},
		"retention_policy.expires_at":   bson.M{"$lte": now},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
