package repository

import (
	"context"
	"errors"

	"tripaudit/internal/audit/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDocumentStore implements DocumentStore for one auditable entity collection.
type MongoDocumentStore[T any, PT model.AuditablePtr[T]] struct {
	Collection   *mongo.Collection
	extraIndexes []mongo.IndexModel
}

func NewMongoDocumentStore[T any, PT model.AuditablePtr[T]](db *mongo.Database, collectionName string, extraIndexes ...mongo.IndexModel) *MongoDocumentStore[T, PT] {
	return &MongoDocumentStore[T, PT]{
		Collection:   db.Collection(collectionName),
		extraIndexes: extraIndexes,
	}
}

func (s *MongoDocumentStore[T, PT]) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "is_deleted", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_live_created_at"),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}},
			Options: options.Index().SetName("idx_created_by"),
		},
	}
	indexes = append(indexes, s.extraIndexes...)

	_, err := s.Collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *MongoDocumentStore[T, PT]) Insert(ctx context.Context, doc *T) error {
	p := PT(doc)
	if p.GetID().IsZero() {
		p.SetID(primitive.NewObjectID())
	}
	_, err := s.Collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *MongoDocumentStore[T, PT]) Replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	res, err := s.Collection.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoDocumentStore[T, PT]) FindByID(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*T, error) {
	var doc T
	err := s.Collection.FindOne(ctx, notDeleted(bson.M{"_id": id}, includeDeleted)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (s *MongoDocumentStore[T, PT]) Find(ctx context.Context, filter bson.M, opts ListOptions) ([]*T, int64, error) {
	query := notDeleted(filter, opts.IncludeDeleted)

	total, err := s.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(opts.Skip)
	if opts.Limit > 0 {
		findOptions.SetLimit(opts.Limit)
	}

	cursor, err := s.Collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	results := []*T{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
