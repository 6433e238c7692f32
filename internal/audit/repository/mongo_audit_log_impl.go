package repository

import (
	"context"
	"fmt"
	"time"

	"tripaudit/internal/audit/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuditLogRepository implements AuditLogRepository using MongoDB
type MongoAuditLogRepository struct {
	Collection *mongo.Collection
	// Retention drives the TTL index on performed_at. Zero disables expiry.
	Retention time.Duration
}

func NewMongoAuditLogRepository(db *mongo.Database, collectionName string, retention time.Duration) *MongoAuditLogRepository {
	return &MongoAuditLogRepository{
		Collection: db.Collection(collectionName),
		Retention:  retention,
	}
}

const auditTTLIndex = "ttl_performed_at"

func (r *MongoAuditLogRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.syncRetention(ctx); err != nil {
		return fmt.Errorf("sync audit retention index: %w", err)
	}

	indexes := []mongo.IndexModel{
		// Trail for one record
		{
			Keys: bson.D{
				{Key: "record_type", Value: 1},
				{Key: "record_id", Value: 1},
				{Key: "performed_at", Value: -1},
			},
			Options: options.Index().SetName("idx_record_trail"),
		},
		// Activity of one actor
		{
			Keys: bson.D{
				{Key: "performed_by", Value: 1},
				{Key: "performed_at", Value: -1},
			},
			Options: options.Index().SetName("idx_actor_activity"),
		},
		{
			Keys: bson.D{
				{Key: "action", Value: 1},
				{Key: "performed_at", Value: -1},
			},
			Options: options.Index().SetName("idx_action"),
		},
	}

	ttl := options.Index().SetName(auditTTLIndex)
	if r.Retention > 0 {
		ttl.SetExpireAfterSeconds(int32(r.Retention / time.Second))
	}
	indexes = append(indexes, mongo.IndexModel{
		Keys:    bson.D{{Key: "performed_at", Value: 1}},
		Options: ttl,
	})

	_, err := r.Collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// syncRetention brings an existing TTL index in line with Retention. MongoDB
// will not recreate an index under the same name with other options, so a
// changed expiry goes through collMod, and an index gaining or losing its TTL
// is dropped for EnsureIndexes to rebuild.
func (r *MongoAuditLogRepository) syncRetention(ctx context.Context) error {
	cursor, err := r.Collection.Indexes().List(ctx)
	if err != nil {
		return err
	}
	var specs []bson.M
	if err := cursor.All(ctx, &specs); err != nil {
		return err
	}

	want := int64(r.Retention / time.Second)
	for _, spec := range specs {
		if spec["name"] != auditTTLIndex {
			continue
		}
		current, hasTTL := expireAfterSeconds(spec)
		switch {
		case hasTTL && want > 0 && current == want, !hasTTL && want <= 0:
			return nil
		case hasTTL && want > 0:
			return r.Collection.Database().RunCommand(ctx, bson.D{
				{Key: "collMod", Value: r.Collection.Name()},
				{Key: "index", Value: bson.D{
					{Key: "name", Value: auditTTLIndex},
					{Key: "expireAfterSeconds", Value: want},
				}},
			}).Err()
		default:
			_, err := r.Collection.Indexes().DropOne(ctx, auditTTLIndex)
			return err
		}
	}
	return nil
}

func expireAfterSeconds(spec bson.M) (int64, bool) {
	switch v := spec["expireAfterSeconds"].(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func (r *MongoAuditLogRepository) CreateEntry(ctx context.Context, entry *model.AuditLogEntry) error {
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now().UTC()
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, entry)
	return err
}

func (r *MongoAuditLogRepository) FindEntries(ctx context.Context, f model.AuditLogFilter) ([]*model.AuditLogEntry, int64, error) {
	filter := auditFilter(f)

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "performed_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(f.Skip)
	if f.Limit > 0 {
		findOptions.SetLimit(f.Limit)
	}

	cursor, err := r.Collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	results := []*model.AuditLogEntry{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func auditFilter(f model.AuditLogFilter) bson.M {
	filter := bson.M{}
	if f.RecordID != "" {
		filter["record_id"] = f.RecordID
	}
	if f.RecordType != "" {
		filter["record_type"] = f.RecordType
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	if f.PerformedBy != "" {
		filter["performed_by"] = f.PerformedBy
	}
	if f.From != nil || f.To != nil {
		timeFilter := bson.M{}
		if f.From != nil {
			timeFilter["$gte"] = *f.From
		}
		if f.To != nil {
			timeFilter["$lte"] = *f.To
		}
		filter["performed_at"] = timeFilter
	}
	return filter
}
