package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

type MongoRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

func NewMongoRepository(client *mongo.Client, database, collection string) *MongoRepository {
	return &MongoRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

func (m *MongoRepository) capsules() *mongo.Collection {
	return m.client.Database(m.database).Collection(m.collection)
}

func (m *MongoRepository) Create(ctx context.Context, capsule *Capsule) error {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()

	startTime := time.Now()
	if _, err := m.capsules().InsertOne(ctx, capsule); err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "mongodb", "Create", 1, time.Since(startTime))

	return nil
}

func (m *MongoRepository) List(ctx context.Context) ([]Capsule, error) {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	startTime := time.Now()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.capsules().Find(ctx, bson.M{}, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	capsules, err := decodeCapsules(ctx, cursor)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	addDBStatsToSpan(span, "mongodb", "List", len(capsules), time.Since(startTime))

	return capsules, nil
}

func (m *MongoRepository) FetchDue(ctx context.Context, now time.Time, batchSize int) ([]Capsule, error) {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "FetchDue")
	defer span.End()

	startTime := time.Now()
	filter := bson.M{
		"unlock_at": bson.M{"$lte": now},
		"$or": []bson.M{
			{"status": StatusPending},
			{"status": StatusProcessing, "updated_at": bson.M{"$lt": now.Add(-lockExpiration)}},
		},
	}
	opts := options.Find().
		SetLimit(int64(batchSize)).
		SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := m.capsules().Find(ctx, filter, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	capsules, err := decodeCapsules(ctx, cursor)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	addDBStatsToSpan(span, "mongodb", "FetchDue", len(capsules), time.Since(startTime))

	return capsules, nil
}

func (m *MongoRepository) Claim(ctx context.Context, capsuleID string) (bool, error) {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "Claim")
	defer span.End()

	startTime := time.Now()
	filter := bson.M{
		"id": capsuleID,
		"$or": []bson.M{
			{"status": StatusPending},
			{"status": StatusProcessing, "updated_at": bson.M{"$lt": time.Now().Add(-lockExpiration)}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     StatusProcessing,
			"updated_at": time.Now(),
		},
	}
	res, err := m.capsules().UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	addDBStatsToSpan(span, "mongodb", "Claim", int(res.ModifiedCount), time.Since(startTime))

	return res.ModifiedCount == 1, nil
}

func (m *MongoRepository) Update(ctx context.Context, capsule *Capsule) error {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "Update")
	defer span.End()

	startTime := time.Now()
	filter := bson.M{"id": capsule.ID}
	update := bson.M{
		"$set": bson.M{
			"status":        capsule.Status,
			"sent_at":       capsule.SentAt,
			"last_error":    capsule.LastError,
			"last_error_at": capsule.LastErrorAt,
			"failure_count": capsule.FailureCount,
			"updated_at":    time.Now(),
		},
	}
	if _, err := m.capsules().UpdateOne(ctx, filter, update); err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "mongodb", "Update", 1, time.Since(startTime))

	return nil
}

func decodeCapsules(ctx context.Context, cursor *mongo.Cursor) ([]Capsule, error) {
	var capsules []Capsule
	for cursor.Next(ctx) {
		var capsule Capsule
		if err := cursor.Decode(&capsule); err != nil {
			return nil, err
		}
		capsules = append(capsules, capsule)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return capsules, nil
}
