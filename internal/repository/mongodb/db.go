package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jwalitptl/cabinet-api/internal/config"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/pkg/metrics"
)

const (
	usersCollection         = "users"
	patientsCollection      = "patients"
	doctorsCollection       = "doctors"
	consultationsCollection = "consultations"

	storeName = "mongodb"
)

// DB owns the process-wide client. Pooling is left to the driver.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewDB(ctx context.Context, cfg config.MongoConfig) (*DB, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &DB{client: client, db: client.Database(cfg.Database)}, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique email index and the lookup indexes.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		patientsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		doctorsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		consultationsCollection: {
			{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "doctor_id", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := d.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (d *DB) collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	}
	return err
}

func observe(operation string, start time.Time, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		err = nil
	}
	metrics.ObserveStore(storeName, operation, start, err)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, op string, filter bson.M) (*T, error) {
	start := time.Now()
	var doc T
	err := mapError(coll.FindOne(ctx, filter).Decode(&doc))
	observe(op, start, err)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func findPage[T any](ctx context.Context, coll *mongo.Collection, op string, filter bson.M, sort bson.D, opts repository.ListOptions) ([]*T, int64, error) {
	start := time.Now()

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		observe(op, start, err)
		return nil, 0, fmt.Errorf("failed to count %s: %w", coll.Name(), err)
	}

	findOpts := options.Find().SetSort(sort)
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		observe(op, start, err)
		return nil, 0, fmt.Errorf("failed to list %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := make([]*T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		observe(op, start, err)
		return nil, 0, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}

	observe(op, start, nil)
	return docs, total, nil
}

func replaceByID(ctx context.Context, coll *mongo.Collection, op string, id interface{}, doc interface{}) error {
	start := time.Now()
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	err = mapError(err)
	if err == nil && res.MatchedCount == 0 {
		err = repository.ErrNotFound
	}
	observe(op, start, err)
	return err
}

func deleteByID(ctx context.Context, coll *mongo.Collection, op string, id interface{}) error {
	start := time.Now()
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	err = mapError(err)
	if err == nil && res.DeletedCount == 0 {
		err = repository.ErrNotFound
	}
	observe(op, start, err)
	return err
}

func insert(ctx context.Context, coll *mongo.Collection, op string, doc interface{}) error {
	start := time.Now()
	_, err := coll.InsertOne(ctx, doc)
	err = mapError(err)
	observe(op, start, err)
	return err
}

func count(ctx context.Context, coll *mongo.Collection, op string, filter bson.M) (int64, error) {
	start := time.Now()
	n, err := coll.CountDocuments(ctx, filter)
	observe(op, start, err)
	return n, err
}
