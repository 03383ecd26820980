// Package repository holds the MongoDB collections behind the admin API.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admin-service/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection     = "users"
	postsCollection     = "posts"
	appealsCollection   = "appeals"
	snapshotsCollection = "storage_snapshots"
)

// ErrNotFound is returned when a lookup by id or key matches nothing.
var ErrNotFound = errors.New("document not found")

// Store groups the repositories sharing one database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	Users     *UserRepository
	Posts     *PostRepository
	Appeals   *AppealRepository
	Stats     *StatsRepository
	Snapshots *SnapshotRepository
}

// Connect opens the client and pings the primary.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewStore(client, client.Database(dbName)), nil
}

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:    client,
		db:        db,
		Users:     &UserRepository{coll: db.Collection(usersCollection)},
		Posts:     &PostRepository{coll: db.Collection(postsCollection)},
		Appeals:   &AppealRepository{coll: db.Collection(appealsCollection)},
		Stats:     &StatsRepository{users: db.Collection(usersCollection), posts: db.Collection(postsCollection)},
		Snapshots: &SnapshotRepository{coll: db.Collection(snapshotsCollection)},
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the queries rely on. Failures are
// returned together so one bad index does not hide the others.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		postsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "flagged", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "hashtags", Value: 1}}},
		},
		appealsCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		snapshotsCollection: {
			{Keys: bson.D{{Key: "recordedAt", Value: -1}}},
		},
	}

	var errs []error
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			errs = append(errs, fmt.Errorf("create indexes on %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// observe records the outcome of one database operation.
func observe(op, collection string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		status = "error"
	}
	metrics.MongoOperationsTotal.WithLabelValues(op, collection, status).Inc()
	metrics.MongoOperationDuration.WithLabelValues(op, collection).Observe(time.Since(start).Seconds())
}

// Window bounds a createdAt query; zero values leave that side open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) filter() bson.M {
	cond := bson.M{}
	if !w.From.IsZero() {
		cond["$gte"] = w.From
	}
	if !w.To.IsZero() {
		cond["$lt"] = w.To
	}
	if len(cond) == 0 {
		return bson.M{}
	}
	return bson.M{"createdAt": cond}
}
