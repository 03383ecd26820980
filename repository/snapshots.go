package repository

import (
	"context"
	"errors"
	"time"

	"admin-service/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SnapshotRepository stores periodic storage usage readings.
type SnapshotRepository struct {
	coll *mongo.Collection
}

func (r *SnapshotRepository) Insert(ctx context.Context, s model.StorageSnapshot) error {
	start := time.Now()
	_, err := r.coll.InsertOne(ctx, s)
	observe("insert", snapshotsCollection, start, err)
	return err
}

// Since returns snapshots recorded at or after t, oldest first.
func (r *SnapshotRepository) Since(ctx context.Context, t time.Time) ([]model.StorageSnapshot, error) {
	start := time.Now()
	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"recordedAt": bson.M{"$gte": t}}, opts)
	observe("find", snapshotsCollection, start, err)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	snapshots := []model.StorageSnapshot{}
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// LatestBefore returns the newest snapshot recorded strictly before t.
func (r *SnapshotRepository) LatestBefore(ctx context.Context, t time.Time) (*model.StorageSnapshot, error) {
	start := time.Now()
	var s model.StorageSnapshot
	opts := options.FindOne().SetSort(bson.D{{Key: "recordedAt", Value: -1}})
	err := r.coll.FindOne(ctx, bson.M{"recordedAt": bson.M{"$lt": t}}, opts).Decode(&s)
	observe("find_one", snapshotsCollection, start, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
