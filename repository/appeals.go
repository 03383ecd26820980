package repository

import (
	"context"
	"errors"
	"time"

	"admin-service/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AppealRepository struct {
	coll *mongo.Collection
}

func (r *AppealRepository) Create(ctx context.Context, a *model.Appeal) error {
	start := time.Now()
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = model.AppealPending
	}
	_, err := r.coll.InsertOne(ctx, a)
	observe("insert", appealsCollection, start, err)
	return err
}

// FindPending returns the newest pending appeal filed under username.
func (r *AppealRepository) FindPending(ctx context.Context, username string) (*model.Appeal, error) {
	start := time.Now()
	var a model.Appeal
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := r.coll.FindOne(ctx, bson.M{"username": username, "status": model.AppealPending}, opts).Decode(&a)
	observe("find_one", appealsCollection, start, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppealRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Appeal, error) {
	start := time.Now()
	var a model.Appeal
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	observe("find_one", appealsCollection, start, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns one page of appeals, newest first, with the filing user and
// the reviewing admin populated. An empty status matches every appeal.
func (r *AppealRepository) List(ctx context.Context, status string, skip, limit int64) ([]model.AppealView, int64, error) {
	match := bson.M{}
	if status != "" {
		match["status"] = status
	}

	start := time.Now()
	total, err := r.coll.CountDocuments(ctx, match)
	observe("count", appealsCollection, start, err)
	if err != nil {
		return nil, 0, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$skip", Value: skip}},
		{{Key: "$limit", Value: limit}},
		userLookup("userId", "user", bson.D{
			{Key: "username", Value: 1},
			{Key: "email", Value: 1},
			{Key: "profilePicture", Value: 1},
		}),
		{{Key: "$unwind", Value: bson.D{{Key: "path", Value: "$user"}, {Key: "preserveNullAndEmptyArrays", Value: true}}}},
		userLookup("reviewedBy", "reviewer", bson.D{{Key: "username", Value: 1}}),
		{{Key: "$unwind", Value: bson.D{{Key: "path", Value: "$reviewer"}, {Key: "preserveNullAndEmptyArrays", Value: true}}}},
	}

	start = time.Now()
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	observe("list", appealsCollection, start, err)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	appeals := []model.AppealView{}
	if err := cursor.All(ctx, &appeals); err != nil {
		return nil, 0, err
	}
	return appeals, total, nil
}

func userLookup(localField, as string, project bson.D) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: usersCollection},
		{Key: "let", Value: bson.D{{Key: "uid", Value: "$" + localField}}},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
				{Key: "$eq", Value: bson.A{"$_id", "$$uid"}},
			}}}}},
			bson.D{{Key: "$project", Value: project}},
		}},
		{Key: "as", Value: as},
	}}}
}

// CountByStatus returns the number of appeals in each status.
func (r *AppealRepository) CountByStatus(ctx context.Context) (model.AppealCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	start := time.Now()
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	observe("count_by_status", appealsCollection, start, err)
	if err != nil {
		return model.AppealCounts{}, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return model.AppealCounts{}, err
	}

	var counts model.AppealCounts
	for _, row := range rows {
		switch row.Status {
		case model.AppealPending:
			counts.Pending = row.Count
		case model.AppealApproved:
			counts.Approved = row.Count
		case model.AppealRejected:
			counts.Rejected = row.Count
		}
	}
	return counts, nil
}

// Review records the decision and returns the updated appeal.
func (r *AppealRepository) Review(ctx context.Context, id primitive.ObjectID, status, response string, reviewer primitive.ObjectID) (*model.Appeal, error) {
	start := time.Now()
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"status":        status,
		"adminResponse": response,
		"reviewedBy":    reviewer,
		"reviewedAt":    now,
		"updatedAt":     now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a model.Appeal
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&a)
	observe("update", appealsCollection, start, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
