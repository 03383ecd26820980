package repository

import (
	"context"
	"errors"
	"time"

	"admin-service/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type PostRepository struct {
	coll *mongo.Collection
}

// authorStages joins each post with its author's public fields as "author".
// Posts whose author was deleted keep author unset.
func authorStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "let", Value: bson.D{{Key: "uid", Value: "$user"}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
					{Key: "$eq", Value: bson.A{"$_id", "$$uid"}},
				}}}}},
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "username", Value: 1},
					{Key: "profilePicture", Value: 1},
				}}},
			}},
			{Key: "as", Value: "author"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$author"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}

func (r *PostRepository) aggregate(ctx context.Context, op string, pipeline mongo.Pipeline) ([]model.PostRecord, error) {
	start := time.Now()
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	observe(op, postsCollection, start, err)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []model.PostRecord{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FindInRange returns posts created in [start, end) with their authors,
// ordered by creation time then id. A non-nil flagged restricts the result
// to flagged or unflagged posts.
func (r *PostRepository) FindInRange(ctx context.Context, start, end time.Time, flagged *bool) ([]model.PostRecord, error) {
	match := bson.M{"createdAt": bson.M{"$gte": start, "$lt": end}}
	if flagged != nil {
		if *flagged {
			match["flagged"] = true
		} else {
			match["flagged"] = bson.M{"$ne": true}
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
	}
	pipeline = append(pipeline, authorStages()...)
	return r.aggregate(ctx, "find_in_range", pipeline)
}

// List returns every post, newest first, optionally only flagged ones.
func (r *PostRepository) List(ctx context.Context, flaggedOnly bool) ([]model.PostRecord, error) {
	match := bson.M{}
	if flaggedOnly {
		match["flagged"] = true
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
	}
	pipeline = append(pipeline, authorStages()...)
	return r.aggregate(ctx, "list", pipeline)
}

func (r *PostRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.PostRecord, error) {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"_id": id}}}}
	pipeline = append(pipeline, authorStages()...)
	posts, err := r.aggregate(ctx, "find_one", pipeline)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

func (r *PostRepository) SetFlagged(ctx context.Context, id primitive.ObjectID, flagged bool) (*model.PostRecord, error) {
	start := time.Now()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"flagged":   flagged,
		"updatedAt": time.Now().UTC(),
	}})
	observe("update", postsCollection, start, err)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *PostRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	start := time.Now()
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	observe("delete", postsCollection, start, err)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByUsers returns post counts keyed by author id.
func (r *PostRepository) CountByUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	counts := make(map[primitive.ObjectID]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": bson.M{"$in": ids}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$user"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	start := time.Now()
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	observe("count_by_user", postsCollection, start, err)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
