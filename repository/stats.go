package repository

import (
	"context"
	"time"

	"admin-service/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const dayFormat = "%Y-%m-%d"

// StatsRepository runs the dashboard aggregations. Day buckets are UTC
// calendar days formatted as YYYY-MM-DD.
type StatsRepository struct {
	users *mongo.Collection
	posts *mongo.Collection
}

// DayEngagement is the like and comment total of posts created on one day.
type DayEngagement struct {
	Likes    int64 `bson:"likes"`
	Comments int64 `bson:"comments"`
}

func (r *StatsRepository) CountUsers(ctx context.Context, w Window) (int64, error) {
	start := time.Now()
	n, err := r.users.CountDocuments(ctx, w.filter())
	observe("count", usersCollection, start, err)
	return n, err
}

func (r *StatsRepository) CountPosts(ctx context.Context, w Window, flaggedOnly bool) (int64, error) {
	filter := w.filter()
	if flaggedOnly {
		filter["flagged"] = true
	}
	start := time.Now()
	n, err := r.posts.CountDocuments(ctx, filter)
	observe("count", postsCollection, start, err)
	return n, err
}

func (r *StatsRepository) DailyUserSignups(ctx context.Context, since time.Time) (map[string]int64, error) {
	return r.dailyCounts(ctx, r.users, usersCollection, since)
}

func (r *StatsRepository) DailyPosts(ctx context.Context, since time.Time) (map[string]int64, error) {
	return r.dailyCounts(ctx, r.posts, postsCollection, since)
}

func dayExpr() bson.D {
	return bson.D{{Key: "$dateToString", Value: bson.D{
		{Key: "format", Value: dayFormat},
		{Key: "date", Value: "$createdAt"},
		{Key: "timezone", Value: "UTC"},
	}}}
}

func (r *StatsRepository) dailyCounts(ctx context.Context, coll *mongo.Collection, name string, since time.Time) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: dayExpr()},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	var rows []struct {
		Day   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := runAggregate(ctx, coll, name, "daily_counts", pipeline, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Day] = row.Count
	}
	return out, nil
}

// CategoryCounts groups posts by their raw category value.
func (r *StatsRepository) CategoryCounts(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	var rows []struct {
		Category *string `bson:"_id"`
		Count    int64   `bson:"count"`
	}
	if err := runAggregate(ctx, r.posts, postsCollection, "category_counts", pipeline, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		if row.Category == nil {
			out[""] += row.Count
			continue
		}
		out[*row.Category] += row.Count
	}
	return out, nil
}

func sizeOf(field string) bson.D {
	return bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.A{}}}}}}
}

// EngagementTotals sums likes and comments over every post.
func (r *StatsRepository) EngagementTotals(ctx context.Context) (DayEngagement, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "likes", Value: bson.D{{Key: "$sum", Value: sizeOf("likes")}}},
			{Key: "comments", Value: bson.D{{Key: "$sum", Value: sizeOf("comments")}}},
		}}},
	}
	var rows []DayEngagement
	if err := runAggregate(ctx, r.posts, postsCollection, "engagement_totals", pipeline, &rows); err != nil {
		return DayEngagement{}, err
	}
	if len(rows) == 0 {
		return DayEngagement{}, nil
	}
	return rows[0], nil
}

// DailyEngagement sums likes and comments of posts per creation day.
func (r *StatsRepository) DailyEngagement(ctx context.Context, since time.Time) (map[string]DayEngagement, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: dayExpr()},
			{Key: "likes", Value: bson.D{{Key: "$sum", Value: sizeOf("likes")}}},
			{Key: "comments", Value: bson.D{{Key: "$sum", Value: sizeOf("comments")}}},
		}}},
	}
	var rows []struct {
		Day           string `bson:"_id"`
		DayEngagement `bson:",inline"`
	}
	if err := runAggregate(ctx, r.posts, postsCollection, "daily_engagement", pipeline, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]DayEngagement, len(rows))
	for _, row := range rows {
		out[row.Day] = row.DayEngagement
	}
	return out, nil
}

func (r *StatsRepository) TopHashtags(ctx context.Context, limit int) ([]model.HashtagCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$hashtags"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$hashtags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
	tags := []model.HashtagCount{}
	if err := runAggregate(ctx, r.posts, postsCollection, "top_hashtags", pipeline, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// DailyActiveAuthors counts distinct post authors per day.
func (r *StatsRepository) DailyActiveAuthors(ctx context.Context, since time.Time) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "day", Value: dayExpr()}, {Key: "user", Value: "$user"}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$_id.day"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	var rows []struct {
		Day   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := runAggregate(ctx, r.posts, postsCollection, "active_authors", pipeline, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Day] = row.Count
	}
	return out, nil
}

// HourCounts counts posts by UTC hour of creation.
func (r *StatsRepository) HourCounts(ctx context.Context) (map[int]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$hour", Value: bson.D{
				{Key: "date", Value: "$createdAt"},
				{Key: "timezone", Value: "UTC"},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	var rows []struct {
		Hour  int   `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := runAggregate(ctx, r.posts, postsCollection, "hour_counts", pipeline, &rows); err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(rows))
	for _, row := range rows {
		out[row.Hour] = row.Count
	}
	return out, nil
}

func runAggregate(ctx context.Context, coll *mongo.Collection, name, op string, pipeline mongo.Pipeline, out any) error {
	start := time.Now()
	cursor, err := coll.Aggregate(ctx, pipeline)
	observe(op, name, start, err)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
