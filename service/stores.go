// Package service implements the admin backend operations on top of the
// repositories.
package service

import (
	"context"
	"time"

	"admin-service/model"
	"admin-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)
	List(ctx context.Context, skip, limit int64) ([]model.User, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.User, error)
	SetStatusByUsername(ctx context.Context, username string, set bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type PostStore interface {
	List(ctx context.Context, flaggedOnly bool) ([]model.PostRecord, error)
	SetFlagged(ctx context.Context, id primitive.ObjectID, flagged bool) (*model.PostRecord, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int64, error)
}

type AppealStore interface {
	Create(ctx context.Context, a *model.Appeal) error
	FindPending(ctx context.Context, username string) (*model.Appeal, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Appeal, error)
	List(ctx context.Context, status string, skip, limit int64) ([]model.AppealView, int64, error)
	CountByStatus(ctx context.Context) (model.AppealCounts, error)
	Review(ctx context.Context, id primitive.ObjectID, status, response string, reviewer primitive.ObjectID) (*model.Appeal, error)
}

type StatsStore interface {
	CountUsers(ctx context.Context, w repository.Window) (int64, error)
	CountPosts(ctx context.Context, w repository.Window, flaggedOnly bool) (int64, error)
	DailyUserSignups(ctx context.Context, since time.Time) (map[string]int64, error)
	DailyPosts(ctx context.Context, since time.Time) (map[string]int64, error)
	CategoryCounts(ctx context.Context) (map[string]int64, error)
	EngagementTotals(ctx context.Context) (repository.DayEngagement, error)
	DailyEngagement(ctx context.Context, since time.Time) (map[string]repository.DayEngagement, error)
	TopHashtags(ctx context.Context, limit int) ([]model.HashtagCount, error)
	DailyActiveAuthors(ctx context.Context, since time.Time) (map[string]int64, error)
	HourCounts(ctx context.Context) (map[int]int64, error)
}

type SnapshotStore interface {
	Insert(ctx context.Context, s model.StorageSnapshot) error
	Since(ctx context.Context, t time.Time) ([]model.StorageSnapshot, error)
	LatestBefore(ctx context.Context, t time.Time) (*model.StorageSnapshot, error)
}

// Page describes a paginated list response.
type Page struct {
	Count       int   `json:"count"`
	Total       int64 `json:"total"`
	Pages       int64 `json:"pages"`
	CurrentPage int   `json:"currentPage"`
}

func newPage(count int, total int64, page, limit int) Page {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Page{Count: count, Total: total, Pages: pages, CurrentPage: page}
}

// normalizePage applies defaults to non-positive page and limit values.
func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}
