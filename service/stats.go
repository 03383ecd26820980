package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"admin-service/cache"
	"admin-service/logger"
	"admin-service/metrics"
	"admin-service/model"
	"admin-service/repository"

	"golang.org/x/sync/errgroup"
)

const (
	statsCacheKey  = "dashboard"
	historyDays    = 7
	topHashtagSize = 5
	week           = 7 * 24 * time.Hour
)

// StatsService builds the admin dashboard.
type StatsService struct {
	stats StatsStore
	cache cache.Cache
	ttl   time.Duration
	log   logger.Logger
	now   func() time.Time
}

func NewStatsService(stats StatsStore, c cache.Cache, ttl time.Duration, log logger.Logger) *StatsService {
	if c == nil {
		c = cache.Nop{}
	}
	return &StatsService{stats: stats, cache: c, ttl: ttl, log: log, now: time.Now}
}

// Dashboard returns the cached dashboard or computes a fresh one. Cache
// failures are logged and never fail the request.
func (s *StatsService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	var cached model.DashboardStats
	ok, err := s.cache.Get(ctx, statsCacheKey, &cached)
	if err != nil {
		s.log.Warn("Failed to read stats cache", logger.Error(err))
	}
	if ok {
		metrics.StatsCacheTotal.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	metrics.StatsCacheTotal.WithLabelValues("miss").Inc()

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.ttl > 0 {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.ttl); err != nil {
			s.log.Warn("Failed to write stats cache", logger.Error(err))
		}
	}
	return stats, nil
}

func (s *StatsService) compute(ctx context.Context) (*model.DashboardStats, error) {
	now := s.now().UTC()
	lastWeek := repository.Window{From: now.Add(-week)}
	prevWeek := repository.Window{From: now.Add(-2 * week), To: now.Add(-week)}
	today := now.Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(historyDays - 1))

	var (
		totalUsers, lastWeekUsers, prevWeekUsers int64
		totalPosts, lastWeekPosts, prevWeekPosts int64
		flagged                                  int64
		signups, dailyPosts, authors             map[string]int64
		categories                               map[string]int64
		totals                                   repository.DayEngagement
		dailyEngagement                          map[string]repository.DayEngagement
		hashtags                                 []model.HashtagCount
		hours                                    map[int]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, name string, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}
	count(&totalUsers, "count users", func(ctx context.Context) (int64, error) {
		return s.stats.CountUsers(ctx, repository.Window{})
	})
	count(&lastWeekUsers, "count recent users", func(ctx context.Context) (int64, error) {
		return s.stats.CountUsers(ctx, lastWeek)
	})
	count(&prevWeekUsers, "count previous users", func(ctx context.Context) (int64, error) {
		return s.stats.CountUsers(ctx, prevWeek)
	})
	count(&totalPosts, "count posts", func(ctx context.Context) (int64, error) {
		return s.stats.CountPosts(ctx, repository.Window{}, false)
	})
	count(&lastWeekPosts, "count recent posts", func(ctx context.Context) (int64, error) {
		return s.stats.CountPosts(ctx, lastWeek, false)
	})
	count(&prevWeekPosts, "count previous posts", func(ctx context.Context) (int64, error) {
		return s.stats.CountPosts(ctx, prevWeek, false)
	})
	count(&flagged, "count flagged posts", func(ctx context.Context) (int64, error) {
		return s.stats.CountPosts(ctx, repository.Window{}, true)
	})

	g.Go(func() (err error) {
		signups, err = s.stats.DailyUserSignups(gctx, since)
		return wrapStat("daily signups", err)
	})
	g.Go(func() (err error) {
		dailyPosts, err = s.stats.DailyPosts(gctx, since)
		return wrapStat("daily posts", err)
	})
	g.Go(func() (err error) {
		authors, err = s.stats.DailyActiveAuthors(gctx, since)
		return wrapStat("active authors", err)
	})
	g.Go(func() (err error) {
		categories, err = s.stats.CategoryCounts(gctx)
		return wrapStat("categories", err)
	})
	g.Go(func() (err error) {
		totals, err = s.stats.EngagementTotals(gctx)
		return wrapStat("engagement", err)
	})
	g.Go(func() (err error) {
		dailyEngagement, err = s.stats.DailyEngagement(gctx, since)
		return wrapStat("daily engagement", err)
	})
	g.Go(func() (err error) {
		hashtags, err = s.stats.TopHashtags(gctx, topHashtagSize)
		return wrapStat("hashtags", err)
	})
	g.Go(func() (err error) {
		hours, err = s.stats.HourCounts(gctx)
		return wrapStat("hours", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	days := historyDates(today)
	if hashtags == nil {
		hashtags = []model.HashtagCount{}
	}

	return &model.DashboardStats{
		Users: model.UserStats{
			Total:    totalUsers,
			LastWeek: lastWeekUsers,
			Growth:   growth(lastWeekUsers, prevWeekUsers),
			History:  dayCounts(days, signups),
		},
		Posts: model.PostStats{
			Total:      totalPosts,
			LastWeek:   lastWeekPosts,
			Growth:     growth(lastWeekPosts, prevWeekPosts),
			Flagged:    flagged,
			History:    dayCounts(days, dailyPosts),
			ByCategory: bucketCategories(categories),
		},
		Engagement: model.Engagement{
			Likes:    totals.Likes,
			Comments: totals.Comments,
			Shares:   shares(totals.Likes),
			History:  engagementHistory(days, dailyEngagement),
		},
		Storage: model.StorageStats{
			Limit: model.DefaultStorageLimit,
		},
		TopHashtags: hashtags,
		ActiveUsers: dayCounts(days, authors),
		PostsByTime: hourCounts(hours),
	}, nil
}

func wrapStat(name string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// growth is the rounded percentage change from prev to cur, or 0 when
// there is nothing to compare against.
func growth(cur, prev int64) int64 {
	if prev <= 0 {
		return 0
	}
	pct := float64(cur-prev) / float64(prev) * 100
	return int64(math.Floor(pct + 0.5))
}

// shares estimates shares as a fifth of likes.
func shares(likes int64) int64 {
	return likes / 5
}

// historyDates returns the last historyDays UTC dates, oldest first.
func historyDates(today time.Time) []string {
	days := make([]string, historyDays)
	for i := range days {
		days[i] = today.AddDate(0, 0, i-(historyDays-1)).Format(time.DateOnly)
	}
	return days
}

func dayCounts(days []string, counts map[string]int64) []model.DayCount {
	out := make([]model.DayCount, len(days))
	for i, d := range days {
		out[i] = model.DayCount{Date: d, Count: counts[d]}
	}
	return out
}

func engagementHistory(days []string, daily map[string]repository.DayEngagement) []model.EngagementDay {
	out := make([]model.EngagementDay, len(days))
	for i, d := range days {
		e := daily[d]
		out[i] = model.EngagementDay{Date: d, Likes: e.Likes, Comments: e.Comments, Shares: shares(e.Likes)}
	}
	return out
}

// bucketCategories folds raw category counts into the dashboard buckets.
// Posts without a category are left out.
func bucketCategories(raw map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(model.Categories))
	for _, c := range model.Categories {
		out[c] = 0
	}
	for c, n := range raw {
		if c == "" {
			continue
		}
		if _, ok := out[c]; ok {
			out[c] += n
		} else {
			out["other"] += n
		}
	}
	return out
}

func hourCounts(hours map[int]int64) []model.HourCount {
	out := make([]model.HourCount, 24)
	for h := range out {
		out[h] = model.HourCount{Hour: h, Count: hours[h]}
	}
	return out
}
