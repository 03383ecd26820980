package model

import "time"

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type EngagementDay struct {
	Date     string `json:"date"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
}

type HashtagCount struct {
	Tag   string `bson:"_id" json:"tag"`
	Count int64  `bson:"count" json:"count"`
}

type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

type UserStats struct {
	Total    int64      `json:"total"`
	LastWeek int64      `json:"lastWeek"`
	Growth   int64      `json:"growth"`
	History  []DayCount `json:"history"`
}

type PostStats struct {
	Total      int64            `json:"total"`
	LastWeek   int64            `json:"lastWeek"`
	Growth     int64            `json:"growth"`
	Flagged    int64            `json:"flagged"`
	History    []DayCount       `json:"history"`
	ByCategory map[string]int64 `json:"byCategory"`
}

type Engagement struct {
	Likes    int64           `json:"likes"`
	Comments int64           `json:"comments"`
	Shares   int64           `json:"shares"`
	History  []EngagementDay `json:"history"`
}

type StorageStats struct {
	Used       int64   `json:"used"`
	Limit      int64   `json:"limit"`
	Percentage float64 `json:"percentage"`
}

// DefaultStorageLimit is reported when the real plan limit is unknown.
const DefaultStorageLimit int64 = 1_000_000_000

// DashboardStats is the payload of the admin dashboard
type DashboardStats struct {
	Users       UserStats      `json:"users"`
	Posts       PostStats      `json:"posts"`
	Engagement  Engagement     `json:"engagement"`
	Storage     StorageStats   `json:"storage"`
	TopHashtags []HashtagCount `json:"topHashtags"`
	ActiveUsers []DayCount     `json:"activeUsers"`
	PostsByTime []HourCount    `json:"postsByTime"`
}

// StorageSnapshot records storage usage at a point in time
type StorageSnapshot struct {
	Used       int64     `bson:"used" json:"used"`
	Limit      int64     `bson:"limit" json:"limit"`
	RecordedAt time.Time `bson:"recordedAt" json:"recordedAt"`
}

type StorageHistoryPoint struct {
	Date string `json:"date"`
	Used int64  `json:"used"`
}
