package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"admin-service/config"
	"admin-service/logger"
	"admin-service/model"
	"admin-service/repository"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	cldconfig "github.com/cloudinary/cloudinary-go/v2/config"
)

const (
	msgNotConfigured = "Cloudinary not configured"
	msgUsageFailed   = "Failed to fetch Cloudinary stats"
	usageTimeout     = 10 * time.Second
)

// UsageClient reads the account usage report of the media storage provider.
type UsageClient interface {
	Usage(ctx context.Context) (map[string]any, error)
}

// CloudinaryClient reads the account usage report through the Cloudinary
// Admin API.
type CloudinaryClient struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryClient builds an Admin API client. A non-empty cfg.BaseURL
// overrides the API host.
func NewCloudinaryClient(cfg config.CloudinaryConfig) (*CloudinaryClient, error) {
	conf, err := cldconfig.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	if cfg.BaseURL != "" {
		conf.API.UploadPrefix = strings.TrimRight(cfg.BaseURL, "/")
	}
	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &CloudinaryClient{cld: cld}, nil
}

// Usage returns the usage report as a generic map so provider fields the
// typed result does not know about still reach the dashboard.
func (c *CloudinaryClient) Usage(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, usageTimeout)
	defer cancel()

	res, err := c.cld.Admin.Usage(ctx, admin.UsageParams{})
	if err != nil {
		return nil, fmt.Errorf("cloudinary usage: %w", err)
	}

	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode usage: %w", err)
	}
	var usage map[string]any
	if err := json.Unmarshal(data, &usage); err != nil {
		return nil, fmt.Errorf("decode usage: %w", err)
	}

	// API errors come back in the result body, not as err.
	if apiErr, ok := usage["error"].(map[string]any); ok {
		if msg, _ := apiErr["message"].(string); msg != "" {
			return nil, fmt.Errorf("cloudinary usage: %s", msg)
		}
	}
	delete(usage, "error")
	delete(usage, "Response")
	return usage, nil
}

// StorageService reports media storage usage and keeps a daily history of it.
type StorageService struct {
	client    UsageClient
	snapshots SnapshotStore
	log       logger.Logger
	now       func() time.Time
}

// NewStorageService returns a service that reports zero usage when client is nil.
func NewStorageService(client UsageClient, snapshots SnapshotStore, log logger.Logger) *StorageService {
	return &StorageService{client: client, snapshots: snapshots, log: log, now: time.Now}
}

// Configured reports whether a usage client is available.
func (s *StorageService) Configured() bool {
	return s.client != nil
}

// Report returns the provider usage report with a normalized
// usage.storage block and a storage_history series. Provider failures are
// reported in the payload, not as errors.
func (s *StorageService) Report(ctx context.Context) map[string]any {
	if s.client == nil {
		return map[string]any{
			"usage":   storageBlock(0, model.DefaultStorageLimit),
			"message": msgNotConfigured,
		}
	}

	usage, err := s.client.Usage(ctx)
	if err != nil {
		s.log.Error("Failed to fetch storage usage", logger.Error(err))
		return map[string]any{
			"usage": storageBlock(0, model.DefaultStorageLimit),
			"error": msgUsageFailed,
		}
	}

	used, limit := StorageUsage(usage)
	if _, ok := usage["usage"]; !ok {
		usage["usage"] = storageBlock(used, limit)
	}

	history, err := s.History(ctx, used)
	if err != nil {
		s.log.Warn("Failed to load storage history", logger.Error(err))
		history = []model.StorageHistoryPoint{}
	}
	usage["storage_history"] = history
	return usage
}

// RecordSnapshot stores the current usage. It is a no-op when the provider
// is not configured.
func (s *StorageService) RecordSnapshot(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	usage, err := s.client.Usage(ctx)
	if err != nil {
		return fmt.Errorf("fetch usage: %w", err)
	}
	used, limit := StorageUsage(usage)
	snap := model.StorageSnapshot{Used: used, Limit: limit, RecordedAt: s.now().UTC()}
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	s.log.Info("Recorded storage snapshot", logger.Int64("used", used), logger.Int64("limit", limit))
	return nil
}

// History builds one point per day for the last week, oldest first. Each
// day takes the latest snapshot recorded on or before it and today takes
// current.
func (s *StorageService) History(ctx context.Context, current int64) ([]model.StorageHistoryPoint, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(historyDays - 1))

	snaps, err := s.snapshots.Since(ctx, start)
	if err != nil {
		return nil, err
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].RecordedAt.Before(snaps[j].RecordedAt) })

	// Days before the first snapshot in the window keep the last reading
	// taken before it.
	var used int64
	prev, err := s.snapshots.LatestBefore(ctx, start)
	switch {
	case err == nil:
		used = prev.Used
	case !repository.IsNotFound(err):
		return nil, err
	}

	points := make([]model.StorageHistoryPoint, historyDays)
	next := 0
	for i := range points {
		day := start.AddDate(0, 0, i)
		end := day.Add(24 * time.Hour)
		for next < len(snaps) && snaps[next].RecordedAt.Before(end) {
			used = snaps[next].Used
			next++
		}
		if i == historyDays-1 {
			used = current
		}
		points[i] = model.StorageHistoryPoint{Date: day.Format(time.DateOnly), Used: used}
	}
	return points, nil
}

// StorageUsage extracts used bytes and the plan limit from a usage report.
// The Admin API reports storage.usage; a usage.storage block is also
// accepted.
func StorageUsage(report map[string]any) (used, limit int64) {
	limit = model.DefaultStorageLimit
	if storage, ok := report["storage"].(map[string]any); ok {
		used = toInt64(storage["usage"])
		if l := toInt64(storage["limit"]); l > 0 {
			limit = l
		}
		return used, limit
	}
	if u, ok := report["usage"].(map[string]any); ok {
		if storage, ok := u["storage"].(map[string]any); ok {
			used = toInt64(storage["used"])
			if l := toInt64(storage["limit"]); l > 0 {
				limit = l
			}
		}
	}
	return used, limit
}

func storageBlock(used, limit int64) map[string]any {
	return map[string]any{
		"storage": map[string]any{"used": used, "limit": limit},
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}
