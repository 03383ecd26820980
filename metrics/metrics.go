package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code", "service"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "service"},
	)

	// Export pipeline metrics
	ExportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_runs_total",
			Help: "Total number of export archives started, by outcome",
		},
		[]string{"kind", "status"},
	)

	ExportPostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_posts_total",
			Help: "Posts handled by the export pipeline, by outcome",
		},
		[]string{"kind", "outcome"},
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "export_duration_seconds",
			Help:    "Time spent streaming an export archive",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	AssetFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_fetch_duration_seconds",
			Help:    "Image download duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	MemeCompositeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_composite_total",
			Help: "Meme compositions, by mode and status",
		},
		[]string{"mode", "status"},
	)

	// Moderation metrics
	ModerationActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_actions_total",
			Help: "Total number of moderation actions taken by admins",
		},
		[]string{"target", "action"},
	)

	AppealsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appeals_total",
			Help: "Appeals submitted and reviewed, by status",
		},
		[]string{"status"},
	)

	// Stats cache metrics
	StatsCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_cache_requests_total",
			Help: "Dashboard stats cache lookups",
		},
		[]string{"result"},
	)

	// Database metrics
	MongoOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongo_operations_total",
			Help: "Total number of MongoDB operations",
		},
		[]string{"operation", "collection", "status"},
	)

	MongoOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mongo_operation_duration_seconds",
			Help:    "MongoDB operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	// Application health metrics
	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "application_info",
			Help: "Application information",
		},
		[]string{"service", "version", "environment"},
	)
)

// Initialize metrics with default values
func Init(serviceName, version, environment string) {
	ApplicationInfo.WithLabelValues(serviceName, version, environment).Set(1)
}
