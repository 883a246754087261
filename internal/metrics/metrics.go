package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Catalog (sqlite) metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_db_queries_total",
			Help: "Total number of catalog queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videopipe_db_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videopipe_db_transaction_duration_seconds",
			Help:    "Catalog batch transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"result"}, // "commit" or "rollback"
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_db_connections_open",
			Help: "Number of open catalog connections",
		},
	)
)

// Discovery scanner metrics
var (
	ScannerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_scanner_operations_total",
			Help: "Total number of scanner operations",
		},
		[]string{"operation", "status"},
	)

	ScannerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videopipe_scanner_operation_duration_seconds",
			Help:    "Scanner operation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	ScannerFilesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_scanner_files_found_total",
			Help: "Total number of video files found by the scanner",
		},
		[]string{"root"},
	)

	ScannerPollChecksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videopipe_scanner_poll_checks_total",
			Help: "Total number of lightweight change-detection polls",
		},
	)

	ScannerPollChangesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videopipe_scanner_poll_changes_detected_total",
			Help: "Total number of polls that detected a filesystem change",
		},
	)

	ScannerPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_scanner_poll_duration_seconds",
			Help:    "Duration of a lightweight change-detection poll",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)
)

// Per-video processor metrics
var (
	VideoProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_video_processed_total",
			Help: "Total number of videos processed by the per-video processor",
		},
		[]string{"status"}, // "completed", "partial", "error"
	)

	VideoProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_video_process_duration_seconds",
			Help:    "Duration of the per-video stat and metadata load, excluding cover thumbnail generation",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	VideoMetadataFieldMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_video_metadata_field_missing_total",
			Help: "Total number of metadata loads where a single field could not be determined",
		},
		[]string{"field"}, // "duration", "resolution", "frame_rate", "codec"
	)

	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_thumbnail_generations_total",
			Help: "Total number of per-video cover thumbnail generations",
		},
		[]string{"status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_thumbnail_generation_duration_seconds",
			Help:    "Cover thumbnail generation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Frame extraction metrics
var (
	FrameExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_frame_extractions_total",
			Help: "Total number of individual frame extraction requests",
		},
		[]string{"status"}, // "ok", "failed", "cancelled"
	)

	FrameExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_frame_extraction_duration_seconds",
			Help:    "Duration of a single frame extraction",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
	)

	FrameExtractorInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_frame_extractor_inflight",
			Help: "Number of frame extraction requests currently in flight",
		},
	)
)

// Mosaic engine metrics
var (
	MosaicGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_mosaic_generations_total",
			Help: "Total number of mosaic generations",
		},
		[]string{"status"}, // "completed", "failed", "cancelled", "file_exists"
	)

	MosaicGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_mosaic_generation_duration_seconds",
			Help:    "End-to-end mosaic generation duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	MosaicTileCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_mosaic_tile_count",
			Help:    "Number of tiles placed in a generated mosaic",
			Buckets: []float64{4, 10, 20, 40, 60, 80, 100},
		},
	)

	MosaicInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_mosaic_generations_inflight",
			Help: "Number of mosaic generations currently in flight",
		},
	)
)

// Preview engine metrics
var (
	PreviewGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_preview_generations_total",
			Help: "Total number of preview generations",
		},
		[]string{"status"},
	)

	PreviewGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_preview_generation_duration_seconds",
			Help:    "End-to-end preview generation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	PreviewSegmentCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_preview_segment_count",
			Help:    "Number of segments spliced into a generated preview",
			Buckets: []float64{4, 8, 12, 16, 24, 32},
		},
	)

	PreviewInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_preview_generations_inflight",
			Help: "Number of preview generations currently in flight",
		},
	)
)

// Smart-folder evaluator metrics
var (
	SmartFolderEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_smartfolder_evaluations_total",
			Help: "Total number of smart-folder criteria evaluations",
		},
		[]string{"status"},
	)

	SmartFolderEvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_smartfolder_evaluation_duration_seconds",
			Help:    "Duration of a smart-folder criteria evaluation against the catalog",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	SmartFolderMatchCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_smartfolder_match_count",
			Help:    "Number of videos matched by a smart-folder evaluation",
			Buckets: []float64{0, 1, 5, 20, 100, 500, 2000},
		},
	)
)

// Batch coordinator metrics
var (
	CoordinatorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_coordinator_runs_total",
			Help: "Total number of discovery runs started by the batch coordinator",
		},
		[]string{"kind"}, // "folder", "smart_folder"
	)

	CoordinatorRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videopipe_coordinator_run_duration_seconds",
			Help:    "End-to-end duration of a discovery run",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800},
		},
	)

	CoordinatorVideosProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_coordinator_videos_processed_total",
			Help: "Total number of videos processed across all discovery runs",
		},
		[]string{"outcome"}, // "added", "updated", "removed", "error"
	)

	CoordinatorInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_coordinator_inflight_tasks",
			Help: "Number of per-video tasks currently admitted by the coordinator's concurrency gate",
		},
	)

	CoordinatorCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videopipe_coordinator_cancellations_total",
			Help: "Total number of discovery runs that ended via cancellation",
		},
	)
)

// Filesystem resilience metrics (internal/filesystem)
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videopipe_filesystem_operation_duration_seconds",
			Help:    "Duration of a filesystem operation, labeled by resolved volume",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_filesystem_retry_attempts_total",
			Help: "Total number of NFS stale-file-handle retry attempts",
		},
		[]string{"retry_op", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"retry_op", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that exhausted all retries",
		},
		[]string{"retry_op", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videopipe_filesystem_stale_errors_total",
			Help: "Total number of NFS ESTALE errors observed",
		},
		[]string{"retry_op", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videopipe_filesystem_retry_duration_seconds",
			Help:    "Total duration of a filesystem operation including any retries",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"retry_op", "volume"},
	)
)

// Catalog-wide gauges, refreshed periodically by the Collector
var (
	CatalogVideosTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_catalog_videos_total",
			Help: "Current total number of videos in the catalog",
		},
	)

	CatalogFoldersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_catalog_folders_total",
			Help: "Current total number of library folders in the catalog",
		},
	)

	CatalogSmartFoldersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_catalog_smart_folders_total",
			Help: "Current total number of smart folders in the catalog",
		},
	)

	CatalogPlaylistsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_catalog_playlists_total",
			Help: "Current total number of playlist library items in the catalog",
		},
	)

	CatalogMosaicsGeneratedTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_catalog_mosaics_generated_total",
			Help: "Current total number of videos with a generated mosaic",
		},
	)

	CatalogPreviewsGeneratedTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_catalog_previews_generated_total",
			Help: "Current total number of videos with a generated preview",
		},
	)
)

// Memory monitor metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_memory_usage_ratio",
			Help: "Current memory usage as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videopipe_memory_paused",
			Help: "Whether processing is currently paused due to memory pressure (1) or not (0)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videopipe_memory_gc_pauses_total",
			Help: "Total number of forced garbage collections triggered by the memory monitor",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "videopipe_app_info",
			Help: "Build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric.
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
