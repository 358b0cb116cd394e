package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_catalog_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Catalog metrics
var (
	CatalogEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_catalog_entries",
			Help: "Number of id-to-path entries per library catalog",
		},
		[]string{"library"},
	)

	CatalogIDsAllocated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_catalog_ids_allocated_total",
			Help: "Total number of stable file ids allocated",
		},
	)

	CatalogPersistsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_persists_total",
			Help: "Total number of catalog persist operations",
		},
		[]string{"status"},
	)
)

// Scan metrics
var (
	ScanRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_catalog_scan_runs_total",
			Help: "Total number of directory scans",
		},
	)

	ScanImagesYielded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_catalog_scan_images_total",
			Help: "Total number of images yielded by directory scans",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_catalog_scan_duration_seconds",
			Help:    "Directory scan duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)
)

// Prefetch metrics
var (
	PrefetchTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_prefetch_tasks_total",
			Help: "Total number of prefetch decode tasks",
		},
		[]string{"status"}, // "completed", "cancelled", "error"
	)

	PrefetchDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_prefetch_deliveries_total",
			Help: "Total number of proxy deliveries to image hosts",
		},
		[]string{"quality"}, // "low", "high"
	)

	PrefetchDecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_catalog_prefetch_decode_duration_seconds",
			Help:    "Proxy decode duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"quality"},
	)

	PrefetchActiveTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_catalog_prefetch_active_tasks",
			Help: "Number of prefetch tasks currently running",
		},
	)

	PrefetchCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_prefetch_cache_total",
			Help: "Proxy cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	ImageHostsRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_catalog_image_hosts_registered",
			Help: "Number of currently registered image hosts",
		},
	)
)

// Import metrics
var (
	ImportJobsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_catalog_import_jobs_total",
			Help: "Total number of import jobs started",
		},
	)

	ImportItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_import_items_total",
			Help: "Total number of imported items by outcome",
		},
		[]string{"status"}, // "success", "error"
	)

	ImportJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_catalog_import_job_duration_seconds",
			Help:    "Import job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	ImportJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_catalog_import_jobs_active",
			Help: "Number of import jobs currently in flight",
		},
	)
)

// File operation metrics
var (
	FileOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_file_ops_total",
			Help: "Total number of library file mutations",
		},
		[]string{"operation", "status"}, // copy/move/rename_dir/remove
	)

	FileOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_catalog_file_op_duration_seconds",
			Help:    "Library file mutation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_fs_retry_attempts_total",
			Help: "Filesystem operation retries after stale NFS handles",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_fs_stale_errors_total",
			Help: "ESTALE errors observed during filesystem operations",
		},
		[]string{"operation"},
	)
)

// Metadata cache metrics
var (
	MetadataCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_metadata_cache_total",
			Help: "Implicit-property cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "stale"
	)

	MetadataQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_catalog_metadata_query_duration_seconds",
			Help:    "Metadata cache query duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)
)

// Library metrics
var (
	LibrariesOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_catalog_libraries_open",
			Help: "Number of libraries currently open",
		},
	)

	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_catalog_watcher_events_total",
			Help: "Filesystem watcher events by kind",
		},
		[]string{"kind"}, // "create", "rename", "remove", "write"
	)
)
