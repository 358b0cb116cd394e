package metrics

// InitializeMetrics pre-populates expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "error"} {
		CatalogPersistsTotal.WithLabelValues(status)
		ImportItemsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"completed", "cancelled", "error"} {
		PrefetchTasksTotal.WithLabelValues(status)
	}

	for _, quality := range []string{"low", "high"} {
		PrefetchDeliveriesTotal.WithLabelValues(quality)
		PrefetchDecodeDuration.WithLabelValues(quality)
	}

	for _, result := range []string{"hit", "miss"} {
		PrefetchCacheHits.WithLabelValues(result)
	}

	for _, result := range []string{"hit", "miss", "stale"} {
		MetadataCacheTotal.WithLabelValues(result)
	}

	for _, op := range []string{"get", "put", "invalidate"} {
		MetadataQueryDuration.WithLabelValues(op)
	}

	fileOps := []string{"copy", "move", "rename_dir", "remove"}
	for _, op := range fileOps {
		FileOpDuration.WithLabelValues(op)
		for _, status := range []string{"success", "error"} {
			FileOpsTotal.WithLabelValues(op, status)
		}
	}

	for _, op := range []string{"stat", "open", "copy"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}

	for _, kind := range []string{"create", "rename", "remove", "write"} {
		WatcherEventsTotal.WithLabelValues(kind)
	}
}
