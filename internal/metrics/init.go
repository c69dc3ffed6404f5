package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"ok", "traversal", "hidden", "not_found", "error"} {
		ResolverRequestsTotal.WithLabelValues(outcome)
	}

	for _, op := range []string{"list", "search", "music"} {
		ScannerOperationsTotal.WithLabelValues(op, "success")
		ScannerOperationsTotal.WithLabelValues(op, "error")
		ScannerOperationDuration.WithLabelValues(op)
	}
	for _, op := range []string{"list", "search"} {
		ScannerItemsReturned.WithLabelValues(op)
	}
	for _, src := range []string{"list", "index"} {
		ScannerFilesScanned.WithLabelValues(src)
	}
	for _, typ := range []string{"create", "write", "remove", "rename", "chmod"} {
		ScannerWatcherEventsTotal.WithLabelValues(typ)
	}

	for _, status := range []string{"success", "error"} {
		IndexRebuildsTotal.WithLabelValues(status)
		ArchiveExtractionsTotal.WithLabelValues(status)
	}

	for _, typ := range []string{"image", "video", "audio"} {
		MediaFilesTotal.WithLabelValues(typ)
		for _, result := range []string{"full", "partial", "not_modified", "rejected"} {
			StreamRequestsTotal.WithLabelValues(typ, result)
		}
	}
	for _, reason := range []string{"extension", "content"} {
		StreamRejectionsTotal.WithLabelValues(reason)
	}

	for _, status := range []string{"success", "error", "unsupported"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "failure", "rate_limited"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}
}
