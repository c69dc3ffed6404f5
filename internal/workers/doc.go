/*
Package workers sizes worker pools for containerized deployments.

runtime.NumCPU reports the host's CPUs even under a cgroup CPU limit, while
GOMAXPROCS follows the limit. Worker counts are therefore derived from
GOMAXPROCS:

	// Thumbnail decodes, at most 8 at a time
	n := workers.ForCPU(8, cfg.ThumbnailWorkers)

The override argument carries the thumbnail_workers setting. Zero means
automatic sizing.
*/
package workers
