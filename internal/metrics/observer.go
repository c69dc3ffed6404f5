package metrics

import "doggygallery/internal/filesystem"

// resolverObserver implements filesystem.Observer using the Prometheus
// metrics declared in this package.
type resolverObserver struct{}

// NewResolverObserver creates an observer that records path resolution
// outcomes into the resolver counters and histogram.
func NewResolverObserver() filesystem.Observer {
	return &resolverObserver{}
}

func (o *resolverObserver) ObserveResolve(outcome string, durationSeconds float64) {
	ResolverRequestsTotal.WithLabelValues(outcome).Inc()
	ResolverDuration.Observe(durationSeconds)
}
