// Package memory configures the Go runtime memory limit for containerized
// deployments and applies backpressure to image decoding.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main, before significant allocations:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ... rest of application
//	}
//
// # Environment Variables
//
//   - GOMEMLIMIT: Standard Go environment variable. If set, takes precedence
//     over all other configuration.
//
//   - MEMORY_LIMIT: Container memory limit in bytes, typically set via the
//     Kubernetes Downward API:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
//   - MEMORY_RATIO: Fraction of MEMORY_LIMIT given to the Go heap, between
//     0.0 and 1.0. Default is 0.85.
//
// GOMEMLIMIT is a soft limit: the garbage collector works harder as the heap
// approaches it, but nothing stops the heap from exceeding it.
//
// # Backpressure
//
// Thumbnail generation decodes full-size images and is the only workload in
// the gallery whose heap use scales with input. A [Monitor] samples the heap
// and pauses new decodes while usage is above the pause ratio:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if err := monitor.Wait(ctx); err != nil {
//	    return err
//	}
//	// ... decode
package memory
