package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"doggygallery/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// Branding shown in the UI and the startup banner.
const (
	AppName     = "DoggyGallery"
	EmojiPrefix = "🐕🖼️✨🔒"
)

const rule = "------------------------------------------------------------"

// BuildInfo is served by /version.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// section starts a titled block of the startup log.
func section(title string, args ...any) {
	logging.Info("")
	logging.Info(rule)
	logging.Info(title, args...)
	logging.Info(rule)
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func printBanner() {
	fmt.Println(rule + `
    ____                          ______      ____
   / __ \____  ____ _____ ___  __/ ____/___ _/ / /__  _______  __
  / / / / __ \/ __ '/ __ '/ / / / / __/ __ '/ / / _ \/ ___/ / / /
 / /_/ / /_/ / /_/ / /_/ / /_/ / /_/ / /_/ / / /  __/ /  / /_/ /
/_____/\____/\__, /\__, /\__, /\____/\__,_/_/_/\___/_/   \__, /
            /____//____//____/                          /____/
` + rule)
	logging.Info("  %s %s %s (%s, built %s)", EmojiPrefix, AppName, Version, Commit, BuildTime)
	logging.Info("  Started: %s", time.Now().Format(time.RFC1123))
}

func logSystemInfo() {
	section("SYSTEM INFORMATION")
	procs, cpus := runtime.GOMAXPROCS(0), runtime.NumCPU()
	logging.Info("  Go %s on %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if procs < cpus {
		logging.Info("  CPUs: %d available, GOMAXPROCS %d (container limit)", cpus, procs)
	} else {
		logging.Info("  CPUs: %d", cpus)
	}
	if host, err := os.Hostname(); err == nil {
		logging.Debug("  Hostname: %s", host)
	}
}

// checkMediaDir requires the media root to be an existing directory. It is
// never created.
func checkMediaDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("media directory does not exist: %s", path)
	case err != nil:
		return fmt.Errorf("failed to stat media directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("media path is not a directory: %s", path)
	}
	return nil
}

// setupOptionalDir creates dir and proves it writable. A false return
// disables the feature that wanted it.
func setupOptionalDir(dir, name string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logging.Warn("  %s disabled: %v", name, err)
		return false
	}
	tmp, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		logging.Warn("  %s disabled, directory not writable: %v", name, err)
		return false
	}
	_ = tmp.Close()
	if err := os.Remove(tmp.Name()); err != nil {
		logging.Debug("failed to remove %s: %v", tmp.Name(), err)
	}
	return true
}

// LogTLSInit logs how the server certificate was obtained.
func LogTLSInit(selfSigned bool, version, httpVersion string) {
	section("TLS INITIALIZATION")
	if selfSigned {
		logging.Warn("  Self-signed certificate generated at startup; browsers will warn")
	} else {
		logging.Info("  [OK] Certificate loaded from disk")
	}
	logging.Info("  Protocol: %s over %s", httpVersion, version)
}

// LogCatalogInit logs media catalog initialization.
func LogCatalogInit(refresh time.Duration, thumbnailWorkers int) {
	section("CATALOG INITIALIZATION")
	mode := "watcher events only"
	if refresh > 0 {
		mode = "every " + refresh.String()
	}
	logging.Info("  Index refresh:     %s", mode)
	logging.Info("  Thumbnail workers: %d", thumbnailWorkers)
}

// LogWatcherFailed reports that the filesystem watcher could not run.
func LogWatcherFailed(err error) {
	logging.Warn("  Filesystem watcher unavailable, falling back to the refresh interval: %v", err)
}

// RouteInfo describes one method of a registered route.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes lists every method of every route on router. Routes without a
// method matcher are reported as "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, m := range methods {
			routes = append(routes, RouteInfo{Method: m, Path: path, Name: route.GetName()})
		}
		return nil
	})
	return routes, err
}

// getRouteGroup names the block a route is listed under: its first path
// segment, or "api/<name>" for API routes. Root patterns have no group.
func getRouteGroup(path string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if strings.HasPrefix(first, "{") {
		return ""
	}
	if first == "api" && rest != "" {
		sub, _, _ := strings.Cut(rest, "/")
		return "api/" + sub
	}
	return first
}

// LogHTTPRoutes logs the access log settings and, at debug level, the
// route table grouped by prefix.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		groups := make(map[string][]RouteInfo)
		for _, r := range routes {
			g := getRouteGroup(r.Path)
			groups[g] = append(groups[g], r)
		}
		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, g := range slices.Sorted(maps.Keys(groups)) {
			label := g
			if label == "" {
				label = "root"
			}
			logging.Debug("  [%s]", label)
			for _, r := range groups[g] {
				logging.Debug("    %-6s %s", r.Method, r.Path)
			}
		}
	}

	logging.Info("  Static file logging:  %s (DOGGYGALLERY_LOG_STATIC_FILES)", enabledString(logStaticFiles))
	logging.Info("  Health check logging: %s (DOGGYGALLERY_LOG_HEALTH_CHECKS)", enabledString(logHealthChecks))
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Host            string
	Port            int
	MetricsPort     int
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening endpoints.
func LogServerStarted(config ServerConfig) {
	host := config.Host
	if host == "" {
		host = "0.0.0.0"
	}

	section("SERVER STARTED in %v", config.StartupDuration.Round(time.Millisecond))
	logging.Info("  Gallery: https://%s:%d (https://localhost:%d)", host, config.Port, config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics: http://%s:%d/metrics", host, config.MetricsPort)
	} else {
		logging.Info("  Metrics: %s", enabledString(false))
	}
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(reason string) {
	section("SHUTDOWN INITIATED (%s)", reason)
}

// ShutdownStep runs one shutdown step and logs its outcome. A failing step
// is logged and does not stop the remaining ones.
func ShutdownStep(name string, stop func() error) {
	logging.Debug("  %s...", name)
	if err := stop(); err != nil {
		logging.Warn("  %s failed: %v", name, err)
		return
	}
	logging.Info("  [OK] %s", name)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...any) {
	logging.Fatal(format, args...)
}
