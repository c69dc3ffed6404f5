// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is loaded by [Load] with viper. Sources, highest precedence
// first: command-line flags registered by [RegisterFlags], environment
// variables prefixed with DOGGYGALLERY_, the config file doggygallery.yaml
// (current directory or /etc/doggygallery, or --config), then defaults. A
// .env file in the working directory is loaded into the environment first.
//
// Keys (environment name in parentheses):
//
//   - media_dir (DOGGYGALLERY_MEDIA_DIR): directory to serve, must exist
//   - username, password: Basic Auth credentials; password may be a bcrypt hash
//   - host, port: listen address (default 0.0.0.0:7833)
//   - cert, key: PEM files; or self_signed_certs_on_the_fly
//     (DOGGYGALLERY_SELF_SIGNED) for a generated development certificate
//   - metrics_enabled, metrics_port: Prometheus listener (default true, 9090)
//   - default_per_page, max_per_page: pagination (default 50, 500)
//   - filter_recursive: whether /api/filter searches subdirectories by default
//   - index_refresh_interval: maximum age of the recursive index (default 5m)
//   - validate_content: magic-byte check before streaming (default true)
//   - max_archive_entry_bytes: largest archive entry served (default 256 MiB)
//   - thumbnail_size, thumbnail_cache_dir, thumbnail_workers
//   - auth_max_failures, auth_window: Basic Auth rate limit (default 10 per 1m)
//   - log_level, log_format, log_static_files, log_health_checks
//
// Struct-level rules are checked with go-playground/validator and
// [Config.Validate] checks the rules that need the filesystem.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// [LogConfig] prints the banner and effective configuration; the other Log*
// functions print one section each so that startup output reads top to
// bottom in the order components come up.
package startup
