package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"doggygallery/internal/logging"
)

// EnvPrefix is prepended to every configuration key read from the
// environment.
const EnvPrefix = "DOGGYGALLERY"

// DefaultPort is "RUFF" on a phone keypad.
const DefaultPort = 7833

// Config holds all application configuration
type Config struct {
	MediaDir string `mapstructure:"media_dir" validate:"required"`
	Username string `mapstructure:"username" validate:"required"`
	// Password is either plain text or a bcrypt hash.
	Password string `mapstructure:"password" validate:"required"`

	Host       string `mapstructure:"host" validate:"required"`
	Port       int    `mapstructure:"port" validate:"min=1,max=65535"`
	Cert       string `mapstructure:"cert"`
	Key        string `mapstructure:"key"`
	SelfSigned bool   `mapstructure:"self_signed_certs_on_the_fly"`

	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	MetricsPort    int  `mapstructure:"metrics_port" validate:"min=1,max=65535"`

	DefaultPerPage       int           `mapstructure:"default_per_page" validate:"min=1,ltefield=MaxPerPage"`
	MaxPerPage           int           `mapstructure:"max_per_page" validate:"min=1,max=10000"`
	FilterRecursive      bool          `mapstructure:"filter_recursive"`
	IndexRefreshInterval time.Duration `mapstructure:"index_refresh_interval"`

	ValidateContent      bool   `mapstructure:"validate_content"`
	MaxArchiveEntryBytes int64  `mapstructure:"max_archive_entry_bytes" validate:"min=1"`
	ThumbnailSize        int    `mapstructure:"thumbnail_size" validate:"min=32,max=2048"`
	ThumbnailCacheDir    string `mapstructure:"thumbnail_cache_dir"`
	ThumbnailWorkers     int    `mapstructure:"thumbnail_workers" validate:"min=0"`

	AuthMaxFailures int           `mapstructure:"auth_max_failures" validate:"min=1"`
	AuthWindow      time.Duration `mapstructure:"auth_window"`

	LogLevel        string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string `mapstructure:"log_format" validate:"oneof=text json"`
	LogStaticFiles  bool   `mapstructure:"log_static_files"`
	LogHealthChecks bool   `mapstructure:"log_health_checks"`
}

// Addr returns the host:port the HTTPS server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddr returns the host:port of the metrics listener.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// envAliases are extra environment names accepted for a key.
var envAliases = map[string][]string{
	"self_signed_certs_on_the_fly": {EnvPrefix + "_SELF_SIGNED"},
}

// RegisterFlags defines the command-line flags understood by Load.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a config file (default: ./doggygallery.yaml)")
	flags.String("media-dir", "", "directory containing media files to serve")
	flags.String("username", "", "username for HTTP Basic Authentication")
	flags.String("password", "", "password for HTTP Basic Authentication (plain or bcrypt hash)")
	flags.String("host", "0.0.0.0", "host to bind to")
	flags.Int("port", DefaultPort, "port to listen on")
	flags.String("cert", "", "path to TLS certificate file")
	flags.String("key", "", "path to TLS private key file")
	flags.Bool("self-signed-certs-on-the-fly", false, "generate a self-signed certificate at startup (development only)")
	flags.Bool("metrics-enabled", true, "serve Prometheus metrics on a separate port")
	flags.Int("metrics-port", 9090, "port for the metrics listener")
	flags.String("thumbnail-cache-dir", "", "directory for cached thumbnails (empty disables the disk cache)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json")
}

// bindFlags binds explicitly set flags so that unset flags never shadow
// environment or file values. A flag's key is its name with dashes replaced
// by underscores.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || !f.Changed {
			return
		}
		_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("media_dir", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", DefaultPort)
	v.SetDefault("cert", "")
	v.SetDefault("key", "")
	v.SetDefault("self_signed_certs_on_the_fly", false)

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_port", 9090)

	v.SetDefault("default_per_page", 50)
	v.SetDefault("max_per_page", 500)
	v.SetDefault("filter_recursive", true)
	v.SetDefault("index_refresh_interval", 5*time.Minute)

	v.SetDefault("validate_content", true)
	v.SetDefault("max_archive_entry_bytes", int64(256<<20))
	v.SetDefault("thumbnail_size", 300)
	v.SetDefault("thumbnail_cache_dir", "")
	v.SetDefault("thumbnail_workers", 0)

	v.SetDefault("auth_max_failures", 10)
	v.SetDefault("auth_window", time.Minute)

	v.SetDefault("log_level", logging.GetLevel().String())
	v.SetDefault("log_format", string(logging.FormatText))
	v.SetDefault("log_static_files", false)
	v.SetDefault("log_health_checks", true)
}

// Load reads configuration and returns a validated Config.
// Order of precedence (highest to lowest): flags > env > config file > defaults.
// A .env file in the working directory is loaded into the environment first.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("error reading .env file: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	configFile := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("doggygallery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/doggygallery")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				logging.Warn("error reading config file: %v", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		_ = v.BindEnv(append([]string{key, strings.ToUpper(EnvPrefix + "_" + key)}, names...)...)
	}

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate performs the checks that need the filesystem or span several
// fields. MediaDir is made absolute on success.
func (c *Config) Validate() error {
	if !c.SelfSigned {
		if c.Cert == "" || c.Key == "" {
			return errors.New("either provide --cert and --key, or use --self-signed-certs-on-the-fly")
		}
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("certificate file does not exist: %s", c.Cert)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("private key file does not exist: %s", c.Key)
		}
	} else if c.Cert != "" || c.Key != "" {
		logging.Warn("--self-signed-certs-on-the-fly is set, ignoring --cert and --key")
	}

	if err := checkMediaDir(c.MediaDir); err != nil {
		return err
	}
	abs, err := filepath.Abs(c.MediaDir)
	if err != nil {
		return fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	c.MediaDir = abs

	if c.MetricsEnabled && c.MetricsPort == c.Port {
		return fmt.Errorf("metrics port %d must differ from the server port", c.MetricsPort)
	}
	if c.IndexRefreshInterval < 0 {
		return errors.New("index_refresh_interval must not be negative")
	}
	if c.AuthWindow <= 0 {
		return errors.New("auth_window must be positive")
	}
	return nil
}

// LogConfig prints the banner, system information and the effective
// configuration. The password is never logged.
func LogConfig(c *Config) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  MEDIA_DIR:              %s", c.MediaDir)
	logging.Info("  HOST:                   %s", c.Host)
	logging.Info("  PORT:                   %d", c.Port)
	if c.SelfSigned {
		logging.Info("  TLS:                    self-signed on the fly")
	} else {
		logging.Info("  TLS:                    cert=%s key=%s", c.Cert, c.Key)
	}
	logging.Info("  USERNAME:               %s", c.Username)
	logging.Info("  METRICS_ENABLED:        %v", c.MetricsEnabled)
	logging.Info("  METRICS_PORT:           %d", c.MetricsPort)
	logging.Info("  PER_PAGE:               %d (max %d)", c.DefaultPerPage, c.MaxPerPage)
	logging.Info("  FILTER_RECURSIVE:       %v", c.FilterRecursive)
	logging.Info("  INDEX_REFRESH_INTERVAL: %s", c.IndexRefreshInterval)
	logging.Info("  VALIDATE_CONTENT:       %v", c.ValidateContent)
	logging.Info("  THUMBNAIL_SIZE:         %d", c.ThumbnailSize)
	logging.Info("  AUTH:                   %d failures per %s", c.AuthMaxFailures, c.AuthWindow)
	logging.Info("  LOG_LEVEL:              %s (%s)", c.LogLevel, c.LogFormat)
	logging.Info("  LOG_STATIC_FILES:       %v", c.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:      %v", c.LogHealthChecks)
}

// SetupThumbnailCache prepares the thumbnail cache directory and returns the
// directory to use, or "" when the disk cache is disabled.
func SetupThumbnailCache(dir string) string {
	if dir == "" {
		logging.Info("  Thumbnail cache: %s (memory only)", enabledString(false))
		return ""
	}
	if !setupOptionalDir(dir, "thumbnail cache") {
		return ""
	}
	logging.Info("  Thumbnail cache: %s (%s)", enabledString(true), dir)
	return dir
}
