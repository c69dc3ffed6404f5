package startup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so that no stray config or
// .env file is picked up, and sets the minimum required environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	media := filepath.Join(dir, "media")
	require.NoError(t, os.Mkdir(media, 0o755))

	t.Setenv("DOGGYGALLERY_MEDIA_DIR", media)
	t.Setenv("DOGGYGALLERY_USERNAME", "admin")
	t.Setenv("DOGGYGALLERY_PASSWORD", "woof")
	t.Setenv("DOGGYGALLERY_SELF_SIGNED", "true")
	return dir
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "media"), cfg.MediaDir)
	assert.Equal(t, "admin", cfg.Username)
	assert.True(t, cfg.SelfSigned)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 50, cfg.DefaultPerPage)
	assert.Equal(t, 500, cfg.MaxPerPage)
	assert.True(t, cfg.FilterRecursive)
	assert.True(t, cfg.ValidateContent)
	assert.Equal(t, 5*time.Minute, cfg.IndexRefreshInterval)
	assert.Equal(t, int64(256<<20), cfg.MaxArchiveEntryBytes)
	assert.Equal(t, 300, cfg.ThumbnailSize)
	assert.Equal(t, 10, cfg.AuthMaxFailures)
	assert.Equal(t, time.Minute, cfg.AuthWindow)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "0.0.0.0:7833", cfg.Addr())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("DOGGYGALLERY_PORT", "8443")
	t.Setenv("DOGGYGALLERY_INDEX_REFRESH_INTERVAL", "90s")
	t.Setenv("DOGGYGALLERY_FILTER_RECURSIVE", "false")
	t.Setenv("DOGGYGALLERY_LOG_FORMAT", "JSON")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 8443, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.IndexRefreshInterval)
	assert.False(t, cfg.FilterRecursive)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("DOGGYGALLERY_PORT", "8443")
	t.Setenv("DOGGYGALLERY_USERNAME", "env-user")

	cfg, err := Load(newFlags(t, "--port", "9443"))
	require.NoError(t, err)

	assert.Equal(t, 9443, cfg.Port)
	assert.Equal(t, "env-user", cfg.Username, "unset flags must not shadow the environment")
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv("DOGGYGALLERY_USERNAME")

	yaml := "username: file-user\nmax_per_page: 100\ndefault_per_page: 25\nthumbnail_size: 200\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doggygallery.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "file-user", cfg.Username)
	assert.Equal(t, 100, cfg.MaxPerPage)
	assert.Equal(t, 25, cfg.DefaultPerPage)
	assert.Equal(t, 200, cfg.ThumbnailSize)
}

func TestLoadExplicitConfigFileMissing(t *testing.T) {
	isolate(t)

	_, err := Load(newFlags(t, "--config", "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DOGGYGALLERY_THUMBNAIL_SIZE=128\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("DOGGYGALLERY_THUMBNAIL_SIZE") })

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.ThumbnailSize)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing username", map[string]string{"DOGGYGALLERY_USERNAME": ""}},
		{"missing password", map[string]string{"DOGGYGALLERY_PASSWORD": ""}},
		{"port out of range", map[string]string{"DOGGYGALLERY_PORT": "70000"}},
		{"default above max", map[string]string{"DOGGYGALLERY_DEFAULT_PER_PAGE": "600"}},
		{"unknown log level", map[string]string{"DOGGYGALLERY_LOG_LEVEL": "chatty"}},
		{"missing media dir", map[string]string{"DOGGYGALLERY_MEDIA_DIR": "/does/not/exist"}},
		{"metrics port clash", map[string]string{"DOGGYGALLERY_METRICS_PORT": "7833"}},
		{"no certificate", map[string]string{"DOGGYGALLERY_SELF_SIGNED": "false"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "media")
	require.NoError(t, os.Mkdir(media, 0o755))
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))

	base := func() Config {
		return Config{
			MediaDir:    media,
			Cert:        cert,
			Key:         key,
			Port:        7833,
			MetricsPort: 9090,
			AuthWindow:  time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid with cert and key", func(*Config) {}, ""},
		{"self-signed ignores cert", func(c *Config) { c.SelfSigned = true; c.Cert = "missing" }, ""},
		{"missing key", func(c *Config) { c.Key = "" }, "either provide"},
		{"cert does not exist", func(c *Config) { c.Cert = filepath.Join(dir, "nope.pem") }, "certificate file does not exist"},
		{"key does not exist", func(c *Config) { c.Key = filepath.Join(dir, "nope.pem") }, "private key file does not exist"},
		{"media dir missing", func(c *Config) { c.MediaDir = filepath.Join(dir, "nope") }, "does not exist"},
		{"media dir is a file", func(c *Config) { c.MediaDir = file }, "not a directory"},
		{"metrics port clash", func(c *Config) { c.MetricsEnabled = true; c.MetricsPort = 7833 }, "must differ"},
		{"metrics port clash ignored when disabled", func(c *Config) { c.MetricsPort = 7833 }, ""},
		{"negative refresh", func(c *Config) { c.IndexRefreshInterval = -time.Second }, "must not be negative"},
		{"zero auth window", func(c *Config) { c.AuthWindow = 0 }, "auth_window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.True(t, filepath.IsAbs(cfg.MediaDir))
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetupThumbnailCache(t *testing.T) {
	assert.Empty(t, SetupThumbnailCache(""))

	dir := filepath.Join(t.TempDir(), "thumbs")
	assert.Equal(t, dir, SetupThumbnailCache(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.Empty(t, SetupThumbnailCache(filepath.Join(file, "sub")))
}
