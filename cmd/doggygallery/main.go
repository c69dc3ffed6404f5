package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"doggygallery/internal/auth"
	"doggygallery/internal/filesystem"
	"doggygallery/internal/handlers"
	"doggygallery/internal/logging"
	"doggygallery/internal/media"
	"doggygallery/internal/memory"
	"doggygallery/internal/metrics"
	"doggygallery/internal/startup"
	"doggygallery/internal/streaming"
	"doggygallery/internal/tlsconfig"
	"doggygallery/internal/workers"
	"doggygallery/web"
)

var rootCmd = &cobra.Command{
	Use:     "doggygallery",
	Version: startup.Version,
	Short:   "Self-hosted HTTPS media gallery",
	Long: `DoggyGallery serves a directory of images, videos and music over HTTPS
with Basic Auth, a lightbox viewer and an audio player.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), cmd)
	},
}

func init() {
	startup.RegisterFlags(rootCmd.Flags())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cobra.Command) error {
	startTime := time.Now()

	// Set GOMEMLIMIT before anything allocates heavily
	memory.ConfigureFromEnv()

	config, err := startup.Load(cmd.Flags())
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return err
	}
	level, _ := logging.ParseLevel(config.LogLevel)
	logging.Setup(os.Stderr, logging.Format(config.LogFormat), level)
	startup.LogConfig(config)
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	// Media root
	filesystem.SetObserver(metrics.NewResolverObserver())
	resolver, err := filesystem.NewResolver(config.MediaDir)
	if err != nil {
		startup.LogFatal("Failed to open media directory: %v", err)
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logging.Debug("failed to close media root: %v", err)
		}
	}()

	// Catalog
	thumbWorkers := workers.ForCPU(8, config.ThumbnailWorkers)
	startup.LogCatalogInit(config.IndexRefreshInterval, thumbWorkers)
	scanner := media.NewScanner(resolver, media.Config{
		DefaultPerPage: config.DefaultPerPage,
		MaxPerPage:     config.MaxPerPage,
		IndexMaxAge:    config.IndexRefreshInterval,
	})

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := scanner.Index().Watch(watchCtx); err != nil {
			startup.LogWatcherFailed(err)
		}
	}()

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	thumbGen := media.NewThumbnailGenerator(resolver, startup.SetupThumbnailCache(config.ThumbnailCacheDir), config.ThumbnailSize, thumbWorkers)
	thumbGen.SetGate(monitor)

	delivery := streaming.NewDelivery(resolver, streaming.Config{
		ValidateContent: config.ValidateContent,
		Writer:          streaming.DefaultTimeoutWriterConfig(),
	})

	pages, err := web.NewPages()
	if err != nil {
		startup.LogFatal("Failed to parse templates: %v", err)
	}

	// HTTP
	h := handlers.New(config, resolver, scanner, thumbGen, delivery, pages)
	router := h.Router(web.Static())
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	limiter := auth.NewLimiter(config.AuthMaxFailures, config.AuthWindow)
	go limiter.RunJanitor(ctx, config.AuthWindow)
	authenticator := auth.New(auth.Config{
		Username: config.Username,
		Password: config.Password,
		Exempt:   healthPaths,
	}, limiter)

	tlsCfg, err := tlsconfig.FromOptions(config.SelfSigned, config.Cert, config.Key)
	if err != nil {
		startup.LogFatal("TLS setup failed: %v", err)
	}
	startup.LogTLSInit(config.SelfSigned, tlsconfig.Version, tlsconfig.HTTPVersion)

	srv := newServer(config.Addr(), newHandlerChain(config, authenticator, router))
	if err := tlsconfig.Configure(srv, tlsCfg); err != nil {
		startup.LogFatal("TLS setup failed: %v", err)
	}

	// Metrics
	metrics.InitializeMetrics()
	collector := metrics.NewCollector(scanner.Index(), collectorInterval)
	collector.Start()
	defer collector.Stop()

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsAddr(), h.MetricsHandler())
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		// Certificates come from srv.TLSConfig.
		serveErr <- srv.ListenAndServeTLS("", "")
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Host:            config.Host,
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server error: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdown(srv, metricsSrv, stopWatch)
	return nil
}

func shutdown(srv, metricsSrv *http.Server, stopWatch context.CancelFunc) {
	startup.LogShutdownInitiated("signal")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.ShutdownStep("Stop filesystem watcher", func() error {
		stopWatch()
		return nil
	})
	startup.ShutdownStep("Stop HTTPS server", func() error { return srv.Shutdown(ctx) })
	if metricsSrv != nil {
		startup.ShutdownStep("Stop metrics server", func() error { return metricsSrv.Shutdown(ctx) })
	}

	startup.LogShutdownComplete()
}
