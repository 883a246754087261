package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"videopipe/internal/catalog"
	"videopipe/internal/coordinator"
	"videopipe/internal/filesystem"
	"videopipe/internal/logging"
	"videopipe/internal/memory"
	"videopipe/internal/metrics"
	"videopipe/internal/mosaic"
	"videopipe/internal/preview"
	"videopipe/internal/smartfolder"
	"videopipe/internal/startup"
	"videopipe/internal/video"
	"videopipe/internal/workers"
)

func main() {
	memory.ConfigureFromEnv()

	cfg, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("configuration failed: %v", err)
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(volumeMap(cfg)))

	startup.LogFFmpegCheck()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbStart := time.Now()
	cat, err := catalog.Open(ctx, cfg.DatabasePath)
	if err != nil {
		startup.LogFatal("failed to open catalog at %s: %v", cfg.DatabasePath, err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	mem := memory.NewMonitor(memory.DefaultConfig())
	mem.Start()

	processor := video.New(envOr("FFPROBE_PATH", "ffprobe"), envOr("FFMPEG_PATH", "ffmpeg"),
		cfg.ThumbnailDir, video.Config{
			ThumbnailWidth:        cfg.Processing.ThumbnailWidth,
			Format:                cfg.Processing.Format,
			CompressionQuality:    cfg.Processing.CompressionQuality,
			UseAccurateTimestamps: cfg.Processing.UseAccurateTimestamps,
		})

	mosaicEngine := mosaic.New(envOr("FFMPEG_PATH", "ffmpeg"), cfg.LibraryRoots)
	previewEngine := preview.New(envOr("FFMPEG_PATH", "ffmpeg"), cfg.PreviewDir)
	evaluator := smartfolder.New()

	concurrency := workers.ForMixed(12)
	coord := coordinator.New(cat, processor, evaluator, concurrency)

	collector := metrics.NewCollector(&statsAdapter{cat: cat}, time.Minute)
	collector.Start()

	sweeper := &artifactSweeper{
		cat:        cat,
		mosaicEng:  mosaicEngine,
		previewEng: previewEngine,
		mosaicCfg:  mosaicConfigFromDefaults(cfg.Mosaic),
		previewCfg: previewConfigFromDefaults(cfg.Preview),
	}

	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metricsServer = newMetricsServer(cfg.MetricsPort)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("metrics server failed: %v", err)
			}
		}()
		logging.Info("metrics server listening on :%s", cfg.MetricsPort)
	}

	startup.LogScanStarted(cfg.ScanInterval)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runDiscoveryLoop(ctx, coord, cfg, concurrency)
	}()
	go func() {
		defer wg.Done()
		runSweepLoop(ctx, sweeper, cfg.MosaicInterval)
	}()
	startup.LogScanStartedOK()

	<-ctx.Done()
	startup.LogShutdownInitiated("SIGINT/SIGTERM")

	startup.LogShutdownStep("waiting for background loops to stop")
	wg.Wait()
	startup.LogShutdownStepComplete("background loops stopped")

	if metricsServer != nil {
		startup.LogShutdownStep("stopping metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn("metrics server shutdown: %v", err)
		}
		cancel()
		startup.LogShutdownStepComplete("metrics server stopped")
	}

	startup.LogShutdownStep("stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("metrics collector stopped")

	startup.LogShutdownStep("stopping memory monitor")
	mem.Stop()
	startup.LogShutdownStepComplete("memory monitor stopped")

	startup.LogShutdownStep("closing catalog")
	if err := cat.Close(); err != nil {
		logging.Warn("failed to close catalog: %v", err)
	}
	startup.LogShutdownStepComplete("catalog closed")

	startup.LogShutdownComplete()
}

// runDiscoveryLoop runs a DiscoverFolder pass over every configured library
// root immediately, then again every interval, until ctx is cancelled.
func runDiscoveryLoop(ctx context.Context, coord *coordinator.Coordinator, cfg *startup.Config, concurrency int) {
	runOnce := func() {
		for _, root := range cfg.LibraryRoots {
			if ctx.Err() != nil {
				return
			}
			start := time.Now()
			result, err := coord.DiscoverFolder(ctx, root, coordinator.Options{
				Recursive:            true,
				ConcurrentOperations: concurrency,
				GenerateThumbnails:   true,
			}, coordinator.Listener{})
			if err != nil {
				logging.Warn("discovery run failed for %s: %v", root, err)
				continue
			}
			processed := len(result.Added) + len(result.Updated) + len(result.Errors)
			startup.LogBatchComplete(processed, len(result.Added), len(result.Updated), len(result.Removed), len(result.Errors), time.Since(start))
		}
	}

	runOnce()
	ticker := time.NewTicker(cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func runSweepLoop(ctx context.Context, sweeper *artifactSweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweeper.run(ctx)
		}
	}
}

func newMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(startup.GetBuildInfo())
	})
	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

func volumeMap(cfg *startup.Config) map[string]string {
	vols := map[string]string{
		"cache":    cfg.CacheDir,
		"database": cfg.DatabaseDir,
	}
	for _, root := range cfg.LibraryRoots {
		vols["library:"+filepath.Base(root)] = root
	}
	return vols
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
