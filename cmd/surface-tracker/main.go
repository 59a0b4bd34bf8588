package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"surface-tracker/internal/database"
	"surface-tracker/internal/filesystem"
	"surface-tracker/internal/gaze"
	"surface-tracker/internal/handlers"
	"surface-tracker/internal/logging"
	"surface-tracker/internal/markers/aruco"
	"surface-tracker/internal/memory"
	"surface-tracker/internal/metrics"
	"surface-tracker/internal/middleware"
	"surface-tracker/internal/startup"
	"surface-tracker/internal/surface"
	"surface-tracker/internal/tracker"
	"surface-tracker/internal/video/capture"
)

// metricsInterval is how often cache gauges are refreshed.
const metricsInterval = 15 * time.Second

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	memory.ConfigureFromEnv()

	if config.MetricsEnabled {
		filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
			"recording": config.RecordingDir,
		}))
		filesystem.SetObserver(metrics.NewFilesystemObserver())
		metrics.InitializeMetrics()
		metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelInit()

	// Open the world video
	src, err := capture.NewFileSource(initCtx, config.RecordingDir, config.VideoFile)
	if err != nil {
		startup.LogFatal("Failed to open world video: %v", err)
	}
	camera := cameraFor(config.Camera, src.Resolution())
	startup.LogVideoInit(src.FrameCount(), camera.Resolution)

	// Surface definitions
	dbStart := time.Now()
	db, err := database.New(initCtx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to open surface definitions: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("Closing surface definitions: %v", err)
		}
	}()
	defs, err := db.ListSurfaces(initCtx)
	if err != nil {
		startup.LogFatal("Failed to read surface definitions: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart), len(defs))

	detector := aruco.New(gocv.ArucoDict4x4_50)
	defer func() {
		if err := detector.Close(); err != nil {
			logging.Warn("Closing marker detector: %v", err)
		}
	}()

	tr, err := tracker.New(trackerConfig(config, camera), tracker.Deps{
		Source:   src,
		Detector: detector,
		Store:    db,
	})
	if err != nil {
		startup.LogFatal("Failed to start tracker: %v", err)
	}
	st := tr.Status()
	startup.LogTrackerInit(st.FrameCount, st.Remaining)

	// The runner owns the tracker from here on.
	runner := tracker.NewRunner(tr, config.TickInterval)
	runCtx, stopRunner := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	var running atomic.Bool
	running.Store(true)
	go func() {
		defer close(runDone)
		defer running.Store(false)
		if err := runner.Run(runCtx); err != nil {
			logging.Error("Tracker runner stopped: %v", err)
		}
	}()

	watcher := gaze.NewWatcher(config.RecordingDir, gaze.DefaultDebounce, func(k gaze.Kind) {
		logging.Info("%s data changed on disk, remapping gaze", k)
		notifyGazeChanged(runCtx, runner)
	})
	go func() {
		if err := watcher.Run(runCtx); err != nil {
			logging.Warn("Gaze file watcher stopped: %v", err)
		}
	}()

	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(runner, metricsInterval)
		collector.Start()
	}

	h := handlers.New(runner, running.Load)
	logConfig := middleware.DefaultLoggingConfig()
	logConfig.LogHealthChecks = config.LogHealthChecks
	router := h.Router(logConfig, config.MetricsEnabled)
	startup.LogHTTPRoutes(router)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		handleShutdown(srv, collector, stopRunner, runDone)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-shutdownDone
}

// cameraFor fills the resolution from the video when the settings file
// does not give one.
func cameraFor(configured surface.CameraModel, resolution [2]int) surface.CameraModel {
	if configured.Resolution[0] <= 0 || configured.Resolution[1] <= 0 {
		configured.Resolution = resolution
	}
	return configured
}

func trackerConfig(config *startup.Config, camera surface.CameraModel) tracker.Config {
	return tracker.Config{
		RecDir:            config.RecordingDir,
		MinPerimeter:      config.MinPerimeter,
		MinConfidence:     config.MinConfidence,
		InvertedMarkers:   config.InvertedMarkers,
		CacheSaveInterval: config.CacheSaveInterval,
		Camera:            camera,
	}
}

func notifyGazeChanged(ctx context.Context, runner *tracker.Runner) {
	var notifyErr error
	err := runner.Do(ctx, func(t *tracker.Tracker) {
		notifyErr = t.Notify(tracker.GazePositionsChanged{})
	})
	if err == nil {
		err = notifyErr
	}
	if err != nil {
		logging.Warn("Could not reload gaze data: %v", err)
	}
}

func handleShutdown(srv *http.Server, collector *metrics.Collector, stopRunner context.CancelFunc, runDone <-chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if collector != nil {
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	startup.LogShutdownStep("Stopping tracker and saving marker cache")
	stopRunner()
	select {
	case <-runDone:
		startup.LogShutdownStepComplete("Tracker stopped")
	case <-ctx.Done():
		logging.Warn("Tracker did not stop in time")
	}

	startup.LogShutdownComplete()
}
