package startup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/tailscale/hujson"

	"surface-tracker/internal/database"
	"surface-tracker/internal/logging"
	"surface-tracker/internal/surface"
	"surface-tracker/internal/video"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// ConfigFileName is the optional per-recording settings file.
const ConfigFileName = "surface_tracker.jsonc"

// BuildInfo contains version and build information
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

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	RecordingDir      string
	VideoFile         string
	Port              string
	TickInterval      time.Duration
	CacheSaveInterval time.Duration
	MinPerimeter      float64
	MinConfidence     float64
	InvertedMarkers   bool
	LogHealthChecks   bool
	MetricsEnabled    bool
	Camera            surface.CameraModel

	// Derived paths
	VideoPath    string
	DatabasePath string
	ConfigPath   string
}

// fileConfig is the JSONC overlay. Absent keys keep the defaults.
type fileConfig struct {
	VideoFile         *string              `json:"video_file"`
	Port              *string              `json:"port"`
	TickInterval      *string              `json:"tick_interval"`
	CacheSaveInterval *string              `json:"cache_save_interval"`
	MinPerimeter      *float64             `json:"marker_min_perimeter"`
	MinConfidence     *float64             `json:"marker_min_confidence"`
	InvertedMarkers   *bool                `json:"inverted_markers"`
	Camera            *surface.CameraModel `json:"camera"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		VideoFile:         "world.mp4",
		Port:              "8080",
		TickInterval:      50 * time.Millisecond,
		CacheSaveInterval: 5 * time.Second,
		MinPerimeter:      60,
		LogHealthChecks:   false,
		MetricsEnabled:    true,
	}
}

// LoadConfig loads and validates configuration from the recording's
// settings file and environment variables. Environment values win.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	recDir, err := filepath.Abs(getEnv("RECORDING_DIR", "."))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recording directory path: %w", err)
	}
	if err := checkRecordingDir(recDir); err != nil {
		return nil, fmt.Errorf("recording directory error: %w", err)
	}
	if err := testWriteAccess(recDir); err != nil {
		return nil, fmt.Errorf("recording directory is not writable (required for the marker cache): %w", err)
	}

	cfg := DefaultConfig()
	cfg.RecordingDir = recDir
	cfg.ConfigPath = filepath.Join(recDir, ConfigFileName)

	if err := cfg.applyFile(cfg.ConfigPath); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	cfg.VideoPath = filepath.Join(recDir, cfg.VideoFile)
	cfg.DatabasePath = database.Path(recDir)

	logging.Info("  RECORDING_DIR:         %s", cfg.RecordingDir)
	logging.Info("  VIDEO_FILE:            %s", cfg.VideoFile)
	logging.Info("  PORT:                  %s", cfg.Port)
	logging.Info("  TICK_INTERVAL:         %v", cfg.TickInterval)
	logging.Info("  CACHE_SAVE_INTERVAL:   %v", cfg.CacheSaveInterval)
	logging.Info("  MARKER_MIN_PERIMETER:  %v", cfg.MinPerimeter)
	logging.Info("  MARKER_MIN_CONFIDENCE: %v", cfg.MinConfidence)
	logging.Info("  INVERTED_MARKERS:      %v", cfg.InvertedMarkers)
	logging.Info("  METRICS_ENABLED:       %v", cfg.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())

	if _, err := os.Stat(cfg.VideoPath); err != nil {
		return nil, fmt.Errorf("world video: %w", err)
	}
	return &cfg, nil
}

// applyFile overlays the JSONC settings file when it exists.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("  No settings file at %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	fc, err := parseConfigFile(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logging.Info("  Settings file:         %s", path)

	if fc.VideoFile != nil {
		c.VideoFile = *fc.VideoFile
	}
	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.TickInterval != nil {
		c.TickInterval = parseDuration("tick_interval", *fc.TickInterval, c.TickInterval)
	}
	if fc.CacheSaveInterval != nil {
		c.CacheSaveInterval = parseDuration("cache_save_interval", *fc.CacheSaveInterval, c.CacheSaveInterval)
	}
	if fc.MinPerimeter != nil {
		c.MinPerimeter = *fc.MinPerimeter
	}
	if fc.MinConfidence != nil {
		c.MinConfidence = *fc.MinConfidence
	}
	if fc.InvertedMarkers != nil {
		c.InvertedMarkers = *fc.InvertedMarkers
	}
	if fc.Camera != nil {
		c.Camera = *fc.Camera
	}
	return nil
}

func parseConfigFile(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	var fc fileConfig
	if err := json.Unmarshal(standardized, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return fc, nil
}

func (c *Config) applyEnv() {
	c.VideoFile = getEnv("VIDEO_FILE", c.VideoFile)
	c.Port = getEnv("PORT", c.Port)
	c.TickInterval = getEnvDuration("TICK_INTERVAL", c.TickInterval)
	c.CacheSaveInterval = getEnvDuration("CACHE_SAVE_INTERVAL", c.CacheSaveInterval)
	c.MinPerimeter = getEnvFloat("MARKER_MIN_PERIMETER", c.MinPerimeter)
	c.MinConfidence = getEnvFloat("MARKER_MIN_CONFIDENCE", c.MinConfidence)
	c.InvertedMarkers = getEnvBool("INVERTED_MARKERS", c.InvertedMarkers)
	c.LogHealthChecks = getEnvBool("LOG_HEALTH_CHECKS", c.LogHealthChecks)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)
}

// LogVideoInit logs the opened world video and checks for ffprobe.
func LogVideoInit(frames int, resolution [2]int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("WORLD VIDEO")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Frames:      %d", frames)
	logging.Info("  Resolution:  %dx%d", resolution[0], resolution[1])

	if err := checkFFprobe(); err != nil {
		logging.Warn("  ffprobe check failed: %v", err)
		logging.Warn("  Timestamps can only be read from %s", video.TimestampsFile)
	} else {
		logging.Info("  [OK] ffprobe is available")
	}
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration, surfaces int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SURFACE DEFINITIONS")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database opened in %v (%d surfaces)", duration, surfaces)
}

// LogTrackerInit logs the marker cache state after the tracker starts.
func LogTrackerInit(frames, remaining int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MARKER CACHE")
	logging.Info("------------------------------------------------------------")
	if remaining == 0 {
		logging.Info("  [OK] All %d frames cached", frames)
		return
	}
	logging.Info("  Detecting markers in %d of %d frames", remaining, frames)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes in debug mode
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  API:             http://localhost:%s/api/status", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://localhost:%s/metrics", config.Port)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   ___ _   _ _ __ / _| __ _  ___ ___
  / __| | | | '__| |_ / _' |/ __/ _ \
  \__ \ |_| | |  |  _| (_| | (_|  __/   tracker
  |___/\__,_|_|  |_|  \__,_|\___\___|
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
	}
	logging.Info("")
}

func checkRecordingDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	logging.Debug("  [OK] Recording directory exists: %s", path)
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFprobe() error {
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		return fmt.Errorf("ffprobe not found in PATH")
	}
	logging.Debug("  ffprobe path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffprobe version: %w", err)
	}
	first, _, _ := strings.Cut(string(output), "\n")
	logging.Debug("  ffprobe version: %s", strings.TrimSpace(first))
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return parseDuration(key, value, defaultValue)
}

func parseDuration(key, value string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}
