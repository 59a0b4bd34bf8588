package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surface-tracker/internal/database"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "custom")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_BAD_BOOL", "maybe")
	t.Setenv("TEST_FLOAT", "72.5")
	t.Setenv("TEST_BAD_FLOAT", "wide")
	t.Setenv("TEST_DURATION", "2s")
	t.Setenv("TEST_NEG_DURATION", "-1s")

	assert.Equal(t, "custom", getEnv("TEST_STR", "default"))
	assert.Equal(t, "default", getEnv("TEST_UNSET", "default"))
	assert.True(t, getEnvBool("TEST_BOOL", false))
	assert.True(t, getEnvBool("TEST_BAD_BOOL", true))
	assert.Equal(t, 72.5, getEnvFloat("TEST_FLOAT", 1))
	assert.Equal(t, 1.0, getEnvFloat("TEST_BAD_FLOAT", 1))
	assert.Equal(t, 2*time.Second, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_NEG_DURATION", time.Second))
}

func TestParseConfigFile(t *testing.T) {
	data := []byte(`{
		// comments and trailing commas are allowed
		"marker_min_perimeter": 80,
		"tick_interval": "100ms",
		"camera": {
			"resolution": [1280, 720],
			"intrinsics": [[800, 0, 640], [0, 800, 360], [0, 0, 1]],
			"distortion": [0.1, 0.01],
		},
	}`)

	fc, err := parseConfigFile(data)
	require.NoError(t, err)
	require.NotNil(t, fc.MinPerimeter)
	assert.Equal(t, 80.0, *fc.MinPerimeter)
	assert.Nil(t, fc.Port)
	require.NotNil(t, fc.Camera)
	assert.Equal(t, [2]int{1280, 720}, fc.Camera.Resolution)
	assert.Equal(t, 640.0, fc.Camera.Intrinsics[0][2])

	_, err = parseConfigFile([]byte(`{"port": `))
	assert.Error(t, err)
}

func writeRecording(t *testing.T, settings string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "world.mp4"), []byte("not a real video"), 0o644))
	if settings != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(settings), 0o644))
	}
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeRecording(t, "")
	t.Setenv("RECORDING_DIR", dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	expected := DefaultConfig()
	assert.Equal(t, expected.MinPerimeter, cfg.MinPerimeter)
	assert.Equal(t, expected.TickInterval, cfg.TickInterval)
	assert.Equal(t, filepath.Join(dir, "world.mp4"), cfg.VideoPath)
	assert.Equal(t, database.Path(dir), cfg.DatabasePath)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := writeRecording(t, `{"marker_min_perimeter": 90, "port": "9000", "inverted_markers": true}`)
	t.Setenv("RECORDING_DIR", dir)
	t.Setenv("MARKER_MIN_PERIMETER", "120")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 120.0, cfg.MinPerimeter, "env wins over the settings file")
	assert.Equal(t, "9000", cfg.Port, "settings file wins over defaults")
	assert.True(t, cfg.InvertedMarkers)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing video", func(t *testing.T) {
		t.Setenv("RECORDING_DIR", t.TempDir())
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Setenv("RECORDING_DIR", filepath.Join(t.TempDir(), "nope"))
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("malformed settings", func(t *testing.T) {
		t.Setenv("RECORDING_DIR", writeRecording(t, `{"port": }`))
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/status", func(_ http.ResponseWriter, _ *http.Request) {}).Methods("GET")
	router.HandleFunc("/api/surfaces/{name}", func(_ http.ResponseWriter, _ *http.Request) {}).Methods("GET", "DELETE")

	routes, err := GetRoutes(router)
	require.NoError(t, err)
	assert.Len(t, routes, 3)
	assert.Equal(t, RouteInfo{Method: "GET", Path: "/api/status"}, routes[0])
}
