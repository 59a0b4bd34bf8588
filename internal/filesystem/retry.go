package filesystem

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/natefinch/atomic"

	"surface-tracker/internal/logging"
)

// VolumeResolver maps file paths to known volume names for metric labeling.
// It uses longest-prefix matching on absolute paths.
type VolumeResolver struct {
	// mounts is sorted by path length descending for longest-prefix matching
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute path with trailing slash (e.g., "/data/rec01/")
	name string // volume label (e.g., "recording")
}

// NewVolumeResolver creates a resolver from a map of volume name → absolute path.
// Example:
//
//	NewVolumeResolver(map[string]string{
//	    "recording": "/data/rec01",
//	    "export":    "/data/rec01/exports",
//	})
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if !strings.HasSuffix(absPath, "/") {
			absPath += "/"
		}
		mounts = append(mounts, volumeMount{path: absPath, name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume name for a given file path.
// Returns "unknown" if the path doesn't match any configured volume.
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}

	for _, mount := range vr.mounts {
		if strings.HasPrefix(absPath+"/", mount.path) {
			return mount.name
		}
	}

	return "unknown"
}

// defaultResolver is the package-level resolver set at startup
var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level volume resolver.
// Call this once at startup after loading configuration.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package-level resolver for this operation.
	// If nil, the package-level default is used.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns the retry behaviour used for cache and export files.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

// isTransientError reports errors worth retrying: stale NFS handles and
// temporarily busy or interrupted files.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ESTALE, syscall.EAGAIN, syscall.EBUSY, syscall.EINTR:
			return true
		}
	}

	return false
}

// withRetry runs fn until it succeeds, fails with a non-transient error or
// runs out of attempts. Backoff doubles up to config.MaxBackoff.
func withRetry(retryOp, path string, config RetryConfig, fn func() error) error {
	start := time.Now()
	volume := config.resolveVolume(path)
	obs := observe()
	var lastErr error
	backoff := config.InitialBackoff

	finish := func(err error) error {
		elapsed := time.Since(start).Seconds()
		if obs != nil {
			obs.ObserveRetryDuration(retryOp, volume, elapsed)
			obs.ObserveOperation(volume, operationFor(retryOp), elapsed, err)
		}
		return err
	}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", retryOp, attempt, path)
				if obs != nil {
					obs.ObserveRetrySuccess(retryOp, volume)
				}
			}
			return finish(nil)
		}

		lastErr = err

		if !isTransientError(err) {
			return finish(err)
		}

		if obs != nil {
			obs.ObserveTransientError(retryOp, volume)
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			if obs != nil {
				obs.ObserveRetryAttempt(retryOp, volume)
			}
			logging.Debug("%s transient error for %s, retrying in %v (attempt %d/%d): %v",
				retryOp, path, backoff, attempt+1, config.MaxRetries, err)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", retryOp, config.MaxRetries, path, lastErr)
	if obs != nil {
		obs.ObserveRetryFailure(retryOp, volume)
	}
	return finish(lastErr)
}

func operationFor(retryOp string) string {
	switch retryOp {
	case "write":
		return "write"
	case "stat":
		return "stat"
	default:
		return "read"
	}
}

// StatWithRetry performs os.Stat with retry logic for transient errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var statErr error
		info, statErr = os.Stat(path)
		return statErr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ReadFileWithRetry reads a whole file with retry logic for transient errors.
func ReadFileWithRetry(path string, config RetryConfig) ([]byte, error) {
	var data []byte
	err := withRetry("open", path, config, func() error {
		var readErr error
		data, readErr = os.ReadFile(path)
		return readErr
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteFileAtomic replaces path with data. Readers see either the old or the
// new content, never a partial write.
func WriteFileAtomic(path string, data []byte, config RetryConfig) error {
	return withRetry("write", path, config, func() error {
		return atomic.WriteFile(path, bytes.NewReader(data))
	})
}
