package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"surface-tracker/internal/filesystem"
	"surface-tracker/internal/logging"
)

// TimestampsFile is the per-recording cache of world frame timestamps.
const TimestampsFile = "world_timestamps.msgpack"

// ffprobeBinary can be overridden in tests.
var ffprobeBinary = "ffprobe"

type probeOutput struct {
	Packets []struct {
		PTSTime string `json:"pts_time"`
	} `json:"packets"`
}

// ProbeTimestamps lists the presentation timestamps of every video packet,
// in presentation order.
func ProbeTimestamps(ctx context.Context, videoPath string) ([]float64, error) {
	cmd := exec.CommandContext(ctx, ffprobeBinary,
		"-v", "quiet",
		"-select_streams", "v:0",
		"-show_entries", "packet=pts_time",
		"-print_format", "json",
		videoPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	ts := make([]float64, 0, len(out.Packets))
	for _, p := range out.Packets {
		if p.PTSTime == "" || p.PTSTime == "N/A" {
			continue
		}
		v, err := strconv.ParseFloat(p.PTSTime, 64)
		if err != nil {
			return nil, fmt.Errorf("parse pts_time %q: %w", p.PTSTime, err)
		}
		ts = append(ts, v)
	}
	if len(ts) == 0 {
		return nil, fmt.Errorf("no video packets in %s", videoPath)
	}

	// Packets come in decode order.
	slices.Sort(ts)
	return ts, nil
}

// LoadTimestamps returns the world timestamps for a recording. The cached
// msgpack file is used when present, otherwise ffprobe is run and the
// result cached next to the video.
func LoadTimestamps(ctx context.Context, recDir, videoFile string) ([]float64, error) {
	cachePath := filepath.Join(recDir, TimestampsFile)

	data, err := filesystem.ReadFileWithRetry(cachePath, filesystem.DefaultRetryConfig())
	switch {
	case err == nil:
		var ts []float64
		if err := msgpack.Unmarshal(data, &ts); err != nil {
			return nil, fmt.Errorf("decode %s: %w", cachePath, err)
		}
		logging.Debug("Loaded %d world timestamps from %s", len(ts), cachePath)
		return ts, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", cachePath, err)
	}

	ts, err := ProbeTimestamps(ctx, filepath.Join(recDir, videoFile))
	if err != nil {
		return nil, err
	}

	encoded, err := msgpack.Marshal(ts)
	if err != nil {
		return nil, fmt.Errorf("encode timestamps: %w", err)
	}
	if err := filesystem.WriteFileAtomic(cachePath, encoded, filesystem.DefaultRetryConfig()); err != nil {
		logging.Warn("Could not cache world timestamps at %s: %v", cachePath, err)
	}

	logging.Info("Probed %d world timestamps from %s", len(ts), videoFile)
	return ts, nil
}
