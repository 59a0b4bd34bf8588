package capture

import (
	"context"
	"fmt"
	"path/filepath"

	"gocv.io/x/gocv"

	"surface-tracker/internal/logging"
	"surface-tracker/internal/video"
)

// FileSource is a world video file decoded with OpenCV.
type FileSource struct {
	path       string
	timestamps []float64
	resolution [2]int
}

// NewFileSource probes (or loads cached) timestamps for recDir/videoFile.
func NewFileSource(ctx context.Context, recDir, videoFile string) (*FileSource, error) {
	ts, err := video.LoadTimestamps(ctx, recDir, videoFile)
	if err != nil {
		return nil, fmt.Errorf("world timestamps: %w", err)
	}

	src := &FileSource{
		path:       filepath.Join(recDir, videoFile),
		timestamps: ts,
	}

	// Sanity check the container frame count against the probed timestamps.
	vc, err := gocv.VideoCaptureFile(src.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.path, err)
	}
	defer vc.Close()

	if n := int(vc.Get(gocv.VideoCaptureFrameCount)); n > 0 && n != len(ts) {
		logging.Warn("Container reports %d frames but %d timestamps were found, using timestamps", n, len(ts))
	}
	src.resolution = [2]int{int(vc.Get(gocv.VideoCaptureFrameWidth)), int(vc.Get(gocv.VideoCaptureFrameHeight))}

	return src, nil
}

// FrameCount returns the number of world frames.
func (s *FileSource) FrameCount() int { return len(s.timestamps) }

// Timestamps returns the world frame timestamps. The slice must not be modified.
func (s *FileSource) Timestamps() []float64 { return s.timestamps }

// Resolution returns the frame width and height in pixels.
func (s *FileSource) Resolution() [2]int { return s.resolution }

// Open creates a new decoder over the file.
func (s *FileSource) Open() (video.Reader, error) {
	vc, err := gocv.VideoCaptureFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	return &reader{vc: vc, timestamps: s.timestamps}, nil
}

type reader struct {
	vc         *gocv.VideoCapture
	timestamps []float64
	next       int
}

func (r *reader) Read(index int) (video.Frame, error) {
	if index < 0 || index >= len(r.timestamps) {
		return nil, fmt.Errorf("%w: index %d out of range", video.ErrFrameUnavailable, index)
	}

	// Sequential reads avoid a keyframe seek.
	if index != r.next {
		r.vc.Set(gocv.VideoCapturePosFrames, float64(index))
	}

	mat := gocv.NewMat()
	if ok := r.vc.Read(&mat); !ok || mat.Empty() {
		_ = mat.Close()
		r.next = -1
		return nil, fmt.Errorf("%w: index %d", video.ErrFrameUnavailable, index)
	}
	r.next = index + 1

	return &Frame{index: index, timestamp: r.timestamps[index], mat: mat}, nil
}

func (r *reader) Close() error {
	return r.vc.Close()
}

// Frame is a decoded BGR frame.
type Frame struct {
	index     int
	timestamp float64
	mat       gocv.Mat
}

func (f *Frame) Index() int         { return f.index }
func (f *Frame) Timestamp() float64 { return f.timestamp }

// Mat returns the decoded image. It is valid until Close.
func (f *Frame) Mat() gocv.Mat { return f.mat }

func (f *Frame) Close() error { return f.mat.Close() }
