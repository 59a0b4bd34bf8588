package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/filesystem"
	"surface-tracker/internal/logging"
	"surface-tracker/internal/markers"
	"surface-tracker/internal/metrics"
)

const (
	// Version is the current marker cache document version. Documents with
	// any other version are discarded and rebuilt.
	Version = 3

	// FileName is the document name inside the recording directory.
	FileName = "square_marker_cache"
)

var (
	// ErrNotFound is returned by Load when no document exists.
	ErrNotFound = errors.New("marker cache document not found")
	// ErrVersionMismatch is returned by Load together with the decoded
	// document when its version differs from Version.
	ErrVersionMismatch = errors.New("marker cache version mismatch")
)

// Document is the persisted state of the unfiltered marker cache.
type Document struct {
	Version               int
	MarkerCacheUnfiltered []cachelist.Slot[[]markers.Marker]
	InvertedMarkers       bool
}

type wireDocument struct {
	Version               int                  `msgpack:"version"`
	MarkerCacheUnfiltered []msgpack.RawMessage `msgpack:"marker_cache_unfiltered"`
	InvertedMarkers       bool                 `msgpack:"inverted_markers"`
}

// Path returns the document location for a recording.
func Path(recDir string) string {
	return filepath.Join(recDir, FileName)
}

// Encode serialises doc. Each slot becomes false (unknown), an empty
// array (no markers) or an array of marker records.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeMapLen(3); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("version"); err != nil {
		return nil, err
	}
	if err := enc.EncodeInt(int64(doc.Version)); err != nil {
		return nil, err
	}

	if err := enc.EncodeString("marker_cache_unfiltered"); err != nil {
		return nil, err
	}
	if err := enc.EncodeArrayLen(len(doc.MarkerCacheUnfiltered)); err != nil {
		return nil, err
	}
	for i, s := range doc.MarkerCacheUnfiltered {
		if err := encodeSlot(enc, s); err != nil {
			return nil, fmt.Errorf("encode slot %d: %w", i, err)
		}
	}

	if err := enc.EncodeString("inverted_markers"); err != nil {
		return nil, err
	}
	if err := enc.EncodeBool(doc.InvertedMarkers); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func encodeSlot(enc *msgpack.Encoder, s cachelist.Slot[[]markers.Marker]) error {
	switch s.State() {
	case cachelist.StateUnknown:
		return enc.EncodeBool(false)
	case cachelist.StateEmpty:
		return enc.EncodeArrayLen(0)
	default:
		ms, _ := s.Get()
		return enc.Encode(ms)
	}
}

// Decode parses a document. The version is not checked.
func Decode(data []byte) (*Document, error) {
	var wire wireDocument
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode marker cache: %w", err)
	}

	doc := &Document{
		Version:               wire.Version,
		InvertedMarkers:       wire.InvertedMarkers,
		MarkerCacheUnfiltered: make([]cachelist.Slot[[]markers.Marker], len(wire.MarkerCacheUnfiltered)),
	}
	for i, raw := range wire.MarkerCacheUnfiltered {
		s, err := decodeSlot(raw)
		if err != nil {
			return nil, fmt.Errorf("decode slot %d: %w", i, err)
		}
		doc.MarkerCacheUnfiltered[i] = s
	}
	return doc, nil
}

func decodeSlot(raw msgpack.RawMessage) (cachelist.Slot[[]markers.Marker], error) {
	if len(raw) == 0 {
		return cachelist.Unknown[[]markers.Marker](), nil
	}
	switch raw[0] {
	case msgpcode.False, msgpcode.Nil:
		return cachelist.Unknown[[]markers.Marker](), nil
	}

	var ms []markers.Marker
	if err := msgpack.Unmarshal(raw, &ms); err != nil {
		return cachelist.Slot[[]markers.Marker]{}, err
	}
	return markers.Slot(ms), nil
}

// Load reads the document of a recording. It returns ErrNotFound when the
// file does not exist. On a version mismatch the decoded document is
// returned together with ErrVersionMismatch so callers can adopt settings
// from it.
func Load(recDir string) (*Document, error) {
	path := Path(recDir)

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if doc.Version != Version {
		return doc, fmt.Errorf("%w: found %d, expected %d", ErrVersionMismatch, doc.Version, Version)
	}

	logging.Debug("Loaded marker cache with %d frames from %s", len(doc.MarkerCacheUnfiltered), path)
	return doc, nil
}

// Save atomically replaces the document of a recording.
func Save(recDir string, doc *Document) error {
	start := time.Now()
	path := Path(recDir)

	data, err := Encode(doc)
	if err == nil {
		err = filesystem.WriteFileAtomic(path, data, filesystem.DefaultRetryConfig())
	}

	metrics.MarkerCacheSaveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MarkerCacheSaves.WithLabelValues("error").Inc()
		return fmt.Errorf("save marker cache to %s: %w", path, err)
	}

	metrics.MarkerCacheSaves.WithLabelValues("success").Inc()
	logging.Debug("Saved marker cache (%d frames, %d bytes) to %s", len(doc.MarkerCacheUnfiltered), len(data), path)
	return nil
}
