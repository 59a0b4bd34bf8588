// Package persistence stores the unfiltered marker cache of a recording in
// a versioned msgpack document named square_marker_cache.
//
// The document is a map with three keys:
//
//	version                  int
//	marker_cache_unfiltered  array, one element per frame:
//	                           false      frame not processed yet
//	                           []         processed, no markers
//	                           [marker…]  detected markers
//	inverted_markers         bool
//
// Writes replace the file atomically. A document with a different version
// is reported with ErrVersionMismatch and rebuilt by the caller.
package persistence
