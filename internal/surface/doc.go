// Package surface models planar surfaces defined by registered markers.
//
// A surface keeps a per-frame location cache derived from the filtered
// marker cache. When the cache is invalidated, a background location
// filler recomputes it from every known marker slot while new frames keep
// being located inline. Gaze events are mapped onto the surface through
// the image-to-surface homography of each frame.
//
// All coordinates on a surface are normalised to [0, 1] with the origin
// at the bottom left.
package surface
