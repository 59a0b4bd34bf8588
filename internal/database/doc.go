// Package database provides SQLite storage for the surface definitions of
// a recording.
//
// Each recording has its own database file next to the video. It stores:
//   - Surface definitions (name, UID, real world size, heatmap smoothness)
//   - Registered markers with their corners in surface coordinates
//   - Metadata such as the time of the last write
//
// Definitions are always replaced as a whole inside one transaction, so
// a reader never sees a partially written set.
package database
