// Package export writes surface statistics of a recording section to CSV
// files and heatmap images.
//
// The export directory contains:
//   - surface_visibility.csv: visible frame count per surface
//   - surface_gaze_distribution.csv: gaze count per surface
//   - surface_events.csv: enter and exit events of every surface
//   - surf_positions_<name>.csv: per-frame homographies
//   - gaze_positions_on_surface_<name>.csv and fixations_on_surface_<name>.csv
//   - heatmap_<name>.png
package export
