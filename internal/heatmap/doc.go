// Package heatmap renders gaze heatmaps for surfaces.
//
// Within-surface heatmaps are blurred 2-D histograms of gaze in surface
// coordinates. Across-surface heatmaps give every surface one colour
// according to how much gaze it received relative to the others. Both use
// the jet colour map with a fixed alpha.
package heatmap
