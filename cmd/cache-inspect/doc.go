// Command cache-inspect reports on and resets the persisted marker cache
// of a recording.
//
// Usage:
//
//	cache-inspect <command> [-r DIR] [--min-perimeter N] [-y]
//
// Commands:
//
//	status  Show the cache version, marker polarity, detection progress
//	        and the defined surfaces.
//
//	ranges  Print inclusive frame ranges in which markers at least
//	        --min-perimeter pixels around were detected.
//
//	reset   Delete the marker cache. The tracker detects markers in every
//	        frame again on its next start. Asks for confirmation on a
//	        terminal unless --yes is given.
//
// Environment:
//
//	RECORDING_DIR - Default recording directory (default: .)
package main
