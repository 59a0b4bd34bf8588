/*
Package filesystem provides resilient file operations for the recording
directory: reads and stats that retry on transient errors, and atomic
replacement of cache and export files.

# Key Features

  - Automatic retry with exponential backoff for transient errors
    (ESTALE, EAGAIN, EBUSY, EINTR)
  - Atomic writes through github.com/natefinch/atomic: a crash mid-write
    leaves the previous file intact
  - Per-volume metrics through an [Observer] installed at startup

# Usage

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())

	err := filesystem.WriteFileAtomic(path, encoded, filesystem.DefaultRetryConfig())

# Retry Behavior

Defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

All other errors fail immediately without retry attempts.
*/
package filesystem
