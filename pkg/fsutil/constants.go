// Package fsutil provides file system helpers and permission constants shared
// by the config writer and the CLI's output files.
package fsutil

// File and directory permission constants.
// These follow standard Unix permission conventions.
const (
	// Default file modes.
	FileModeDefault = 0o644 // -rw-r--r--: Default for regular files
	FileModeSecure  = 0o600 // -rw-------: For files that may carry credentials

	// Directory modes.
	DirModeDefault = 0o755 // drwxr-xr-x: Default for directories
)
