// Package constants provides shared constants used across the codebase.
package constants

// Upload constants
const (
	// MaxUploadSize is the maximum multipart body accepted by the upload endpoints
	MaxUploadSize = 16 << 20
)

// Listing constants
const (
	// DefaultAttendanceLimit caps attendance listings when no limit is given
	DefaultAttendanceLimit = 500

	// MaxAttendanceLimit is the largest accepted limit query parameter
	MaxAttendanceLimit = 5000
)
