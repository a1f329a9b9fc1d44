package session

import "errors"

// History limits. DefaultHistoryLimit matches the number of prior turns the
// generation prompt carries; MaxHistoryLimit is an absolute cap to prevent
// unbounded reads.
const (
	DefaultHistoryLimit int32 = 10
	MaxHistoryLimit     int32 = 50
)

// Sentinel errors for session operations. Check with errors.Is.
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidRole indicates a turn role outside user/assistant.
	ErrInvalidRole = errors.New("invalid turn role")
)

// NormalizeHistoryLimit returns a usable history limit: zero or negative
// values fall back to the default, oversized values are clamped.
func NormalizeHistoryLimit(limit int32) int32 {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
