package monitor

import "codeberg.org/mutker/fx5204ps/internal/errors"

const (
	// Initialization errors
	ErrIdentityFailed = errors.ErrorCode("monitor_identity_failed")

	// Lifecycle errors
	ErrInvalidState = errors.ErrInvalidState
	ErrCloseFailed  = errors.ErrShutdownFailed
)

func init() {
	errors.RegisterMessage(ErrIdentityFailed, "Failed to read device identity")
}
