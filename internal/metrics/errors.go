package metrics

import "codeberg.org/mutker/fx5204ps/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig  = errors.ErrInvalidConfig
	ErrInvalidAddress = errors.ErrorCode("metrics_invalid_address")
	ErrInvalidPath    = errors.ErrorCode("metrics_invalid_path")

	// Registry Errors
	ErrRegisterFailed = errors.ErrInitMetrics

	// Server Errors
	ErrListenFailed   = errors.ErrServeMetrics
	ErrServiceRunning = errors.ErrInvalidState
	ErrServiceClose   = errors.ErrCloseMetrics
)

func init() {
	errors.RegisterMessage(ErrInvalidAddress, "Invalid metrics listen address")
	errors.RegisterMessage(ErrInvalidPath, "Invalid metrics path")
}
