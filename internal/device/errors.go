package device

import (
	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/protocol"
)

const (
	// Discovery and setup errors
	ErrDeviceNotFound     = errors.ErrorCode("device_not_found")
	ErrOpenFailed         = errors.ErrorCode("device_open_failed")
	ErrClaimFailed        = errors.ErrorCode("device_claim_failed")
	ErrUnexpectedTopology = errors.ErrorCode("device_unexpected_topology")

	// Runtime errors
	ErrTransport         = errors.ErrorCode("device_transport_failed")
	ErrMalformedResponse = errors.ErrorCode("device_malformed_response")
	ErrClosed            = errors.ErrorCode("device_closed")
)

func init() {
	errors.RegisterMessage(ErrDeviceNotFound, "No FX5204PS device found")
	errors.RegisterMessage(ErrOpenFailed, "Failed to open device")
	errors.RegisterMessage(ErrClaimFailed, "Failed to claim device")
	errors.RegisterMessage(ErrUnexpectedTopology, "Unexpected USB topology")
	errors.RegisterMessage(ErrTransport, "USB transfer failed")
	errors.RegisterMessage(ErrMalformedResponse, "Malformed device response")
	errors.RegisterMessage(ErrClosed, "Device is closed")
}

// responseLength checks a transfer against the fixed size of its response.
func responseLength(req protocol.Request, n int) error {
	if n != req.Length {
		return errors.New().WithData(ErrMalformedResponse, struct {
			Request string
			Want    int
			Got     int
		}{
			Request: req.String(),
			Want:    req.Length,
			Got:     n,
		})
	}

	return nil
}
