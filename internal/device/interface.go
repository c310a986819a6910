package device

import "codeberg.org/mutker/fx5204ps/internal/protocol"

// Transport is the capability set the monitor needs from the bus. A
// Transport serves exactly one device for its lifetime.
type Transport interface {
	// Open locates the device with the given identity. The first match wins.
	Open(vendor, product uint16) error
	// Claim selects the device's only configuration, interface and IN
	// endpoint, failing if the device exposes more than one of any.
	Claim() error
	// ControlTransfer issues a vendor control-IN request and returns exactly
	// req.Length bytes.
	ControlTransfer(req protocol.Request) ([]byte, error)
	// BulkRead reads one frame from the IN endpoint.
	BulkRead(p []byte) (int, error)
	Close() error
}
