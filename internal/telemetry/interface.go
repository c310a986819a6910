package telemetry

// Reader is the read-only view of a running monitor. Every call returns a
// momentary consistent value and never blocks on device I/O.
type Reader interface {
	FirmwareVersion() Firmware
	SerialNumber() int

	// Temperature returns degrees Celsius.
	Temperature() float64
	// Frequency returns the line frequency in hertz.
	Frequency() float64
	// Voltage returns volts.
	Voltage() float64

	// Wattage returns the latest per-channel reading in watts.
	Wattage() Watts
	// WattageAvg returns the per-channel mean over the current window.
	WattageAvg() Watts
	// WattageMax returns the per-channel peak over the current window.
	WattageMax() Watts
}

// Controller is a Reader with lifecycle control.
type Controller interface {
	Reader
	Start() error
	Stop() error
}
