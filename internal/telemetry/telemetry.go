package telemetry

import (
	"fmt"
	"time"
)

// Channels is the number of power rails reported by the device.
const Channels = 4

// Watts holds one value per channel.
type Watts [Channels]float64

// Total returns the sum over all channels.
func (w Watts) Total() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}

	return sum
}

// Firmware is the device firmware version.
type Firmware struct {
	Major int
	Minor int
}

func (f Firmware) String() string {
	return fmt.Sprintf("%d.%02d", f.Major, f.Minor)
}

// Identity is read once when the device is opened and never changes.
type Identity struct {
	Firmware Firmware
	Serial   int
}

// Snapshot gathers every reading of a Reader at one point in time.
type Snapshot struct {
	Timestamp   time.Time
	Identity    Identity
	Temperature float64
	Frequency   float64
	Voltage     float64
	Wattage     Watts
	WattageAvg  Watts
	WattageMax  Watts
}

// Capture reads every accessor of r. Each field is individually consistent;
// fields may come from different polling iterations.
func Capture(r Reader, at time.Time) Snapshot {
	return Snapshot{
		Timestamp: at,
		Identity: Identity{
			Firmware: r.FirmwareVersion(),
			Serial:   r.SerialNumber(),
		},
		Temperature: r.Temperature(),
		Frequency:   r.Frequency(),
		Voltage:     r.Voltage(),
		Wattage:     r.Wattage(),
		WattageAvg:  r.WattageAvg(),
		WattageMax:  r.WattageMax(),
	}
}
