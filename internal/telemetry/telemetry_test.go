package telemetry_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/fx5204ps/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

type fixedReader struct{}

func (fixedReader) FirmwareVersion() telemetry.Firmware { return telemetry.Firmware{Major: 1, Minor: 5} }
func (fixedReader) SerialNumber() int                   { return 123456 }
func (fixedReader) Temperature() float64                { return 25.5 }
func (fixedReader) Frequency() float64                  { return 50 }
func (fixedReader) Voltage() float64                    { return 100 }
func (fixedReader) Wattage() telemetry.Watts            { return telemetry.Watts{1, 2, 3, 4} }
func (fixedReader) WattageAvg() telemetry.Watts         { return telemetry.Watts{0.5, 1.5, 2.5, 3.5} }
func (fixedReader) WattageMax() telemetry.Watts         { return telemetry.Watts{2, 3, 4, 5} }

func TestCapture(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := telemetry.Capture(fixedReader{}, at)

	assert.Equal(t, at, snap.Timestamp)
	assert.Equal(t, telemetry.Identity{Firmware: telemetry.Firmware{Major: 1, Minor: 5}, Serial: 123456}, snap.Identity)
	assert.Equal(t, 25.5, snap.Temperature)
	assert.Equal(t, 50.0, snap.Frequency)
	assert.Equal(t, 100.0, snap.Voltage)
	assert.Equal(t, telemetry.Watts{1, 2, 3, 4}, snap.Wattage)
	assert.Equal(t, telemetry.Watts{0.5, 1.5, 2.5, 3.5}, snap.WattageAvg)
	assert.Equal(t, telemetry.Watts{2, 3, 4, 5}, snap.WattageMax)
}

func TestFirmwareString(t *testing.T) {
	assert.Equal(t, "1.23", telemetry.Firmware{Major: 1, Minor: 23}.String())
	assert.Equal(t, "2.05", telemetry.Firmware{Major: 2, Minor: 5}.String())
}

func TestWattsTotal(t *testing.T) {
	assert.InDelta(t, 10.0, telemetry.Watts{1, 2, 3, 4}.Total(), 1e-9)
	assert.Zero(t, telemetry.Watts{}.Total())
}
