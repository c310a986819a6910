package monitor

import (
	"testing"

	"codeberg.org/mutker/fx5204ps/internal/protocol"
	"github.com/stretchr/testify/assert"
)

func channel(s *driverState, i int) channelReading {
	return s.channels[i]
}

func TestFoldBootstrap(t *testing.T) {
	var s driverState

	s.fold(protocol.Wattage{100, 200, 300, 400})

	for i, want := range []uint16{100, 200, 300, 400} {
		c := channel(&s, i)
		assert.Equal(t, want, c.instant)
		assert.Equal(t, want, c.average)
		assert.Equal(t, want, c.maximum)
	}
	assert.Equal(t, uint64(1), s.sampleCount)
}

func TestFoldMaximumIsMonotonic(t *testing.T) {
	var s driverState
	frames := []protocol.Wattage{
		{500, 10, 0, 65535},
		{400, 20, 0, 1},
		{600, 5, 7, 2},
		{100, 30, 3, 65535},
	}

	prevMax := [protocol.Channels]uint16{}
	for n, f := range frames {
		s.fold(f)
		for i := range s.channels {
			c := channel(&s, i)
			assert.GreaterOrEqual(t, c.maximum, c.instant, "frame %d channel %d", n, i)
			assert.GreaterOrEqual(t, c.maximum, prevMax[i], "frame %d channel %d", n, i)
			prevMax[i] = c.maximum
		}
	}

	assert.Equal(t, [protocol.Channels]uint16{600, 30, 7, 65535}, prevMax)
	// averages only move at refresh boundaries
	assert.Equal(t, uint16(500), channel(&s, 0).average)
	assert.Equal(t, uint64(len(frames)), s.sampleCount)
}

func TestRefreshAverages(t *testing.T) {
	var s driverState

	// A=100 over N=3 samples with X=200 gives (200+300)/4.
	s.fold(protocol.Wattage{100, 100, 100, 100})
	s.fold(protocol.Wattage{150, 150, 150, 150})
	s.fold(protocol.Wattage{200, 200, 200, 200})
	assert.Equal(t, uint64(3), s.sampleCount)

	s.refreshAverages()

	for i := range s.channels {
		c := channel(&s, i)
		assert.Equal(t, uint16(125), c.average)
		assert.Equal(t, uint16(200), c.maximum)
		assert.GreaterOrEqual(t, c.maximum, c.average)
	}
	assert.Zero(t, s.sampleCount)
}

func TestRefreshAveragesIntegerDivision(t *testing.T) {
	var s driverState

	s.fold(protocol.Wattage{1, 0, 65535, 7})
	s.fold(protocol.Wattage{2, 1, 65535, 8})
	s.refreshAverages()

	// (instant + avg*2) / 3
	assert.Equal(t, uint16((2+1*2)/3), channel(&s, 0).average)
	assert.Equal(t, uint16((1+0*2)/3), channel(&s, 1).average)
	assert.Equal(t, uint16(65535), channel(&s, 2).average)
	assert.Equal(t, uint16((8+7*2)/3), channel(&s, 3).average)
}

func TestResetRetriggersBootstrap(t *testing.T) {
	var s driverState

	s.fold(protocol.Wattage{900, 900, 900, 900})
	s.fold(protocol.Wattage{100, 100, 100, 100})
	s.refreshAverages()
	assert.Zero(t, s.sampleCount)

	s.fold(protocol.Wattage{50, 60, 70, 80})
	for i, want := range []uint16{50, 60, 70, 80} {
		c := channel(&s, i)
		assert.Equal(t, want, c.average, "channel %d", i)
		assert.Equal(t, want, c.maximum, "channel %d", i)
	}
}

func TestSystemUpdateApply(t *testing.T) {
	sys := systemTelemetry{temperature: 2500, frequency: 50_000_000, voltage: 100}

	systemUpdate{voltage: 101, hasVoltage: true}.apply(&sys)
	assert.Equal(t, systemTelemetry{temperature: 2500, frequency: 50_000_000, voltage: 101}, sys)

	systemUpdate{
		frequency: 60_000_000, hasFrequency: true,
		temperature: 3000, hasTemperature: true,
	}.apply(&sys)
	assert.Equal(t, systemTelemetry{temperature: 3000, frequency: 60_000_000, voltage: 101}, sys)
}
