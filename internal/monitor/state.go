package monitor

import (
	"time"

	"codeberg.org/mutker/fx5204ps/internal/protocol"
)

// channelReading holds one rail in hundredths of a watt.
type channelReading struct {
	instant uint16
	average uint16
	maximum uint16
}

type systemTelemetry struct {
	temperature int    // hundredths of a degree Celsius
	frequency   uint64 // micro-hertz
	voltage     int    // volts
}

// driverState is shared between the polling loop and readers and is only
// accessed with Monitor.mu held.
type driverState struct {
	channels    [protocol.Channels]channelReading
	system      systemTelemetry
	sampleCount uint64
	lastSumup   time.Time
}

// fold merges one frame. The first frame after a reset seeds both the
// average and the maximum; later frames only raise the maximum.
func (s *driverState) fold(w protocol.Wattage) {
	bootstrap := s.sampleCount == 0
	for i, v := range w {
		c := &s.channels[i]
		c.instant = v
		switch {
		case bootstrap:
			c.average = v
			c.maximum = v
		case v > c.maximum:
			c.maximum = v
		}
	}
	s.sampleCount++
}

// refreshAverages treats the stored average as the mean of sampleCount
// samples, folds the current instant in as one more, and starts a new
// window.
func (s *driverState) refreshAverages() {
	n := s.sampleCount
	for i := range s.channels {
		c := &s.channels[i]
		c.average = uint16((uint64(c.instant) + uint64(c.average)*n) / (n + 1))
	}
	s.sampleCount = 0
}

// systemUpdate carries the refresh-time readings that were read
// successfully. Fields whose request failed keep their previous value.
type systemUpdate struct {
	frequency      uint64
	hasFrequency   bool
	voltage        int
	hasVoltage     bool
	temperature    int
	hasTemperature bool
}

func (u systemUpdate) apply(s *systemTelemetry) {
	if u.hasFrequency {
		s.frequency = u.frequency
	}
	if u.hasVoltage {
		s.voltage = u.voltage
	}
	if u.hasTemperature {
		s.temperature = u.temperature
	}
}
