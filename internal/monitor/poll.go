package monitor

import (
	"time"

	"codeberg.org/mutker/fx5204ps/internal/device"
	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/protocol"
	"github.com/cenkalti/backoff/v4"
)

func (m *Monitor) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	retry := m.newBackOff()
	m.log.Debug().Dur("interval", m.cfg.Interval).Msg("Polling started")

	for {
		select {
		case <-stop:
			m.log.Debug().Msg("Polling stopped")
			return
		default:
		}

		if err := m.poll(m.now()); err != nil {
			m.logFailure(err, "Wattage poll failed")
			if !sleep(stop, retry.NextBackOff()) {
				m.log.Debug().Msg("Polling stopped")
				return
			}
			continue
		}
		retry.Reset()
	}
}

// poll runs one iteration: fold a wattage frame and, once the interval has
// elapsed since the last refresh, refresh averages and line readings. A
// failed frame read leaves the shared state untouched.
func (m *Monitor) poll(now time.Time) error {
	w, err := m.readWattage()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.fold(w)
	due := now.Sub(m.state.lastSumup) > m.cfg.Interval
	m.mu.Unlock()

	if due {
		m.sumUp(now)
	}

	return nil
}

func (m *Monitor) readWattage() (protocol.Wattage, error) {
	var frame [protocol.FrameLength]byte

	n, err := m.transport.BulkRead(frame[:])
	if err != nil {
		return protocol.Wattage{}, err
	}
	if n != protocol.FrameLength {
		return protocol.Wattage{}, errors.New().WithData(device.ErrMalformedResponse, struct {
			Request string
			Want    int
			Got     int
		}{
			Request: "wattage",
			Want:    protocol.FrameLength,
			Got:     n,
		})
	}

	return protocol.DecodeWattage(frame), nil
}

// sumUp performs the refresh-time requests without the lock held, then
// applies averages and readings in one batch.
func (m *Monitor) sumUp(now time.Time) {
	update := m.readSystem()

	m.mu.Lock()
	m.state.refreshAverages()
	update.apply(&m.state.system)
	m.state.lastSumup = now
	m.mu.Unlock()
}

func (m *Monitor) readSystem() systemUpdate {
	var u systemUpdate

	if b, err := m.request(protocol.FrequencyRequest); err != nil {
		m.logFailure(err, "Frequency request failed")
	} else {
		u.frequency = protocol.DecodeFrequency([8]byte(b))
		u.hasFrequency = true
	}

	if b, err := m.request(protocol.VoltageRequest); err != nil {
		m.logFailure(err, "Voltage request failed")
	} else {
		u.voltage = protocol.DecodeVoltage(b[0])
		u.hasVoltage = true
	}

	if m.cfg.Temperature {
		if b, err := m.request(protocol.TemperatureRequest); err != nil {
			m.logFailure(err, "Temperature request failed")
		} else {
			u.temperature = protocol.DecodeTemperature([2]byte(b))
			u.hasTemperature = true
		}
	}

	return u
}

func (m *Monitor) logFailure(err error, msg string) {
	var coded errors.Error
	if !errors.As(err, &coded) {
		m.log.Warn().Err(err).Msg(msg)
		return
	}

	// A malformed response means the device broke its fixed transfer sizes.
	if errors.HasCode(err, device.ErrMalformedResponse) {
		m.log.ErrorWithCode(coded).Msg(msg)
		return
	}

	m.log.Warn().
		Str("error_code", string(coded.Code())).
		Err(err).
		Msg(msg)
}

func (m *Monitor) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.RetryInitial
	b.MaxInterval = m.cfg.RetryMax
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

// sleep waits for d or until stop is closed, reporting whether the wait
// completed.
func sleep(stop <-chan struct{}, d time.Duration) bool {
	if d == backoff.Stop {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}
