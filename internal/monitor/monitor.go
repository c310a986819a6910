// Package monitor drives an FX5204PS: it owns the device, polls it from a
// background goroutine and serves consistent readings to any number of
// concurrent readers.
package monitor

import (
	"sync"
	"time"

	"codeberg.org/mutker/fx5204ps/internal/device"
	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/logger"
	"codeberg.org/mutker/fx5204ps/internal/protocol"
	"codeberg.org/mutker/fx5204ps/internal/telemetry"
)

var _ telemetry.Controller = (*Monitor)(nil)

type lifecycle int

const (
	created lifecycle = iota
	running
	stopped
)

func (l lifecycle) String() string {
	switch l {
	case created:
		return "created"
	case running:
		return "running"
	default:
		return "stopped"
	}
}

type Monitor struct {
	transport device.Transport
	identity  telemetry.Identity
	cfg       Config
	now       func() time.Time
	log       logger.Logger

	mu    sync.Mutex
	state driverState

	lifeMu sync.Mutex
	life   lifecycle
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

type Option func(*Monitor)

// WithClock replaces time.Now as the source of refresh timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// New opens and claims the device on tr and reads its identity. On failure
// the transport is closed and the error keeps its device code, so callers
// can test for device.ErrDeviceNotFound.
func New(tr device.Transport, cfg Config, opts ...Option) (*Monitor, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	m := &Monitor{
		transport: tr,
		cfg:       cfg,
		now:       time.Now,
		log:       logger.With("monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.initialize(); err != nil {
		if cerr := tr.Close(); cerr != nil {
			m.log.Debug().Err(cerr).Msg("Failed to close transport after init error")
		}
		return nil, err
	}

	return m, nil
}

func (m *Monitor) initialize() error {
	errFactory := errors.New()

	if err := m.transport.Open(protocol.VendorFujitsuComponent, protocol.ProductFujitsuFX5204PS); err != nil {
		return err
	}
	if err := m.transport.Claim(); err != nil {
		return err
	}

	b, err := m.request(protocol.FirmwareRequest)
	if err != nil {
		return errFactory.Wrap(ErrIdentityFailed, err)
	}
	m.identity.Firmware = telemetry.Firmware(protocol.DecodeFirmware([2]byte(b)))

	b, err = m.request(protocol.SerialRequest)
	if err != nil {
		return errFactory.Wrap(ErrIdentityFailed, err)
	}
	m.identity.Serial = protocol.DecodeSerial([3]byte(b))

	m.log.Info().
		Str("firmware", m.identity.Firmware.String()).
		Int("serial", m.identity.Serial).
		Msg("Detected FX5204PS")

	return nil
}

// request issues a control request and enforces its response length.
func (m *Monitor) request(req protocol.Request) ([]byte, error) {
	b, err := m.transport.ControlTransfer(req)
	if err != nil {
		return nil, err
	}
	if len(b) != req.Length {
		return nil, errors.New().WithData(device.ErrMalformedResponse, struct {
			Request string
			Want    int
			Got     int
		}{
			Request: req.String(),
			Want:    req.Length,
			Got:     len(b),
		})
	}

	return b, nil
}

// Start launches the polling goroutine. It may be called once.
func (m *Monitor) Start() error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.life != created || m.closed {
		return errors.New().WithData(ErrInvalidState, "start while "+m.life.String())
	}

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.life = running
	go m.run(m.stop, m.done)

	return nil
}

// Stop asks the polling goroutine to exit at its next iteration and waits
// until it has. An in-flight transfer is allowed to finish or time out.
func (m *Monitor) Stop() error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.life != running {
		return errors.New().WithData(ErrInvalidState, "stop while "+m.life.String())
	}
	m.halt()

	return nil
}

func (m *Monitor) halt() {
	close(m.stop)
	<-m.done
	m.life = stopped
}

// Close stops polling if needed and releases the device. Readings remain
// available afterwards.
func (m *Monitor) Close() error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.life == running {
		m.halt()
	}
	m.life = stopped

	if m.closed {
		return nil
	}
	m.closed = true

	if err := m.transport.Close(); err != nil {
		return errors.New().Wrap(ErrCloseFailed, err)
	}

	return nil
}

func (m *Monitor) Identity() telemetry.Identity {
	return m.identity
}

func (m *Monitor) FirmwareVersion() telemetry.Firmware {
	return m.identity.Firmware
}

func (m *Monitor) SerialNumber() int {
	return m.identity.Serial
}

func (m *Monitor) Temperature() float64 {
	m.mu.Lock()
	t := m.state.system.temperature
	m.mu.Unlock()

	return float64(t) / protocol.TemperatureScale
}

func (m *Monitor) Frequency() float64 {
	m.mu.Lock()
	f := m.state.system.frequency
	m.mu.Unlock()

	return float64(f) / protocol.FrequencyScale
}

func (m *Monitor) Voltage() float64 {
	m.mu.Lock()
	v := m.state.system.voltage
	m.mu.Unlock()

	return float64(v)
}

func (m *Monitor) Wattage() telemetry.Watts {
	return m.watts(func(c channelReading) uint16 { return c.instant })
}

func (m *Monitor) WattageAvg() telemetry.Watts {
	return m.watts(func(c channelReading) uint16 { return c.average })
}

func (m *Monitor) WattageMax() telemetry.Watts {
	return m.watts(func(c channelReading) uint16 { return c.maximum })
}

func (m *Monitor) watts(field func(channelReading) uint16) telemetry.Watts {
	m.mu.Lock()
	channels := m.state.channels
	m.mu.Unlock()

	var w telemetry.Watts
	for i, c := range channels {
		w[i] = float64(field(c)) / protocol.WattScale
	}

	return w
}
