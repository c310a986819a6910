package device

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/protocol"
)

const (
	simDefaultVoltage     = 100
	simDefaultFrequency   = 50
	simDefaultTemperature = 2500
	simMaxWattage         = 20000
	simWalkStep           = 100
)

var errInjected = fmt.Errorf("injected failure")

// Simulator is an in-process Transport that answers like an FX5204PS. Frames
// queued with QueueFrames are returned in order; once the queue is empty the
// last frame repeats, or drifts randomly if a random walk is enabled.
type Simulator struct {
	mu sync.Mutex

	absent      bool
	vendor      uint16
	product     uint16
	firmware    protocol.Firmware
	serial      int
	voltage     int
	temperature int
	period      uint16

	frames []protocol.Wattage
	last   protocol.Wattage
	rng    *rand.Rand
	pace   time.Duration

	failReads   int
	shortReads  int
	failControl map[uint8]int

	opened   bool
	claimed  bool
	closed   bool
	reads    int
	controls map[uint8]int
}

func NewSimulator() *Simulator {
	return &Simulator{
		vendor:      protocol.VendorFujitsuComponent,
		product:     protocol.ProductFujitsuFX5204PS,
		firmware:    protocol.Firmware{Major: 1, Minor: 0},
		serial:      1,
		voltage:     simDefaultVoltage,
		temperature: simDefaultTemperature,
		period:      protocol.PeriodForFrequency(simDefaultFrequency),
		failControl: make(map[uint8]int),
		controls:    make(map[uint8]int),
	}
}

// SetAbsent makes Open report that no device is attached.
func (s *Simulator) SetAbsent(absent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.absent = absent
}

func (s *Simulator) SetIdentity(fw protocol.Firmware, serial int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.firmware = fw
	s.serial = serial
}

func (s *Simulator) SetVoltage(volts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voltage = volts
}

// SetPeriod sets the raw period counter returned by the frequency request.
// Zero reports no signal.
func (s *Simulator) SetPeriod(period uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = period
}

func (s *Simulator) SetFrequency(hz float64) {
	s.SetPeriod(protocol.PeriodForFrequency(hz))
}

func (s *Simulator) SetTemperature(hundredths int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = hundredths
}

// QueueFrames appends wattage frames, in hundredths of a watt.
func (s *Simulator) QueueFrames(frames ...protocol.Wattage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frames...)
}

// SetRandomWalk makes the simulator drift around base once the queue is
// drained.
func (s *Simulator) SetRandomWalk(seed int64, base protocol.Wattage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewSource(seed))
	s.last = base
}

// SetPace delays every BulkRead, standing in for the device's sample rate.
func (s *Simulator) SetPace(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pace = d
}

// FailReads makes the next n BulkRead calls fail.
func (s *Simulator) FailReads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = n
}

// ShortReads makes the next n BulkRead calls return a truncated frame.
func (s *Simulator) ShortReads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortReads = n
}

// FailControl makes the next n control requests with opcode fail.
func (s *Simulator) FailControl(opcode uint8, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failControl[opcode] = n
}

func (s *Simulator) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *Simulator) Controls(opcode uint8) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls[opcode]
}

func (s *Simulator) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Simulator) Open(vendor, product uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.absent || vendor != s.vendor || product != s.product {
		return errors.New().WithData(ErrDeviceNotFound, fmt.Sprintf("%04x:%04x", vendor, product))
	}
	s.opened = true
	s.closed = false

	return nil
}

func (s *Simulator) Claim() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened || s.closed {
		return errors.New().New(ErrClosed)
	}
	s.claimed = true

	return nil
}

func (s *Simulator) ControlTransfer(req protocol.Request) ([]byte, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened || s.closed {
		return nil, errFactory.New(ErrClosed)
	}

	s.controls[req.Opcode]++
	if s.failControl[req.Opcode] > 0 {
		s.failControl[req.Opcode]--
		return nil, errFactory.Wrap(ErrTransport, fmt.Errorf("%s: %w", req, errInjected))
	}

	var b []byte
	switch req.Opcode {
	case protocol.CmdGetFirmware:
		fw := protocol.EncodeFirmware(s.firmware)
		b = fw[:]
	case protocol.CmdGetSerial:
		sn := protocol.EncodeSerial(s.serial)
		b = sn[:]
	case protocol.CmdGetVoltage:
		b = []byte{byte(s.voltage)}
	case protocol.CmdGetTemp:
		t := protocol.EncodeTemperature(s.temperature)
		b = t[:]
	case protocol.CmdGetFreq:
		f := protocol.EncodeFrequency(s.period)
		b = f[:]
	default:
		return nil, errFactory.WithData(ErrTransport, fmt.Sprintf("unsupported request %s", req))
	}

	if err := responseLength(req, len(b)); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Simulator) BulkRead(p []byte) (int, error) {
	errFactory := errors.New()

	s.mu.Lock()
	pace := s.pace
	s.mu.Unlock()

	if pace > 0 {
		time.Sleep(pace)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.claimed || s.closed {
		return 0, errFactory.New(ErrClosed)
	}

	s.reads++
	if s.failReads > 0 {
		s.failReads--
		return 0, errFactory.Wrap(ErrTransport, errInjected)
	}

	frame := protocol.EncodeWattage(s.next())
	n := copy(p, frame[:])
	if s.shortReads > 0 {
		s.shortReads--
		n = min(n, protocol.FrameLength/2)
	}

	return n, nil
}

func (s *Simulator) next() protocol.Wattage {
	if len(s.frames) > 0 {
		s.last = s.frames[0]
		s.frames = s.frames[1:]
		return s.last
	}

	if s.rng != nil {
		for i, v := range s.last {
			w := int(v) + s.rng.Intn(2*simWalkStep+1) - simWalkStep
			s.last[i] = uint16(max(0, min(w, simMaxWattage)))
		}
	}

	return s.last
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.claimed = false
	s.opened = false

	return nil
}
