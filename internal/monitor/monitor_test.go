package monitor_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/fx5204ps/internal/device"
	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/monitor"
	"codeberg.org/mutker/fx5204ps/internal/protocol"
	"codeberg.org/mutker/fx5204ps/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() monitor.Config {
	cfg := monitor.DefaultConfig()
	cfg.Interval = 20 * time.Millisecond
	cfg.RetryInitial = time.Millisecond
	cfg.RetryMax = 5 * time.Millisecond

	return cfg
}

func newSimulator() *device.Simulator {
	sim := device.NewSimulator()
	sim.SetIdentity(protocol.Firmware{Major: 1, Minor: 23}, 123456)
	sim.SetPace(100 * time.Microsecond)

	return sim
}

func newMonitor(t *testing.T, sim *device.Simulator) *monitor.Monitor {
	t.Helper()

	m, err := monitor.New(sim, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	return m
}

func TestNewReadsIdentity(t *testing.T) {
	sim := newSimulator()
	m := newMonitor(t, sim)

	assert.Equal(t, telemetry.Firmware{Major: 1, Minor: 23}, m.FirmwareVersion())
	assert.Equal(t, 123456, m.SerialNumber())
	assert.Equal(t, telemetry.Identity{Firmware: telemetry.Firmware{Major: 1, Minor: 23}, Serial: 123456}, m.Identity())
	assert.Equal(t, 1, sim.Controls(protocol.CmdGetFirmware))
	assert.Equal(t, 1, sim.Controls(protocol.CmdGetSerial))
}

func TestNewDeviceNotFound(t *testing.T) {
	sim := newSimulator()
	sim.SetAbsent(true)

	m, err := monitor.New(sim, testConfig())
	require.Error(t, err)
	assert.Nil(t, m)
	assert.True(t, errors.HasCode(err, device.ErrDeviceNotFound))
	assert.True(t, sim.Closed())
}

func TestNewIdentityFailure(t *testing.T) {
	sim := newSimulator()
	sim.FailControl(protocol.CmdGetSerial, 1)

	_, err := monitor.New(sim, testConfig())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, monitor.ErrIdentityFailed))
	assert.True(t, errors.HasCode(err, device.ErrTransport))
	assert.True(t, sim.Closed())
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Interval = 0

	_, err := monitor.New(newSimulator(), cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval))

	cfg = testConfig()
	cfg.RetryMax = cfg.RetryInitial / 2
	_, err = monitor.New(newSimulator(), cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestAccessorsBeforeStart(t *testing.T) {
	m := newMonitor(t, newSimulator())

	assert.Equal(t, telemetry.Watts{}, m.Wattage())
	assert.Equal(t, telemetry.Watts{}, m.WattageAvg())
	assert.Equal(t, telemetry.Watts{}, m.WattageMax())
	assert.Zero(t, m.Voltage())
	assert.Zero(t, m.Frequency())
	assert.Zero(t, m.Temperature())
}

func TestLifecycle(t *testing.T) {
	m := newMonitor(t, newSimulator())

	err := m.Stop()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, monitor.ErrInvalidState))

	require.NoError(t, m.Start())

	err = m.Start()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, monitor.ErrInvalidState))

	require.NoError(t, m.Stop())

	err = m.Stop()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, monitor.ErrInvalidState))

	err = m.Start()
	require.Error(t, err, "a stopped monitor cannot be restarted")
}

func TestPollingUpdatesReadings(t *testing.T) {
	sim := newSimulator()
	sim.SetVoltage(100)
	sim.SetFrequency(50)
	sim.QueueFrames(protocol.Wattage{100, 200, 300, 400})

	m := newMonitor(t, sim)
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		return m.Wattage() == telemetry.Watts{1, 2, 3, 4}
	}, time.Second, time.Millisecond)
	require.NoError(t, m.Stop())

	assert.Equal(t, telemetry.Watts{1, 2, 3, 4}, m.WattageAvg())
	assert.Equal(t, telemetry.Watts{1, 2, 3, 4}, m.WattageMax())
	assert.Equal(t, 100.0, m.Voltage())
	assert.InDelta(t, 50.0, m.Frequency(), 1e-6)
}

func TestStopWaitsForLoopExit(t *testing.T) {
	sim := newSimulator()
	m := newMonitor(t, sim)

	require.NoError(t, m.Start())
	require.Eventually(t, func() bool { return sim.Reads() > 10 }, time.Second, time.Millisecond)
	require.NoError(t, m.Stop())

	reads := sim.Reads()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, reads, sim.Reads(), "no reads after Stop returns")
}

func TestStopFromAnotherGoroutine(t *testing.T) {
	m := newMonitor(t, newSimulator())
	require.NoError(t, m.Start())

	errc := make(chan error, 1)
	go func() { errc <- m.Stop() }()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestTransientFailuresDoNotStopPolling(t *testing.T) {
	sim := newSimulator()
	sim.QueueFrames(protocol.Wattage{500, 500, 500, 500})
	sim.FailReads(5)

	m := newMonitor(t, sim)
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		return m.Wattage() == telemetry.Watts{5, 5, 5, 5}
	}, 2*time.Second, time.Millisecond)
	assert.Greater(t, sim.Reads(), 5)
	require.NoError(t, m.Stop())
}

func TestStopInterruptsBackoff(t *testing.T) {
	sim := newSimulator()
	sim.FailReads(1 << 30)

	cfg := testConfig()
	cfg.RetryInitial = time.Hour
	cfg.RetryMax = time.Hour
	m, err := monitor.New(sim, cfg)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Start())
	require.Eventually(t, func() bool { return sim.Reads() >= 1 }, time.Second, time.Millisecond)

	start := time.Now()
	require.NoError(t, m.Stop())
	assert.Less(t, time.Since(start), time.Second)
}

func TestReadersNeverSeeTornFrames(t *testing.T) {
	sim := newSimulator()
	sim.SetPace(0)
	frames := make([]protocol.Wattage, 5000)
	for i := range frames {
		v := uint16(i + 1)
		frames[i] = protocol.Wattage{v, v, v, v}
	}
	sim.QueueFrames(frames...)

	m := newMonitor(t, sim)
	require.NoError(t, m.Start())

	var (
		wg   sync.WaitGroup
		torn atomic.Int64
		done = make(chan struct{})
	)
	uniform := func(w telemetry.Watts) bool {
		return w[0] == w[1] && w[1] == w[2] && w[2] == w[3]
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, w := range []telemetry.Watts{m.Wattage(), m.WattageAvg(), m.WattageMax()} {
					if !uniform(w) {
						torn.Add(1)
					}
				}
			}
		}()
	}

	require.Eventually(t, func() bool { return sim.Reads() >= len(frames) }, 5*time.Second, time.Millisecond)
	close(done)
	wg.Wait()
	require.NoError(t, m.Stop())

	assert.Zero(t, torn.Load())
}

func TestCloseStopsAndReleases(t *testing.T) {
	sim := newSimulator()
	m, err := monitor.New(sim, testConfig())
	require.NoError(t, err)

	require.NoError(t, m.Start())
	require.NoError(t, m.Close())
	assert.True(t, sim.Closed())

	reads := sim.Reads()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, reads, sim.Reads())

	require.NoError(t, m.Close(), "Close is idempotent")
	assert.Error(t, m.Start())
}
