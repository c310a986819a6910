package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/fx5204ps/internal/config"
	"codeberg.org/mutker/fx5204ps/internal/device"
	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/logger"
	"codeberg.org/mutker/fx5204ps/internal/metrics"
	"codeberg.org/mutker/fx5204ps/internal/monitor"
	"codeberg.org/mutker/fx5204ps/internal/pid"
	"codeberg.org/mutker/fx5204ps/internal/protocol"
	"codeberg.org/mutker/fx5204ps/internal/telemetry"
)

const (
	shutdownTimeout = 5 * time.Second
	simulatorPace   = 100 * time.Millisecond
	simulatorSeed   = 5204
)

var simulatorBase = protocol.Wattage{1200, 4500, 0, 800}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		Level:     cfg.GetLogLevel(),
		IsService: logger.IsService(),
		File:      cfg.GetLogFile(),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	code := 0
	if err := run(ctx, cfg); err != nil {
		logError(err, "Exiting with error")
		code = 1
	}
	logger.Info().Msg("Exiting...")
	logger.Close()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := pid.Write(""); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(""); err != nil {
			logError(err, "Failed to remove pid file")
		}
	}()

	mon, err := monitor.New(newTransport(cfg), monitor.Config{
		Interval:     cfg.GetInterval(),
		RetryInitial: cfg.GetRetryInitial(),
		RetryMax:     cfg.GetRetryMax(),
		Temperature:  cfg.IsTemperatureEnabled(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mon.Close(); err != nil {
			logError(err, "Failed to release device")
		}
	}()

	exporter, err := metrics.NewService(metrics.Config{
		Enabled:     cfg.IsMetricsEnabled(),
		Address:     cfg.GetMetricsAddress(),
		Path:        cfg.GetMetricsPath(),
		Temperature: cfg.IsTemperatureEnabled(),
	}, mon)
	if err != nil {
		return err
	}

	if err := mon.Start(); err != nil {
		return err
	}
	if err := exporter.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := exporter.Close(shutdownCtx); err != nil {
			logError(err, "Failed to stop metrics server")
		}
	}()

	loop(ctx, cfg, mon)

	return mon.Stop()
}

func newTransport(cfg *config.Config) device.Transport {
	if !cfg.IsSimulated() {
		return device.NewUSB(cfg.GetReadTimeout())
	}

	logger.Info().Msg("Using simulated device")
	sim := device.NewSimulator()
	sim.SetRandomWalk(simulatorSeed, simulatorBase)
	sim.SetPace(simulatorPace)

	return sim
}

// loop blocks until ctx is cancelled, logging readings in monitor mode.
func loop(ctx context.Context, cfg *config.Config, r telemetry.Reader) {
	if !cfg.IsMonitorMode() {
		<-ctx.Done()
		return
	}

	logger.Info().Msg("Monitor mode activated. Logging readings...")

	ticker := time.NewTicker(cfg.GetReportInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			logSnapshot(telemetry.Capture(r, now), cfg.IsTemperatureEnabled())
		}
	}
}

func logSnapshot(s telemetry.Snapshot, temperature bool) {
	e := logger.Info().
		Floats64("watts", s.Wattage[:]).
		Floats64("avg", s.WattageAvg[:]).
		Floats64("max", s.WattageMax[:]).
		Float64("total", s.Wattage.Total()).
		Float64("volts", s.Voltage).
		Float64("hz", s.Frequency)
	if temperature {
		e = e.Float64("celsius", s.Temperature)
	}
	e.Msg("Readings")
}

func logError(err error, msg string) {
	var coded errors.Error
	if errors.As(err, &coded) {
		logger.ErrorWithCode(coded).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
