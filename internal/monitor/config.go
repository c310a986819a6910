package monitor

import (
	"time"

	"codeberg.org/mutker/fx5204ps/internal/errors"
)

const (
	defaultInterval     = 5 * time.Second
	defaultRetryInitial = 100 * time.Millisecond
	defaultRetryMax     = 5 * time.Second
)

type Config struct {
	// Interval is how often averages, frequency and voltage are refreshed.
	Interval time.Duration
	// RetryInitial and RetryMax bound the wait after consecutive failed
	// polls.
	RetryInitial time.Duration
	RetryMax     time.Duration
	// Temperature enables the temperature request at each refresh.
	Temperature bool
}

func DefaultConfig() Config {
	return Config{
		Interval:     defaultInterval,
		RetryInitial: defaultRetryInitial,
		RetryMax:     defaultRetryMax,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.RetryInitial <= 0 || c.RetryMax < c.RetryInitial {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			RetryInitial time.Duration
			RetryMax     time.Duration
		}{
			RetryInitial: c.RetryInitial,
			RetryMax:     c.RetryMax,
		})
	}

	return nil
}
