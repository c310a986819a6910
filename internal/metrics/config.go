package metrics

import (
	"strings"

	"codeberg.org/mutker/fx5204ps/internal/errors"
)

const (
	defaultAddress = ":9524"
	defaultPath    = "/metrics"
)

type Config struct {
	Enabled bool
	Address string
	Path    string
	// Temperature exports the temperature gauge. It should follow the
	// monitor's temperature polling.
	Temperature bool
}

func DefaultConfig() Config {
	return Config{
		Address: defaultAddress,
		Path:    defaultPath,
		Enabled: false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the endpoint if metrics is enabled
	if !c.Enabled {
		return nil
	}
	if c.Address == "" {
		return errFactory.WithData(ErrInvalidAddress, c.Address)
	}
	if !strings.HasPrefix(c.Path, "/") || c.Path == "/" || c.Path == healthPath {
		return errFactory.WithData(ErrInvalidPath, c.Path)
	}

	return nil
}
