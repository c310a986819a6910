package device

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/logger"
	"codeberg.org/mutker/fx5204ps/internal/protocol"
	"github.com/google/gousb"
)

// USB is a Transport backed by libusb.
type USB struct {
	timeout time.Duration
	log     logger.Logger

	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   *gousb.InEndpoint
}

// NewUSB returns a USB transport whose control and bulk transfers give up
// after timeout. A zero timeout blocks indefinitely.
func NewUSB(timeout time.Duration) *USB {
	return &USB{
		timeout: timeout,
		log:     logger.With("usb"),
	}
}

func (u *USB) Open(vendor, product uint16) error {
	errFactory := errors.New()

	if u.ctx == nil {
		u.ctx = gousb.NewContext()
	}

	dev, err := u.ctx.OpenDeviceWithVIDPID(gousb.ID(vendor), gousb.ID(product))
	if err != nil {
		return errFactory.Wrap(ErrOpenFailed, err)
	}
	if dev == nil {
		return errFactory.WithData(ErrDeviceNotFound, fmt.Sprintf("%04x:%04x", vendor, product))
	}

	dev.ControlTimeout = u.timeout
	if err := dev.SetAutoDetach(true); err != nil {
		u.log.Debug().Err(err).Msg("Kernel driver auto-detach unavailable")
	}

	u.dev = dev
	u.log.Debug().
		Str("device", dev.String()).
		Msg("Device opened")

	return nil
}

func (u *USB) Claim() error {
	errFactory := errors.New()

	if u.dev == nil {
		return errFactory.New(ErrClosed)
	}

	cfgDesc, ifDesc, alt, ep, err := u.topology()
	if err != nil {
		return err
	}

	cfg, err := u.dev.Config(cfgDesc.Number)
	if err != nil {
		return errFactory.Wrap(ErrClaimFailed, err)
	}
	u.cfg = cfg

	intf, err := cfg.Interface(ifDesc.Number, alt.Alternate)
	if err != nil {
		return errFactory.Wrap(ErrClaimFailed, err)
	}
	u.intf = intf

	in, err := intf.InEndpoint(ep.Number)
	if err != nil {
		return errFactory.Wrap(ErrClaimFailed, err)
	}
	u.in = in

	u.log.Debug().
		Int("config", cfgDesc.Number).
		Int("interface", ifDesc.Number).
		Int("endpoint", ep.Number).
		Msg("Interface claimed")

	return nil
}

// topology requires exactly one configuration, one interface with one
// alternate setting, and one IN endpoint.
func (u *USB) topology() (gousb.ConfigDesc, gousb.InterfaceDesc, gousb.InterfaceSetting, gousb.EndpointDesc, error) {
	var (
		cfgDesc gousb.ConfigDesc
		ifDesc  gousb.InterfaceDesc
		alt     gousb.InterfaceSetting
		ep      gousb.EndpointDesc
	)

	counts := struct {
		Configs     int
		Interfaces  int
		AltSettings int
		InEndpoints int
	}{}

	counts.Configs = len(u.dev.Desc.Configs)
	for _, c := range u.dev.Desc.Configs {
		cfgDesc = c
	}

	if counts.Configs == 1 {
		counts.Interfaces = len(cfgDesc.Interfaces)
	}
	if counts.Interfaces == 1 {
		ifDesc = cfgDesc.Interfaces[0]
		counts.AltSettings = len(ifDesc.AltSettings)
	}
	if counts.AltSettings == 1 {
		alt = ifDesc.AltSettings[0]
		for _, e := range alt.Endpoints {
			if e.Direction == gousb.EndpointDirectionIn {
				ep = e
				counts.InEndpoints++
			}
		}
	}

	if counts.Configs != 1 || counts.Interfaces != 1 || counts.AltSettings != 1 || counts.InEndpoints != 1 {
		return cfgDesc, ifDesc, alt, ep, errors.New().WithData(ErrUnexpectedTopology, counts)
	}

	return cfgDesc, ifDesc, alt, ep, nil
}

func (u *USB) ControlTransfer(req protocol.Request) ([]byte, error) {
	errFactory := errors.New()

	if u.dev == nil {
		return nil, errFactory.New(ErrClosed)
	}

	buf := make([]byte, req.Length)
	n, err := u.dev.Control(protocol.RequestTypeVendorIn, req.Opcode, 0, 0, buf)
	if err != nil {
		return nil, errFactory.Wrap(ErrTransport, fmt.Errorf("%s: %w", req, err))
	}
	if err := responseLength(req, n); err != nil {
		return nil, err
	}

	return buf, nil
}

func (u *USB) BulkRead(p []byte) (int, error) {
	errFactory := errors.New()

	if u.in == nil {
		return 0, errFactory.New(ErrClosed)
	}

	var (
		n   int
		err error
	)
	if u.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
		n, err = u.in.ReadContext(ctx, p)
		cancel()
	} else {
		n, err = u.in.Read(p)
	}
	if err != nil {
		return n, errFactory.Wrap(ErrTransport, err)
	}

	return n, nil
}

// Close releases the endpoint, interface, configuration, device and
// context in that order. It is safe to call more than once.
func (u *USB) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	u.in = nil
	if u.intf != nil {
		u.intf.Close()
		u.intf = nil
	}
	if u.cfg != nil {
		keep(u.cfg.Close())
		u.cfg = nil
	}
	if u.dev != nil {
		keep(u.dev.Close())
		u.dev = nil
	}
	if u.ctx != nil {
		keep(u.ctx.Close())
		u.ctx = nil
	}

	if first != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, first)
	}

	return nil
}
