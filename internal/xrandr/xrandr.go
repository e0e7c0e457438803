// SPDX-License-Identifier: GPL-3.0-only

// Package xrandr implements gamma.Device on an X11 connection using the RandR
// extension.
package xrandr

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/rs/zerolog/log"

	"github.com/shini4i/ksct/internal/gamma"
)

// errNoReply is returned when the connection closed before a reply arrived.
var errNoReply = errors.New("no reply from X server")

// Device wraps an X11 connection to implement the gamma.Device interface.
type Device struct {
	conn  *xgb.Conn
	roots []xproto.Window
}

// Verify Device implements gamma.Device interface.
var _ gamma.Device = (*Device)(nil)

// Open connects to the named X display (empty for $DISPLAY) and initializes
// RandR. Every screen root is captured once; screens are fixed for the
// lifetime of an X connection.
func Open(display string) (*Device, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to open X display %q: %w", display, err)
	}

	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize RandR: %w", err)
	}

	setup := xproto.Setup(conn)
	roots := make([]xproto.Window, len(setup.Roots))
	for i, screen := range setup.Roots {
		roots[i] = screen.Root
	}

	log.Debug().Str("display", display).Int("screens", len(roots)).Msg("Connected to X server")
	return &Device{conn: conn, roots: roots}, nil
}

// ScreenCount returns the number of screens of the display.
func (d *Device) ScreenCount() int {
	return len(d.roots)
}

// ListCrtcs returns the CRTCs of a screen.
func (d *Device) ListCrtcs(screen int) ([]gamma.CrtcID, error) {
	if screen < 0 || screen >= len(d.roots) {
		return nil, fmt.Errorf("%w: %d", gamma.ErrInvalidScreen, screen)
	}

	resources, err := randr.GetScreenResourcesCurrent(d.conn, d.roots[screen]).Reply()
	if err != nil {
		return nil, &gamma.DeviceError{Op: "get screen resources", Err: err}
	}
	if resources == nil {
		return nil, &gamma.DeviceError{Op: "get screen resources", Err: errNoReply}
	}

	crtcs := make([]gamma.CrtcID, len(resources.Crtcs))
	for i, crtc := range resources.Crtcs {
		crtcs[i] = gamma.CrtcID(crtc)
	}
	return crtcs, nil
}

// RampSize returns the gamma ramp size of a CRTC.
func (d *Device) RampSize(crtc gamma.CrtcID) (int, error) {
	reply, err := randr.GetCrtcGammaSize(d.conn, randr.Crtc(crtc)).Reply()
	if err != nil {
		return 0, &gamma.DeviceError{Op: "get crtc gamma size", Crtc: crtc, Err: err}
	}
	if reply == nil {
		return 0, &gamma.DeviceError{Op: "get crtc gamma size", Crtc: crtc, Err: errNoReply}
	}
	return int(reply.Size), nil
}

// ReadRamp returns the current gamma ramp of a CRTC.
func (d *Device) ReadRamp(crtc gamma.CrtcID) (gamma.Ramp, error) {
	reply, err := randr.GetCrtcGamma(d.conn, randr.Crtc(crtc)).Reply()
	if err != nil {
		return gamma.Ramp{}, &gamma.DeviceError{Op: "get crtc gamma", Crtc: crtc, Err: err}
	}
	if reply == nil {
		return gamma.Ramp{}, &gamma.DeviceError{Op: "get crtc gamma", Crtc: crtc, Err: errNoReply}
	}
	return gamma.Ramp{Red: reply.Red, Green: reply.Green, Blue: reply.Blue}, nil
}

// WriteRamp replaces the gamma ramp of a CRTC and waits for the server to
// acknowledge it.
func (d *Device) WriteRamp(crtc gamma.CrtcID, ramp gamma.Ramp) error {
	size := ramp.Size()
	if size > 0xffff || len(ramp.Green) != size || len(ramp.Blue) != size {
		return &gamma.DeviceError{Op: "set crtc gamma", Crtc: crtc, Err: fmt.Errorf("invalid ramp size %d", size)}
	}

	err := randr.SetCrtcGammaChecked(d.conn, randr.Crtc(crtc), uint16(size), ramp.Red, ramp.Green, ramp.Blue).Check()
	if err != nil {
		return &gamma.DeviceError{Op: "set crtc gamma", Crtc: crtc, Err: err}
	}
	return nil
}

// Close closes the X connection.
func (d *Device) Close() error {
	d.conn.Close()
	return nil
}
