// SPDX-License-Identifier: GPL-3.0-only

// Package gamma reads and writes CRTC gamma ramps and reduces them to, or
// expands them from, a single colour temperature and brightness.
package gamma

import (
	"errors"
	"fmt"
)

//go:generate mockgen -source=device.go -destination=mocks/device_mock.go -package=mocks

// CrtcID identifies a CRTC on the display server.
type CrtcID uint32

// Ramp is a CRTC gamma table. All channels have the same length.
type Ramp struct {
	Red   []uint16
	Green []uint16
	Blue  []uint16
}

// NewRamp allocates a zeroed ramp with size entries per channel.
func NewRamp(size int) Ramp {
	return Ramp{
		Red:   make([]uint16, size),
		Green: make([]uint16, size),
		Blue:  make([]uint16, size),
	}
}

// Size returns the number of entries per channel.
func (r Ramp) Size() int {
	return len(r.Red)
}

// Device represents the display server operations needed to read and write
// gamma ramps. This interface allows for mocking in tests.
type Device interface {
	// ScreenCount returns the number of screens on the connection.
	ScreenCount() int

	// ListCrtcs returns the CRTCs of a screen in server order.
	ListCrtcs(screen int) ([]CrtcID, error)

	// RampSize returns the native gamma ramp size of a CRTC.
	RampSize(crtc CrtcID) (int, error)

	// ReadRamp reads the current gamma ramp of a CRTC.
	ReadRamp(crtc CrtcID) (Ramp, error)

	// WriteRamp replaces the gamma ramp of a CRTC.
	WriteRamp(crtc CrtcID, ramp Ramp) error

	// Close closes the connection to the display server.
	Close() error
}

// ErrInvalidScreen is returned when a screen index does not exist.
var ErrInvalidScreen = errors.New("invalid screen index")

// DeviceError reports a failed display server request.
type DeviceError struct {
	Op   string
	Crtc CrtcID
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Crtc == 0 {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s for crtc %d: %v", e.Op, e.Crtc, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// IsDeviceError reports whether err came from the display server.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
