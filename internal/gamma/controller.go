// SPDX-License-Identifier: GPL-3.0-only

package gamma

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/ksct/internal/colortemp"
)

// ErrControllerClosed is returned when an operation is attempted on a closed
// controller.
var ErrControllerClosed = errors.New("controller is closed")

// Controller estimates and applies colour temperature on the screens of a
// Device. All methods are thread-safe and can be called concurrently; each
// request to the device runs to completion before the next starts.
type Controller struct {
	device Device
	mu     sync.Mutex
	closed bool
}

// NewController creates a new Controller wrapping the given device.
func NewController(device Device) *Controller {
	return &Controller{device: device}
}

// ScreenCount returns the number of screens of the device.
func (c *Controller) ScreenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}
	return c.device.ScreenCount()
}

// Estimate reads the ramps of the CRTCs selected on screen and returns the
// colour temperature and brightness they represent.
func (c *Controller) Estimate(screen int, sel Selector) (colortemp.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	crtcs, err := c.selectCrtcs(screen, sel)
	if err != nil {
		return colortemp.State{}, err
	}

	ramps := make([]Ramp, 0, len(crtcs))
	for _, crtc := range crtcs {
		ramp, err := c.device.ReadRamp(crtc)
		if err != nil {
			return colortemp.State{}, fmt.Errorf("failed to read gamma ramp: %w", err)
		}
		ramps = append(ramps, ramp)
	}

	state := Aggregate(ramps)
	log.Debug().
		Int("screen", screen).
		Str("crtc", sel.String()).
		Int("crtcs", len(crtcs)).
		Int("temperature", state.Temperature).
		Float64("brightness", state.Brightness).
		Msg("Estimated colour temperature")

	return state, nil
}

// Apply writes ramps for state to the CRTCs selected on screen. The state is
// expected to have passed colortemp.Bound already.
func (c *Controller) Apply(screen int, sel Selector, state colortemp.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	crtcs, err := c.selectCrtcs(screen, sel)
	if err != nil {
		return err
	}

	g := colortemp.ToGamma(state.Temperature)
	log.Debug().
		Int("screen", screen).
		Str("crtc", sel.String()).
		Float64("red", g.R).
		Float64("green", g.G).
		Float64("blue", g.B).
		Float64("brightness", state.Brightness).
		Msg("Applying gamma")

	for _, crtc := range crtcs {
		size, err := c.device.RampSize(crtc)
		if err != nil {
			return fmt.Errorf("failed to query gamma size: %w", err)
		}
		if err := c.device.WriteRamp(crtc, BuildRamp(size, g, state.Brightness)); err != nil {
			return fmt.Errorf("failed to write gamma ramp: %w", err)
		}
	}

	return nil
}

// Close closes the underlying device.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.device.Close()
}

func (c *Controller) selectCrtcs(screen int, sel Selector) ([]CrtcID, error) {
	if c.closed {
		return nil, ErrControllerClosed
	}

	if screen < 0 || screen >= c.device.ScreenCount() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidScreen, screen)
	}

	available, err := c.device.ListCrtcs(screen)
	if err != nil {
		return nil, fmt.Errorf("failed to list crtcs: %w", err)
	}
	return ResolveSelector(sel, available), nil
}
