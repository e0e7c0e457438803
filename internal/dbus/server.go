// SPDX-License-Identifier: GPL-3.0-only

// Package dbus exposes colour temperature control as a session bus service.
package dbus

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/shini4i/ksct/internal/colortemp"
	"github.com/shini4i/ksct/internal/gamma"
	"github.com/shini4i/ksct/internal/preset"
	"github.com/shini4i/ksct/internal/runner"
)

// ErrRateLimitExceeded is returned when change requests exceed the rate limit.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// ErrInvalidScreen is returned for a negative screen index.
var ErrInvalidScreen = errors.New("screen must not be negative")

// ErrInvalidBrightness is returned for a NaN or infinite brightness.
var ErrInvalidBrightness = errors.New("brightness must be a finite number")

const (
	// rateLimitPerSecond is the maximum number of temperature changes per second.
	rateLimitPerSecond = 20

	// rateLimitBurst is the maximum burst size for temperature changes.
	rateLimitBurst = 5
)

const (
	// ServiceName is the D-Bus service name.
	ServiceName = "io.github.shini4i.Ksct"

	// ObjectPath is the D-Bus object path.
	ObjectPath = "/io/github/shini4i/Ksct"

	// InterfaceName is the D-Bus interface name.
	InterfaceName = "io.github.shini4i.Ksct"
)

// IntrospectXML is the D-Bus introspection XML for the service.
const IntrospectXML = `
<node name="` + ObjectPath + `">
  <interface name="` + InterfaceName + `">
    <method name="GetTemperature">
      <arg name="screen" type="i" direction="in"/>
      <arg name="temperature" type="i" direction="out"/>
      <arg name="brightness" type="d" direction="out"/>
    </method>
    <method name="SetTemperature">
      <arg name="temperature" type="i" direction="in"/>
      <arg name="brightness" type="d" direction="in"/>
    </method>
    <method name="ShiftTemperature">
      <arg name="temperature" type="i" direction="in"/>
      <arg name="brightness" type="d" direction="in"/>
    </method>
    <method name="Toggle"/>
    <method name="Reset"/>
    <signal name="TemperatureChanged">
      <arg name="temperature" type="i"/>
      <arg name="brightness" type="d"/>
    </signal>
  </interface>
  ` + introspect.IntrospectDataString + `
</node>
`

// Runner runs a single ksct operation.
// This allows for mocking in tests.
type Runner interface {
	Run(opts runner.Options) ([]runner.Result, error)
	SetPresets(p preset.Presets)
}

// Server implements the D-Bus service for colour temperature control.
//
// Thread safety:
//   - opMu serializes every operation on the runner, so the display sees one
//     request at a time and lastApplied stays consistent with it.
//   - connMu protects the D-Bus connection field for signal emission.
type Server struct {
	conn        *dbus.Conn
	connMu      sync.RWMutex
	runner      Runner
	rateLimiter *rate.Limiter

	opMu        sync.Mutex
	lastApplied []runner.Result
}

// NewServer creates a new D-Bus server backed by the given runner.
func NewServer(r Runner) *Server {
	return &Server{
		runner:      r,
		rateLimiter: rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
	}
}

// Start connects to the session bus and exports the service.
func (s *Server) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	success := false
	defer func() {
		if !success {
			if closeErr := conn.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("Failed to close D-Bus connection during cleanup")
			}
		}
	}()

	if err := conn.Export(s, ObjectPath, InterfaceName); err != nil {
		return fmt.Errorf("failed to export server: %w", err)
	}

	err = conn.Export(introspect.Introspectable(IntrospectXML), ObjectPath, "org.freedesktop.DBus.Introspectable")
	if err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", ServiceName)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	success = true
	log.Info().Str("service", ServiceName).Msg("D-Bus service started")
	return nil
}

// Stop disconnects from the session bus.
func (s *Server) Stop() error {
	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// GetTemperature returns the estimated temperature and brightness of a screen.
func (s *Server) GetTemperature(screen int32) (int32, float64, *dbus.Error) {
	if screen < 0 {
		return 0, 0, dbus.MakeFailedError(ErrInvalidScreen)
	}

	s.opMu.Lock()
	results, err := s.runner.Run(runner.Options{Screen: int(screen), Crtc: gamma.AllCrtcs()})
	s.opMu.Unlock()

	if err != nil {
		log.Error().Err(err).Int32("screen", screen).Msg("Failed to estimate temperature")
		return 0, 0, dbus.MakeFailedError(err)
	}
	if len(results) == 0 {
		return 0, 0, dbus.MakeFailedError(fmt.Errorf("%w: %d", gamma.ErrInvalidScreen, screen))
	}

	state := results[0].State
	log.Debug().Int32("screen", screen).Int("temperature", state.Temperature).Float64("brightness", state.Brightness).Msg("Got temperature")
	// #nosec G115 -- estimated temperatures are far below the int32 range
	return int32(state.Temperature), state.Brightness, nil
}

// SetTemperature applies an absolute temperature and brightness to every
// screen. A temperature of 0 applies the default preset.
func (s *Server) SetTemperature(temperature int32, brightness float64) *dbus.Error {
	if err := checkBrightness(brightness); err != nil {
		return err
	}
	return s.change("SetTemperature", runner.Options{
		Target: runner.Target{
			Temperature:    int(temperature),
			Brightness:     brightness,
			HasTemperature: true,
			HasBrightness:  true,
		},
	})
}

// ShiftTemperature adds a temperature and brightness delta on every screen.
func (s *Server) ShiftTemperature(temperature int32, brightness float64) *dbus.Error {
	if err := checkBrightness(brightness); err != nil {
		return err
	}
	return s.change("ShiftTemperature", runner.Options{
		Delta: true,
		Target: runner.Target{
			Temperature:    int(temperature),
			Brightness:     brightness,
			HasTemperature: true,
			HasBrightness:  true,
		},
	})
}

// Toggle switches every screen between the day and night presets.
func (s *Server) Toggle() *dbus.Error {
	return s.change("Toggle", runner.Options{Toggle: true})
}

// Reset applies the default preset to every screen.
func (s *Server) Reset() *dbus.Error {
	return s.change("Reset", runner.Options{Target: runner.Target{HasTemperature: true}})
}

// Reapply writes the last applied state again, e.g. after a display was
// reconnected and came up with an identity ramp. It does nothing before the
// first successful change. Every screen is attempted; the errors are joined.
//
// The state is the one last set through this service. A change made with
// the command line since then is overwritten.
func (s *Server) Reapply() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	var errs []error
	for _, last := range s.lastApplied {
		_, err := s.runner.Run(runner.Options{
			Screen: last.Screen,
			Crtc:   gamma.AllCrtcs(),
			Target: runner.Target{
				Temperature:    last.State.Temperature,
				Brightness:     last.State.Brightness,
				HasTemperature: true,
				HasBrightness:  true,
			},
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		log.Info().
			Int("screen", last.Screen).
			Int("temperature", last.State.Temperature).
			Float64("brightness", last.State.Brightness).
			Msg("Reapplied colour temperature")
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to reapply colour temperature: %w", err)
	}
	return nil
}

// SetPresets replaces the presets used by Toggle and Reset.
func (s *Server) SetPresets(p preset.Presets) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.runner.SetPresets(p)
}

// checkBrightness rejects brightness values that cannot be bounded.
func checkBrightness(brightness float64) *dbus.Error {
	if math.IsNaN(brightness) || math.IsInf(brightness, 0) {
		log.Warn().Float64("brightness", brightness).Msg("Rejected invalid brightness")
		return dbus.MakeFailedError(ErrInvalidBrightness)
	}
	return nil
}

// change runs a mutating operation on every screen.
func (s *Server) change(method string, opts runner.Options) *dbus.Error {
	if !s.rateLimiter.Allow() {
		log.Warn().Str("method", method).Msg("Rate limit exceeded")
		return dbus.MakeFailedError(ErrRateLimitExceeded)
	}

	opts.Screen = -1
	opts.Crtc = gamma.AllCrtcs()

	s.opMu.Lock()
	results, err := s.runner.Run(opts)
	if err == nil {
		s.lastApplied = results
	}
	s.opMu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("method", method).Msg("Failed to change colour temperature")
		return dbus.MakeFailedError(err)
	}

	log.Debug().Str("method", method).Int("screens", len(results)).Msg("Changed colour temperature")
	if len(results) > 0 {
		s.emitTemperatureChanged(results[0].State)
	}
	return nil
}

// emitTemperatureChanged emits the TemperatureChanged signal.
func (s *Server) emitTemperatureChanged(state colortemp.State) {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()

	if conn == nil {
		return
	}

	// #nosec G115 -- bounded temperatures are far below the int32 range
	err := conn.Emit(ObjectPath, InterfaceName+".TemperatureChanged", int32(state.Temperature), state.Brightness)
	if err != nil {
		log.Error().Err(err).Msg("Failed to emit TemperatureChanged signal")
	}
}
