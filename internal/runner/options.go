// SPDX-License-Identifier: GPL-3.0-only

package runner

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/shini4i/ksct/internal/gamma"
	"github.com/shini4i/ksct/internal/preset"
)

var (
	// ErrTooManyArguments is returned when more than a temperature and a
	// brightness are given.
	ErrTooManyArguments = errors.New("unknown parameter")

	// ErrInvalidTemperature is returned when the temperature is not an integer.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidBrightness is returned when the brightness is not a finite number.
	ErrInvalidBrightness = errors.New("invalid brightness")

	// ErrExclusiveModes is returned when more than one of delta, toggle, auto
	// and preset saving is requested.
	ErrExclusiveModes = errors.New("options --delta, --toggle, --auto and preset saving are exclusive to each other")

	// ErrMissingDelta is returned when delta mode is requested without a
	// temperature delta.
	ErrMissingDelta = errors.New("temperature delta must be specified")

	// ErrMissingTemperature is returned when saving a preset without a
	// temperature.
	ErrMissingTemperature = errors.New("temperature must be specified")

	// ErrUnexpectedArguments is returned when a mode that picks its own
	// temperature is given one.
	ErrUnexpectedArguments = errors.New("temperature and brightness cannot be combined with this mode")
)

// Mode is the operation a Runner performs.
type Mode int

const (
	// ModeEstimate reports the current temperature of each screen.
	ModeEstimate Mode = iota
	// ModeSet applies an absolute temperature.
	ModeSet
	// ModeReset applies the default preset.
	ModeReset
	// ModeDelta shifts the current temperature and brightness.
	ModeDelta
	// ModeToggle switches between the day and night presets.
	ModeToggle
	// ModeAuto applies the preset matching the current sun position.
	ModeAuto
	// ModeSavePreset stores the target as a preset without touching the display.
	ModeSavePreset
)

func (m Mode) String() string {
	switch m {
	case ModeEstimate:
		return "estimate"
	case ModeSet:
		return "set"
	case ModeReset:
		return "reset"
	case ModeDelta:
		return "delta"
	case ModeToggle:
		return "toggle"
	case ModeAuto:
		return "auto"
	case ModeSavePreset:
		return "save-preset"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Target is the temperature and brightness given by the user. Either may be
// absent.
type Target struct {
	Temperature    int
	Brightness     float64
	HasTemperature bool
	HasBrightness  bool
}

// ParseTarget parses the trailing [temperature] [brightness] arguments.
func ParseTarget(args []string) (Target, error) {
	var target Target

	if len(args) > 2 {
		return target, fmt.Errorf("%w: %s", ErrTooManyArguments, args[2])
	}

	if len(args) > 0 {
		t, err := strconv.Atoi(args[0])
		if err != nil {
			return target, fmt.Errorf("%w: %q", ErrInvalidTemperature, args[0])
		}
		target.Temperature = t
		target.HasTemperature = true
	}

	if len(args) > 1 {
		b, err := strconv.ParseFloat(args[1], 64)
		if err != nil || math.IsNaN(b) || math.IsInf(b, 0) {
			return target, fmt.Errorf("%w: %q", ErrInvalidBrightness, args[1])
		}
		target.Brightness = b
		target.HasBrightness = true
	}

	return target, nil
}

// Options is the immutable configuration of one Runner invocation.
type Options struct {
	// Screen is the zero-based screen index; negative selects every screen.
	Screen int
	Crtc   gamma.Selector

	Delta  bool
	Toggle bool
	Auto   bool

	// Latitude and Longitude locate the user for Auto.
	Latitude  float64
	Longitude float64

	// SavePreset names the preset to store Target into; empty applies Target.
	SavePreset preset.Name

	Target Target
}

// Mode validates the option combination and returns the selected mode.
func (o Options) Mode() (Mode, error) {
	exclusive := 0
	for _, set := range []bool{o.Delta, o.Toggle, o.Auto, o.SavePreset != ""} {
		if set {
			exclusive++
		}
	}
	if exclusive > 1 {
		return 0, ErrExclusiveModes
	}

	switch {
	case o.SavePreset != "":
		if !o.Target.HasTemperature {
			return 0, ErrMissingTemperature
		}
		return ModeSavePreset, nil
	case o.Delta:
		if !o.Target.HasTemperature {
			return 0, ErrMissingDelta
		}
		return ModeDelta, nil
	case o.Toggle, o.Auto:
		if o.Target.HasTemperature {
			return 0, ErrUnexpectedArguments
		}
		if o.Toggle {
			return ModeToggle, nil
		}
		return ModeAuto, nil
	case !o.Target.HasTemperature:
		return ModeEstimate, nil
	case o.Target.Temperature == 0:
		return ModeReset, nil
	default:
		return ModeSet, nil
	}
}
