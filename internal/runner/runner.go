// SPDX-License-Identifier: GPL-3.0-only

// Package runner turns validated command options into estimate, apply and
// preset operations across the selected screens.
package runner

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/ksct/internal/colortemp"
	"github.com/shini4i/ksct/internal/gamma"
	"github.com/shini4i/ksct/internal/preset"
)

// toggleMargin is how close to the day temperature a screen must be for a
// toggle to switch it to night.
const toggleMargin = 100

// ErrNoPresetsFile is returned when saving a preset without a file to save to.
var ErrNoPresetsFile = errors.New("no presets file configured")

// Controller estimates and applies colour temperature per screen.
type Controller interface {
	ScreenCount() int
	Estimate(screen int, sel gamma.Selector) (colortemp.State, error)
	Apply(screen int, sel gamma.Selector, state colortemp.State) error
}

// Result is the outcome for one screen. For ModeEstimate State is the
// estimate; otherwise it is the bounded state that was applied.
type Result struct {
	Screen   int
	State    colortemp.State
	Warnings []colortemp.Warning
}

// Runner executes Options against a Controller.
type Runner struct {
	controller  Controller
	presetsPath string
	now         func() time.Time

	mu      sync.RWMutex
	presets preset.Presets
}

// Option configures a Runner.
type Option func(*Runner)

// WithPresets sets the presets used by reset, toggle and auto modes.
func WithPresets(p preset.Presets) Option {
	return func(r *Runner) {
		r.presets = p
	}
}

// WithPresetsFile sets the file that ModeSavePreset writes to.
func WithPresetsFile(path string) Option {
	return func(r *Runner) {
		r.presetsPath = path
	}
}

// WithClock sets the time source for auto mode.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a Runner using the built-in presets unless configured otherwise.
func New(controller Controller, opts ...Option) *Runner {
	r := &Runner{
		controller: controller,
		presets:    preset.Defaults(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Presets returns the presets currently in use.
func (r *Runner) Presets() preset.Presets {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presets
}

// SetPresets replaces the presets, e.g. after the presets file changed.
func (r *Runner) SetPresets(p preset.Presets) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets = p
}

// Run validates opts and performs the selected mode on every selected screen
// in index order. Processing stops at the first failing screen.
func (r *Runner) Run(opts Options) ([]Result, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}

	if mode == ModeSavePreset {
		return nil, r.savePreset(opts)
	}

	screens, err := r.screens(opts.Screen)
	if err != nil {
		return nil, err
	}

	presets := r.Presets()
	results := make([]Result, 0, len(screens))

	for _, screen := range screens {
		if mode == ModeEstimate {
			state, err := r.controller.Estimate(screen, opts.Crtc)
			if err != nil {
				return results, fmt.Errorf("screen %d: %w", screen, err)
			}
			results = append(results, Result{Screen: screen, State: state})
			continue
		}

		requested, err := r.target(mode, screen, opts, presets)
		if err != nil {
			return results, fmt.Errorf("screen %d: %w", screen, err)
		}

		state, warnings := colortemp.Bound(requested)
		logWarnings(screen, warnings)

		if err := r.controller.Apply(screen, opts.Crtc, state); err != nil {
			return results, fmt.Errorf("screen %d: %w", screen, err)
		}

		log.Debug().
			Int("screen", screen).
			Str("mode", mode.String()).
			Int("temperature", state.Temperature).
			Float64("brightness", state.Brightness).
			Msg("Applied colour temperature")

		results = append(results, Result{Screen: screen, State: state, Warnings: warnings})
	}

	return results, nil
}

// screens returns the screen indices selected by index, or every screen for a
// negative index.
func (r *Runner) screens(index int) ([]int, error) {
	count := r.controller.ScreenCount()

	if index >= 0 {
		if index >= count {
			return nil, fmt.Errorf("%w: %d (%d available)", gamma.ErrInvalidScreen, index, count)
		}
		return []int{index}, nil
	}

	screens := make([]int, count)
	for i := range screens {
		screens[i] = i
	}
	return screens, nil
}

func (r *Runner) target(mode Mode, screen int, opts Options, presets preset.Presets) (colortemp.State, error) {
	t := opts.Target

	switch mode {
	case ModeSet:
		brightness := 1.0
		if t.HasBrightness {
			brightness = t.Brightness
		}
		return colortemp.State{Temperature: t.Temperature, Brightness: brightness}, nil

	case ModeReset:
		state := presets.Default.State()
		if t.HasBrightness {
			state.Brightness = t.Brightness
		}
		return state, nil

	case ModeDelta:
		current, err := r.controller.Estimate(screen, opts.Crtc)
		if err != nil {
			return colortemp.State{}, err
		}
		current.Temperature += t.Temperature
		if t.HasBrightness {
			current.Brightness += t.Brightness
		}
		return current, nil

	case ModeToggle:
		current, err := r.controller.Estimate(screen, opts.Crtc)
		if err != nil {
			return colortemp.State{}, err
		}
		if current.Temperature > presets.Day.Temperature-toggleMargin {
			return presets.Night.State(), nil
		}
		return presets.Day.State(), nil

	case ModeAuto:
		return preset.Solar(r.now(), opts.Latitude, opts.Longitude, presets), nil

	default:
		return colortemp.State{}, fmt.Errorf("unsupported mode %s", mode)
	}
}

func (r *Runner) savePreset(opts Options) error {
	if r.presetsPath == "" {
		return ErrNoPresetsFile
	}

	brightness := 1.0
	if opts.Target.HasBrightness {
		brightness = opts.Target.Brightness
	}
	state, warnings := colortemp.Bound(colortemp.State{Temperature: opts.Target.Temperature, Brightness: brightness})
	logWarnings(-1, warnings)

	r.mu.Lock()
	defer r.mu.Unlock()

	presets := r.presets
	if err := presets.Set(opts.SavePreset, preset.Preset{Temperature: state.Temperature, Brightness: state.Brightness}); err != nil {
		return err
	}
	if err := preset.Save(r.presetsPath, presets); err != nil {
		return err
	}
	r.presets = presets

	log.Info().
		Str("preset", string(opts.SavePreset)).
		Int("temperature", state.Temperature).
		Float64("brightness", state.Brightness).
		Str("path", r.presetsPath).
		Msg("Preset saved")

	return nil
}

func logWarnings(screen int, warnings []colortemp.Warning) {
	for _, w := range warnings {
		event := log.Warn().
			Str("violation", w.Violation.String()).
			Float64("requested", w.Requested).
			Float64("applied", w.Applied)
		if screen >= 0 {
			event = event.Int("screen", screen)
		}
		event.Msg(w.String())
	}
}
