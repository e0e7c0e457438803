// SPDX-License-Identifier: GPL-3.0-only

package runner

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shini4i/ksct/internal/colortemp"
	"github.com/shini4i/ksct/internal/gamma"
	"github.com/shini4i/ksct/internal/preset"
)

type applyCall struct {
	screen int
	sel    gamma.Selector
	state  colortemp.State
}

// fakeController keeps one state per screen.
type fakeController struct {
	states      []colortemp.State
	estimateErr error
	applyErr    error
	applied     []applyCall
	estimates   int
}

func newFakeController(states ...colortemp.State) *fakeController {
	return &fakeController{states: states}
}

func (f *fakeController) ScreenCount() int {
	return len(f.states)
}

func (f *fakeController) Estimate(screen int, _ gamma.Selector) (colortemp.State, error) {
	f.estimates++
	if f.estimateErr != nil {
		return colortemp.State{}, f.estimateErr
	}
	return f.states[screen], nil
}

func (f *fakeController) Apply(screen int, sel gamma.Selector, state colortemp.State) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, applyCall{screen: screen, sel: sel, state: state})
	f.states[screen] = state
	return nil
}

func TestRunner_Estimate(t *testing.T) {
	controller := newFakeController(
		colortemp.State{Temperature: 6500, Brightness: 1},
		colortemp.State{Temperature: 3400, Brightness: 0.5},
	)
	r := New(controller)

	results, err := r.Run(Options{Screen: -1, Crtc: gamma.AllCrtcs()})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, Result{Screen: 0, State: colortemp.State{Temperature: 6500, Brightness: 1}}, results[0])
	assert.Equal(t, Result{Screen: 1, State: colortemp.State{Temperature: 3400, Brightness: 0.5}}, results[1])
	assert.Empty(t, controller.applied)
}

func TestRunner_Set(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		expected colortemp.State
		warnings []colortemp.Violation
	}{
		{
			name:     "brightness defaults to full",
			target:   Target{Temperature: 3400, HasTemperature: true},
			expected: colortemp.State{Temperature: 3400, Brightness: 1},
		},
		{
			name:     "explicit brightness",
			target:   Target{Temperature: 3400, Brightness: 0.6, HasTemperature: true, HasBrightness: true},
			expected: colortemp.State{Temperature: 3400, Brightness: 0.6},
		},
		{
			name:     "out of range values are bounded",
			target:   Target{Temperature: 500, Brightness: 1.5, HasTemperature: true, HasBrightness: true},
			expected: colortemp.State{Temperature: colortemp.ZeroTemperature, Brightness: 1},
			warnings: []colortemp.Violation{colortemp.ViolationBelowMinimum, colortemp.ViolationBrightnessOverflow},
		},
		{
			name:     "negative temperature resets",
			target:   Target{Temperature: -200, HasTemperature: true},
			expected: colortemp.State{Temperature: colortemp.NormalTemperature, Brightness: 1},
			warnings: []colortemp.Violation{colortemp.ViolationReset},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := newFakeController(colortemp.State{Temperature: 6500, Brightness: 1})
			r := New(controller)

			results, err := r.Run(Options{Screen: -1, Crtc: gamma.AllCrtcs(), Target: tt.target})
			require.NoError(t, err)

			require.Len(t, controller.applied, 1)
			assert.Equal(t, tt.expected, controller.applied[0].state)

			require.Len(t, results, 1)
			assert.Equal(t, tt.expected, results[0].State)

			var violations []colortemp.Violation
			for _, w := range results[0].Warnings {
				violations = append(violations, w.Violation)
			}
			assert.Equal(t, tt.warnings, violations)
		})
	}
}

func TestRunner_Reset(t *testing.T) {
	controller := newFakeController(colortemp.State{Temperature: 3000, Brightness: 0.4})
	presets := preset.Defaults()
	presets.Default = preset.Preset{Temperature: 6200, Brightness: 0.9}
	r := New(controller, WithPresets(presets))

	_, err := r.Run(Options{Screen: -1, Target: Target{HasTemperature: true}})
	require.NoError(t, err)

	require.Len(t, controller.applied, 1)
	assert.Equal(t, colortemp.State{Temperature: 6200, Brightness: 0.9}, controller.applied[0].state)
}

func TestRunner_Delta(t *testing.T) {
	controller := newFakeController(colortemp.State{Temperature: 5000, Brightness: 0.8})
	r := New(controller)

	_, err := r.Run(Options{
		Screen: -1,
		Delta:  true,
		Target: Target{Temperature: 200, Brightness: -0.1, HasTemperature: true, HasBrightness: true},
	})
	require.NoError(t, err)

	require.Len(t, controller.applied, 1)
	assert.Equal(t, 5200, controller.applied[0].state.Temperature)
	assert.InDelta(t, 0.7, controller.applied[0].state.Brightness, 1e-9)
}

func TestRunner_DeltaWithoutBrightnessKeepsBrightness(t *testing.T) {
	controller := newFakeController(colortemp.State{Temperature: 5000, Brightness: 0.8})
	r := New(controller)

	_, err := r.Run(Options{Screen: 0, Delta: true, Target: Target{Temperature: -300, HasTemperature: true}})
	require.NoError(t, err)

	require.Len(t, controller.applied, 1)
	assert.Equal(t, colortemp.State{Temperature: 4700, Brightness: 0.8}, controller.applied[0].state)
}

func TestRunner_Toggle(t *testing.T) {
	tests := []struct {
		name     string
		current  colortemp.State
		expected colortemp.State
	}{
		{
			name:     "near day switches to night",
			current:  colortemp.State{Temperature: 6550, Brightness: 1},
			expected: colortemp.State{Temperature: 4500, Brightness: 1},
		},
		{
			name:     "just inside the margin switches to night",
			current:  colortemp.State{Temperature: 6401, Brightness: 1},
			expected: colortemp.State{Temperature: 4500, Brightness: 1},
		},
		{
			name:     "warm switches to day",
			current:  colortemp.State{Temperature: 5000, Brightness: 1},
			expected: colortemp.State{Temperature: 6500, Brightness: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := newFakeController(tt.current)
			r := New(controller)

			_, err := r.Run(Options{Screen: -1, Toggle: true})
			require.NoError(t, err)

			require.Len(t, controller.applied, 1)
			assert.Equal(t, tt.expected, controller.applied[0].state)
		})
	}
}

func TestRunner_Auto(t *testing.T) {
	controller := newFakeController(colortemp.State{Temperature: 6500, Brightness: 1})
	midnight := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	r := New(controller, WithClock(func() time.Time { return midnight }))

	_, err := r.Run(Options{Screen: -1, Auto: true})
	require.NoError(t, err)

	require.Len(t, controller.applied, 1)
	assert.Equal(t, preset.Defaults().Night.State(), controller.applied[0].state)
}

func TestRunner_ScreenSelection(t *testing.T) {
	controller := newFakeController(
		colortemp.State{Temperature: 6500, Brightness: 1},
		colortemp.State{Temperature: 6500, Brightness: 1},
	)
	r := New(controller)

	_, err := r.Run(Options{Screen: 1, Crtc: gamma.SingleCrtc(0), Target: Target{Temperature: 3000, HasTemperature: true}})
	require.NoError(t, err)

	require.Len(t, controller.applied, 1)
	assert.Equal(t, 1, controller.applied[0].screen)
	assert.Equal(t, gamma.SingleCrtc(0), controller.applied[0].sel)
}

func TestRunner_AllScreensInOrder(t *testing.T) {
	controller := newFakeController(
		colortemp.State{Temperature: 6500, Brightness: 1},
		colortemp.State{Temperature: 6500, Brightness: 1},
		colortemp.State{Temperature: 6500, Brightness: 1},
	)
	r := New(controller)

	_, err := r.Run(Options{Screen: -1, Target: Target{Temperature: 3000, HasTemperature: true}})
	require.NoError(t, err)

	require.Len(t, controller.applied, 3)
	for i, call := range controller.applied {
		assert.Equal(t, i, call.screen)
	}
}

func TestRunner_InvalidScreen(t *testing.T) {
	controller := newFakeController(colortemp.State{Temperature: 6500, Brightness: 1})
	r := New(controller)

	_, err := r.Run(Options{Screen: 3, Target: Target{Temperature: 3000, HasTemperature: true}})
	require.ErrorIs(t, err, gamma.ErrInvalidScreen)
	assert.Empty(t, controller.applied)
}

func TestRunner_ValidationBeforeDevice(t *testing.T) {
	controller := newFakeController(colortemp.State{Temperature: 6500, Brightness: 1})
	r := New(controller)

	_, err := r.Run(Options{Screen: -1, Delta: true})
	require.ErrorIs(t, err, ErrMissingDelta)
	assert.Zero(t, controller.estimates)
	assert.Empty(t, controller.applied)
}

func TestRunner_DeviceErrors(t *testing.T) {
	deviceErr := errors.New("connection lost")

	t.Run("estimate", func(t *testing.T) {
		controller := newFakeController(colortemp.State{Temperature: 6500, Brightness: 1})
		controller.estimateErr = deviceErr
		r := New(controller)

		_, err := r.Run(Options{Screen: -1, Toggle: true})
		require.ErrorIs(t, err, deviceErr)
		assert.Empty(t, controller.applied)
	})

	t.Run("apply", func(t *testing.T) {
		controller := newFakeController(
			colortemp.State{Temperature: 6500, Brightness: 1},
			colortemp.State{Temperature: 6500, Brightness: 1},
		)
		controller.applyErr = deviceErr
		r := New(controller)

		results, err := r.Run(Options{Screen: -1, Target: Target{Temperature: 3000, HasTemperature: true}})
		require.ErrorIs(t, err, deviceErr)
		assert.Empty(t, results)
	})
}

func TestRunner_SavePreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	controller := newFakeController(colortemp.State{Temperature: 6500, Brightness: 1})
	r := New(controller, WithPresetsFile(path))

	results, err := r.Run(Options{
		Screen:     -1,
		SavePreset: preset.Night,
		Target:     Target{Temperature: 3200, Brightness: 0.7, HasTemperature: true, HasBrightness: true},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, controller.applied)

	expected := preset.Preset{Temperature: 3200, Brightness: 0.7}
	assert.Equal(t, expected, r.Presets().Night)

	loaded, err := preset.Load(path)
	require.NoError(t, err)
	assert.Equal(t, expected, loaded.Night)
}

func TestRunner_SavePresetWithoutFile(t *testing.T) {
	r := New(newFakeController())

	_, err := r.Run(Options{SavePreset: preset.Day, Target: Target{Temperature: 6000, HasTemperature: true}})
	require.ErrorIs(t, err, ErrNoPresetsFile)
}

func TestRunner_SetPresets(t *testing.T) {
	controller := newFakeController(colortemp.State{Temperature: 5000, Brightness: 1})
	r := New(controller)

	presets := preset.Defaults()
	presets.Day = preset.Preset{Temperature: 5800, Brightness: 0.9}
	r.SetPresets(presets)

	_, err := r.Run(Options{Screen: -1, Toggle: true})
	require.NoError(t, err)

	require.Len(t, controller.applied, 1)
	assert.Equal(t, colortemp.State{Temperature: 5800, Brightness: 0.9}, controller.applied[0].state)
}
