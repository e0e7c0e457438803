// SPDX-License-Identifier: GPL-3.0-only

// Package preset stores the named default, day and night colour states.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/shini4i/ksct/internal/colortemp"
)

// Name identifies a preset.
type Name string

const (
	// Default is applied when the user resets the display.
	Default Name = "default"
	// Day is the toggle and auto mode daytime preset.
	Day Name = "day"
	// Night is the toggle and auto mode night-time preset.
	Night Name = "night"
)

// Names lists every preset in file order.
var Names = []Name{Default, Day, Night}

// ErrUnknownPreset is returned for a preset name outside Names.
var ErrUnknownPreset = errors.New("unknown preset")

// ErrInvalidFile is returned when the presets file is not valid JSON.
var ErrInvalidFile = errors.New("invalid presets file")

// Preset is a stored colour temperature and brightness.
type Preset struct {
	Temperature int     `json:"temperature"`
	Brightness  float64 `json:"brightness"`
}

// State returns the preset as a colortemp.State.
func (p Preset) State() colortemp.State {
	return colortemp.State{Temperature: p.Temperature, Brightness: p.Brightness}
}

// Presets holds every named preset.
type Presets struct {
	Default Preset `json:"default"`
	Day     Preset `json:"day"`
	Night   Preset `json:"night"`
}

// Defaults returns the built-in presets.
func Defaults() Presets {
	return Presets{
		Default: Preset{Temperature: colortemp.NormalTemperature, Brightness: 1},
		Day:     Preset{Temperature: colortemp.NormalTemperature, Brightness: 1},
		Night:   Preset{Temperature: colortemp.NightTemperature, Brightness: 1},
	}
}

// Get returns the preset called name.
func (p Presets) Get(name Name) (Preset, error) {
	switch name {
	case Default:
		return p.Default, nil
	case Day:
		return p.Day, nil
	case Night:
		return p.Night, nil
	default:
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}

// Set replaces the preset called name.
func (p *Presets) Set(name Name, v Preset) error {
	switch name {
	case Default:
		p.Default = v
	case Day:
		p.Day = v
	case Night:
		p.Night = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/ksct/presets.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "ksct", "presets.json"), nil
}

// Load reads presets from path. A missing file yields Defaults, and any key
// missing from the file keeps its default value.
func Load(path string) (Presets, error) {
	presets := Defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return presets, nil
	}
	if err != nil {
		return presets, fmt.Errorf("failed to read presets: %w", err)
	}

	return Parse(data)
}

// Parse decodes presets from JSON on top of Defaults.
func Parse(data []byte) (Presets, error) {
	presets := Defaults()

	if !gjson.ValidBytes(data) {
		return presets, ErrInvalidFile
	}

	root := gjson.ParseBytes(data)
	for _, name := range Names {
		p, _ := presets.Get(name)
		if v := root.Get(string(name) + ".temperature"); v.Exists() {
			p.Temperature = int(v.Int())
		}
		if v := root.Get(string(name) + ".brightness"); v.Exists() {
			p.Brightness = v.Float()
		}
		_ = presets.Set(name, p)
	}

	return presets, nil
}

// Save writes presets to path, replacing the file atomically.
func Save(path string, presets Presets) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".presets-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	// Ensure the temporary file is removed if anything below fails
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write presets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace presets: %w", err)
	}

	success = true
	return nil
}
