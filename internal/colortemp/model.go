// SPDX-License-Identifier: GPL-3.0-only

// Package colortemp converts between a colour temperature with brightness and
// the per-channel gamma scale factors used to build a display gamma ramp.
//
// The model is an empirical fit of log-temperature to channel value, split
// into a warm regime (red saturated) and a cool regime (blue saturated) at
// NormalTemperature.
package colortemp

import "math"

const (
	// NormalTemperature is the neutral temperature in Kelvin, rendered as an
	// identity ramp.
	NormalTemperature = 6500

	// ZeroTemperature is the lowest temperature the model can display.
	ZeroTemperature = 700

	// NightTemperature is the built-in night preset temperature.
	NightTemperature = 4500

	// MaxChannelValue is the full-scale value of a 16-bit gamma ramp entry.
	MaxChannelValue = 65535.0

	// BrightnessDivisor converts a raw terminal ramp sample into a brightness
	// fraction.
	BrightnessDivisor = 65470.988
)

// Regression coefficients. The first suffix letter is the fitted channel, the
// second the saturated one.
const (
	k0GR = -1.47751309139817
	k1GR = 0.28590164772055
	k0BR = -4.38835611159928
	k1BR = 0.6212038263603
	k0RB = 1.75390204039018
	k1RB = -0.1150805671482
	k0GB = 1.49221604915144
	k1GB = -0.07513509588921
)

// State is a colour temperature in Kelvin and a brightness fraction.
type State struct {
	Temperature int
	Brightness  float64
}

// Gamma holds the terminal scale of each channel of a gamma ramp.
type Gamma struct {
	R, G, B float64
}

// Max returns the largest channel value.
func (g Gamma) Max() float64 {
	return math.Max(g.R, math.Max(g.G, g.B))
}

// Clamp bounds x to [low, high]. If low >= high the result is low.
func Clamp(x, low, high float64) float64 {
	if x <= low {
		return low
	}
	if x >= high {
		return high
	}
	return x
}

// ToGamma returns the channel scale factors for temperature. Every channel is
// in [0, 1].
func ToGamma(temperature int) Gamma {
	t := float64(temperature)

	if temperature < NormalTemperature {
		if temperature <= ZeroTemperature {
			return Gamma{R: 1}
		}
		g := math.Log(t - ZeroTemperature)
		return Gamma{
			R: 1,
			G: Clamp(k0GR+k1GR*g, 0, 1),
			B: Clamp(k0BR+k1BR*g, 0, 1),
		}
	}

	g := math.Log(t - (NormalTemperature - ZeroTemperature))
	return Gamma{
		R: Clamp(k0RB+k1RB*g, 0, 1),
		G: Clamp(k0GB+k1GB*g, 0, 1),
		B: 1,
	}
}

// FromGamma estimates the temperature that produced normalized, i.e. a gamma
// triple divided by its largest channel.
func FromGamma(normalized Gamma) int {
	var t float64

	d := normalized.B - normalized.R
	switch {
	case d < 0 && normalized.B > 0:
		t = math.Exp((normalized.G+1+d-(k0GR+k0BR))/(k1GR+k1BR)) + ZeroTemperature
	case d < 0 && normalized.G > 0:
		t = math.Exp((normalized.G-k0GR)/k1GR) + ZeroTemperature
	case d < 0:
		t = ZeroTemperature
	default:
		t = math.Exp((normalized.G+1-d-(k0GB+k0RB))/(k1GB+k1RB)) + (NormalTemperature - ZeroTemperature)
	}

	return int(t + 0.5)
}
