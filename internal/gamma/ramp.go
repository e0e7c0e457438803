// SPDX-License-Identifier: GPL-3.0-only

package gamma

import "github.com/shini4i/ksct/internal/colortemp"

// BuildRamp fills a ramp of size entries for the channel scale factors g at
// the given brightness. Entry i of each channel is
// MaxChannelValue*brightness*i/size scaled by the channel factor, so every
// channel is non-decreasing.
func BuildRamp(size int, g colortemp.Gamma, brightness float64) Ramp {
	ramp := NewRamp(size)
	b := colortemp.Clamp(brightness, 0, 1)

	for i := 0; i < size; i++ {
		scale := colortemp.MaxChannelValue * b * float64(i) / float64(size)
		ramp.Red[i] = uint16(scale*g.R + 0.5)
		ramp.Green[i] = uint16(scale*g.G + 0.5)
		ramp.Blue[i] = uint16(scale*g.B + 0.5)
	}
	return ramp
}

// Aggregate estimates a single state from the ramps of several CRTCs. The
// terminal entries are summed per channel; the largest sum gives the
// brightness and the normalized triple gives the temperature. With no ramps
// or an all-zero signal the result is the zero State.
func Aggregate(ramps []Ramp) colortemp.State {
	var sum colortemp.Gamma
	for _, r := range ramps {
		sum.R += terminal(r.Red)
		sum.G += terminal(r.Green)
		sum.B += terminal(r.Blue)
	}

	rawMax := sum.Max()
	if rawMax <= 0 || len(ramps) == 0 {
		return colortemp.State{Temperature: 0, Brightness: colortemp.Clamp(0, 0, 1)}
	}

	normalized := colortemp.Gamma{
		R: sum.R / rawMax,
		G: sum.G / rawMax,
		B: sum.B / rawMax,
	}
	brightness := rawMax / float64(len(ramps)) / colortemp.BrightnessDivisor

	return colortemp.State{
		Temperature: colortemp.FromGamma(normalized),
		Brightness:  colortemp.Clamp(brightness, 0, 1),
	}
}

// terminal returns the last entry of a channel, or 0 for an empty one.
func terminal(channel []uint16) float64 {
	if len(channel) == 0 {
		return 0
	}
	return float64(channel[len(channel)-1])
}
