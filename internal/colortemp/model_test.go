// SPDX-License-Identifier: GPL-3.0-only

package colortemp_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shini4i/ksct/internal/colortemp"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		low      float64
		high     float64
		expected float64
	}{
		{
			name:     "value below range returns low",
			x:        -0.5,
			low:      0,
			high:     1,
			expected: 0,
		},
		{
			name:     "value above range returns high",
			x:        1.5,
			low:      0,
			high:     1,
			expected: 1,
		},
		{
			name:     "value within range is unchanged",
			x:        0.25,
			low:      0,
			high:     1,
			expected: 0.25,
		},
		{
			name:     "value equal to low returns low",
			x:        0,
			low:      0,
			high:     1,
			expected: 0,
		},
		{
			name:     "value equal to high returns high",
			x:        1,
			low:      0,
			high:     1,
			expected: 1,
		},
		{
			name:     "degenerate interval favours low",
			x:        5,
			low:      5,
			high:     5,
			expected: 5,
		},
		{
			name:     "inverted interval favours low",
			x:        3,
			low:      4,
			high:     2,
			expected: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, colortemp.Clamp(tt.x, tt.low, tt.high))
		})
	}
}

func TestClamp_Idempotent(t *testing.T) {
	bounds := [][2]float64{{0, 1}, {-2, 3}, {700, 6500}, {1, 1}}
	for _, b := range bounds {
		for x := -10.0; x <= 10000; x += 7.3 {
			once := colortemp.Clamp(x, b[0], b[1])
			twice := colortemp.Clamp(once, b[0], b[1])
			require.Equal(t, once, twice, "clamp(%v, %v, %v) not idempotent", x, b[0], b[1])
		}
	}
}

func TestToGamma(t *testing.T) {
	tests := []struct {
		name     string
		kelvin   int
		expected colortemp.Gamma
	}{
		{
			name:     "normal temperature is neutral",
			kelvin:   6500,
			expected: colortemp.Gamma{R: 1, G: 1, B: 1},
		},
		{
			name:     "warm temperature keeps red saturated",
			kelvin:   3400,
			expected: colortemp.Gamma{R: 1, G: 0.7814, B: 0.5199},
		},
		{
			name:     "very warm temperature clamps blue to zero",
			kelvin:   1000,
			expected: colortemp.Gamma{R: 1, G: 0.1532, B: 0},
		},
		{
			name:     "zero temperature leaves only red",
			kelvin:   700,
			expected: colortemp.Gamma{R: 1, G: 0, B: 0},
		},
		{
			name:     "below zero temperature leaves only red",
			kelvin:   200,
			expected: colortemp.Gamma{R: 1, G: 0, B: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := colortemp.ToGamma(tt.kelvin)
			assert.InDelta(t, tt.expected.R, g.R, 1e-3)
			assert.InDelta(t, tt.expected.G, g.G, 1e-3)
			assert.InDelta(t, tt.expected.B, g.B, 1e-3)
		})
	}
}

func TestToGamma_CoolRegimeKeepsBlueSaturated(t *testing.T) {
	for kelvin := 6500; kelvin <= 25000; kelvin += 250 {
		g := colortemp.ToGamma(kelvin)
		assert.Equal(t, 1.0, g.B, "blue at %dK", kelvin)
		assert.LessOrEqual(t, g.R, 1.0)
		assert.LessOrEqual(t, g.G, 1.0)
		assert.GreaterOrEqual(t, g.R, 0.0)
	}
}

func TestToGamma_ChannelsInUnitRange(t *testing.T) {
	for kelvin := -1000; kelvin <= 40000; kelvin += 37 {
		g := colortemp.ToGamma(kelvin)
		for _, c := range []float64{g.R, g.G, g.B} {
			require.False(t, math.IsNaN(c), "NaN channel at %dK", kelvin)
			require.GreaterOrEqual(t, c, 0.0, "channel below 0 at %dK", kelvin)
			require.LessOrEqual(t, c, 1.0, "channel above 1 at %dK", kelvin)
		}
	}
}

func TestFromGamma(t *testing.T) {
	tests := []struct {
		name     string
		gamma    colortemp.Gamma
		expected int
	}{
		{
			name:     "neutral triple is normal temperature",
			gamma:    colortemp.Gamma{R: 1, G: 1, B: 1},
			expected: 6500,
		},
		{
			name:     "red only is zero temperature",
			gamma:    colortemp.Gamma{R: 1, G: 0, B: 0},
			expected: 700,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, colortemp.FromGamma(tt.gamma), 1)
		})
	}
}

func TestRoundTrip_WarmRegime(t *testing.T) {
	for kelvin := 1000; kelvin < colortemp.NormalTemperature; kelvin++ {
		result := colortemp.FromGamma(colortemp.ToGamma(kelvin))
		require.InDelta(t, kelvin, result, 1, "round-trip failed for %dK", kelvin)
	}
}

func TestRoundTrip_CoolRegime(t *testing.T) {
	for kelvin := colortemp.NormalTemperature; kelvin <= 25000; kelvin += 10 {
		result := colortemp.FromGamma(colortemp.ToGamma(kelvin))
		require.InDelta(t, kelvin, result, 1, "round-trip failed for %dK", kelvin)
	}
}

func TestGamma_Max(t *testing.T) {
	assert.Equal(t, 0.8, colortemp.Gamma{R: 0.2, G: 0.8, B: 0.5}.Max())
	assert.Equal(t, 0.0, colortemp.Gamma{}.Max())
}

func TestConstants(t *testing.T) {
	require.Equal(t, 6500, colortemp.NormalTemperature)
	require.Equal(t, 700, colortemp.ZeroTemperature)
	require.Equal(t, 4500, colortemp.NightTemperature)
	require.Equal(t, 65535.0, colortemp.MaxChannelValue)
}
