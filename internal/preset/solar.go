// SPDX-License-Identifier: GPL-3.0-only

package preset

import (
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/shini4i/ksct/internal/colortemp"
)

const (
	// ElevationNight is the solar elevation in degrees below which the night
	// preset applies in full.
	ElevationNight = -6.0

	// ElevationDay is the solar elevation in degrees above which the day
	// preset applies in full.
	ElevationDay = 3.0
)

// Solar picks a state for the sun position at now, interpolating between the
// night and day presets while the sun is between ElevationNight and
// ElevationDay.
func Solar(now time.Time, lat, lng float64, p Presets) colortemp.State {
	return blend(sunrise.Elevation(lat, lng, now), p)
}

func blend(elevation float64, p Presets) colortemp.State {
	var progress float64
	switch {
	case elevation < ElevationNight:
		progress = 0
	case elevation >= ElevationDay:
		progress = 1
	default:
		progress = (elevation - ElevationNight) / (ElevationDay - ElevationNight)
	}

	return colortemp.State{
		Temperature: int(math.Round((1-progress)*float64(p.Night.Temperature) + progress*float64(p.Day.Temperature))),
		Brightness:  (1-progress)*p.Night.Brightness + progress*p.Day.Brightness,
	}
}
