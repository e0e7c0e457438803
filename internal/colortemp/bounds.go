// SPDX-License-Identifier: GPL-3.0-only

package colortemp

import (
	"fmt"
	"math"
)

// Violation classifies a bound that a requested State crossed.
type Violation int

const (
	// ViolationReset means a non-positive temperature was replaced by
	// NormalTemperature.
	ViolationReset Violation = iota
	// ViolationBelowMinimum means the temperature was raised to ZeroTemperature.
	ViolationBelowMinimum
	// ViolationBrightnessUnderflow means a negative brightness was raised to 0.
	ViolationBrightnessUnderflow
	// ViolationBrightnessOverflow means a brightness above 1 was lowered to 1.
	ViolationBrightnessOverflow
	// ViolationBrightnessInvalid means a NaN brightness was replaced by 1.
	ViolationBrightnessInvalid
)

func (v Violation) String() string {
	switch v {
	case ViolationReset:
		return "reset"
	case ViolationBelowMinimum:
		return "below-minimum"
	case ViolationBrightnessUnderflow:
		return "brightness-underflow"
	case ViolationBrightnessOverflow:
		return "brightness-overflow"
	case ViolationBrightnessInvalid:
		return "brightness-invalid"
	default:
		return fmt.Sprintf("violation(%d)", int(v))
	}
}

// Warning describes a correction made by Bound.
type Warning struct {
	Violation Violation
	Requested float64
	Applied   float64
}

func (w Warning) String() string {
	switch w.Violation {
	case ViolationReset:
		return fmt.Sprintf("temperatures below 1K cannot be displayed, using %dK", NormalTemperature)
	case ViolationBelowMinimum:
		return fmt.Sprintf("temperatures below %dK cannot be displayed", ZeroTemperature)
	case ViolationBrightnessUnderflow:
		return "brightness values below 0.0 cannot be displayed"
	case ViolationBrightnessOverflow:
		return "brightness values above 1.0 cannot be displayed"
	case ViolationBrightnessInvalid:
		return "brightness is not a number, using 1.0"
	default:
		return w.Violation.String()
	}
}

// Bound clamps s into the displayable range and reports every correction.
// The returned State always has Temperature >= ZeroTemperature and
// Brightness in [0, 1]; a NaN brightness is replaced by 1.
func Bound(s State) (State, []Warning) {
	var warnings []Warning

	switch {
	case s.Temperature <= 0:
		warnings = append(warnings, Warning{ViolationReset, float64(s.Temperature), NormalTemperature})
		s.Temperature = NormalTemperature
	case s.Temperature < ZeroTemperature:
		warnings = append(warnings, Warning{ViolationBelowMinimum, float64(s.Temperature), ZeroTemperature})
		s.Temperature = ZeroTemperature
	}

	switch {
	case math.IsNaN(s.Brightness):
		warnings = append(warnings, Warning{ViolationBrightnessInvalid, s.Brightness, 1})
		s.Brightness = 1
	case s.Brightness < 0:
		warnings = append(warnings, Warning{ViolationBrightnessUnderflow, s.Brightness, 0})
		s.Brightness = 0
	case s.Brightness > 1:
		warnings = append(warnings, Warning{ViolationBrightnessOverflow, s.Brightness, 1})
		s.Brightness = 1
	}

	return s, warnings
}
