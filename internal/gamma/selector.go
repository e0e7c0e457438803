// SPDX-License-Identifier: GPL-3.0-only

package gamma

import "strconv"

// Selector chooses which CRTCs of a screen an operation touches.
type Selector struct {
	index  int
	single bool
}

// AllCrtcs selects every CRTC of a screen.
func AllCrtcs() Selector {
	return Selector{}
}

// SingleCrtc selects the CRTC at a zero-based index. A negative index selects
// every CRTC.
func SingleCrtc(index int) Selector {
	if index < 0 {
		return AllCrtcs()
	}
	return Selector{index: index, single: true}
}

// Index returns the selected CRTC index and whether a single CRTC is selected.
func (s Selector) Index() (int, bool) {
	return s.index, s.single
}

func (s Selector) String() string {
	if !s.single {
		return "all"
	}
	return strconv.Itoa(s.index)
}

// ResolveSelector returns the CRTCs chosen by s from available. An index past
// the end falls back to every CRTC.
func ResolveSelector(s Selector, available []CrtcID) []CrtcID {
	if s.single && s.index < len(available) {
		return []CrtcID{available[s.index]}
	}
	out := make([]CrtcID, len(available))
	copy(out, available)
	return out
}
