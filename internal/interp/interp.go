// Package interp reconstructs continuous values from sparse checkpoints.
package interp

import "errors"

// ErrDegenerateSegment is returned when both anchors share the same x.
var ErrDegenerateSegment = errors.New("degenerate segment: x0 == x1")

// Lerp linearly interpolates between (x0,y0) and (x1,y1) at x.
// The result is undefined when x0 == x1; use LerpChecked if the anchors
// are not known to be distinct.
func Lerp(x0, y0, x1, y1, x float64) float64 {
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// LerpChecked is Lerp with a guard against a zero-width segment.
func LerpChecked(x0, y0, x1, y1, x float64) (float64, error) {
	if x1 == x0 {
		return 0, ErrDegenerateSegment
	}
	return Lerp(x0, y0, x1, y1, x), nil
}
