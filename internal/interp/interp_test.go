package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLerp_Anchors(t *testing.T) {
	segments := [][4]float64{
		{0, 100, 10, 200},
		{-5, 3, 5, -3},
		{1.5, 0, 2.25, 1e6},
		{100, 42, 101, 42},
	}

	for _, s := range segments {
		x0, y0, x1, y1 := s[0], s[1], s[2], s[3]
		assert.InDelta(t, y0, Lerp(x0, y0, x1, y1, x0), 1e-9)
		assert.InDelta(t, y1, Lerp(x0, y0, x1, y1, x1), 1e-9)
	}
}

func TestLerp_Linear(t *testing.T) {
	// Midpoint of [[0,100],[10,200]] is 150.
	assert.InDelta(t, 150.0, Lerp(0, 100, 10, 200, 5), 1e-9)

	// Equal steps in x give equal steps in y.
	prev := Lerp(0, 100, 10, 200, 0)
	for x := 1.0; x <= 10; x++ {
		v := Lerp(0, 100, 10, 200, x)
		assert.InDelta(t, 10.0, v-prev, 1e-9, "x=%v", x)
		prev = v
	}
}

func TestLerp_DegenerateIsNotFinite(t *testing.T) {
	v := Lerp(3, 1, 3, 2, 3)
	assert.True(t, math.IsNaN(v) || math.IsInf(v, 0))
}

func TestLerpChecked(t *testing.T) {
	v, err := LerpChecked(0, 0, 4, 8, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-9)

	_, err = LerpChecked(3, 1, 3, 2, 3)
	assert.ErrorIs(t, err, ErrDegenerateSegment)
}
