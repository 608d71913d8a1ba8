package calibration

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square10() Corners {
	return Corners{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
}

func TestAverageSideLengthSquare(t *testing.T) {
	assert.InDelta(t, 10.0, AverageSideLength(square10()), 1e-12)
}

func TestAverageSideLengthRotationInvariant(t *testing.T) {
	// An irregular convex quad; average side length must not depend on
	// which corner the detector happened to start at.
	base := Corners{{1, 2}, {14, 1}, {16, 12}, {0, 11}}
	want := AverageSideLength(base)

	for shift := 1; shift < 4; shift++ {
		var rotated Corners
		for i := 0; i < 4; i++ {
			rotated[i] = base[(i+shift)%4]
		}
		assert.InDelta(t, want, AverageSideLength(rotated), 1e-12, "shift %d", shift)
	}
}

func TestMicrometersToMeters(t *testing.T) {
	assert.InDelta(t, 3.45e-6, MicrometersToMeters(3.45), 1e-18)
}

func TestFocalFromDistanceEndToEnd(t *testing.T) {
	// 10px average side, 10µm pitch, 0.1m tag at 2m:
	// L_m = 1e-4, f = (1e-4 / 0.1) * 2 = 2e-3 m = 2mm = 200px.
	fl, err := FocalFromDistance(square10(), 0.1, 2.0, MicrometersToMeters(10))
	require.NoError(t, err)
	assert.InDelta(t, 2e-3, fl.Meters, 1e-12)
	assert.InDelta(t, 200.0, fl.Pixels, 1e-9)
	assert.InDelta(t, 2.0, fl.Millimeters(), 1e-9)
}

func TestFocalFromDistanceScaling(t *testing.T) {
	pitch := MicrometersToMeters(10)

	base, err := FocalFromDistance(square10(), 0.1, 2.0, pitch)
	require.NoError(t, err)

	doubledDistance, err := FocalFromDistance(square10(), 0.1, 4.0, pitch)
	require.NoError(t, err)
	assert.InDelta(t, 2*base.Meters, doubledDistance.Meters, 1e-12)

	doubledWidth, err := FocalFromDistance(square10(), 0.2, 2.0, pitch)
	require.NoError(t, err)
	assert.InDelta(t, base.Meters/2, doubledWidth.Meters, 1e-12)
}

func TestFocalFromDistanceRejectsNonPositiveInputs(t *testing.T) {
	pitch := MicrometersToMeters(10)
	cases := []struct {
		name                       string
		width, distance, pixelSize float64
	}{
		{"zero width", 0, 2, pitch},
		{"negative width", -0.1, 2, pitch},
		{"zero distance", 0.1, 0, pitch},
		{"negative distance", 0.1, -2, pitch},
		{"zero pitch", 0.1, 2, 0},
		{"negative pitch", 0.1, 2, -pitch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FocalFromDistance(square10(), tc.width, tc.distance, tc.pixelSize)
			assert.Error(t, err)
		})
	}
}

func TestApparentDistance(t *testing.T) {
	assert.InDelta(t, 5.0, ApparentDistance(r3.Vector{X: 3, Y: 4, Z: 0}), 1e-12)
	assert.InDelta(t, math.Sqrt(3), ApparentDistance(r3.Vector{X: 1, Y: 1, Z: 1}), 1e-12)
}

func TestErrorPercent(t *testing.T) {
	got, err := ErrorPercent(5.0, 5.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-12)

	got, err = ErrorPercent(5.5, 5.0)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-9)

	// Undershoot reports the same magnitude as overshoot.
	got, err = ErrorPercent(4.5, 5.0)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-9)
}

func TestErrorPercentRejectsNonPositiveReference(t *testing.T) {
	_, err := ErrorPercent(5.0, 0)
	assert.Error(t, err)
	_, err = ErrorPercent(5.0, -1)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	mean, stddev := Summarize([]float64{2e-3, 2e-3, 2e-3})
	assert.InDelta(t, 2e-3, mean, 1e-15)
	assert.InDelta(t, 0.0, stddev, 1e-15)

	mean, stddev = Summarize([]float64{1, 3})
	assert.InDelta(t, 2.0, mean, 1e-12)
	assert.InDelta(t, math.Sqrt2, stddev, 1e-12)
}
