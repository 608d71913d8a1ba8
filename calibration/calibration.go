// Package calibration holds the pure geometry behind the focal-length and
// distance-validation tools. Nothing in here touches the camera or the
// detector; inputs come in as plain numbers and corner coordinates, results
// go out as values.
package calibration

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// MetersPerMicrometer converts sensor pixel pitch from the micrometer units
// used on datasheets (and on the command line) to meters.
const MetersPerMicrometer = 1e-6

// Point is a pixel coordinate reported by the marker detector.
type Point struct {
	X float64
	Y float64
}

// Corners are the four corner points of one detected tag, in the detector's
// winding order. The math below only assumes the order is consistent.
type Corners [4]Point

// AverageSideLength closes the corner polygon and returns the mean length of
// its four edges, in pixels. The result is the same for any cyclic rotation
// of the starting corner.
func AverageSideLength(c Corners) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		a := c[i]
		b := c[(i+1)%4]
		sum += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return sum / 4.0
}

// MicrometersToMeters converts a pixel pitch entered in micrometers.
func MicrometersToMeters(um float64) float64 {
	return um * MetersPerMicrometer
}

// FocalLength is an estimated focal length in both unit systems the tools
// report: meters (sensor-side) and pixels (what the pose estimator wants).
type FocalLength struct {
	Meters float64
	Pixels float64
}

// Millimeters is a convenience for printing.
func (f FocalLength) Millimeters() float64 {
	return f.Meters * 1000.0
}

// FocalFromDistance estimates the focal length from a tag of known physical
// width seen at a known distance. The tag's average side length on the
// sensor is avgSide * pixelPitch meters; by similar triangles the focal
// length is that apparent size scaled by distance over physical width.
//
// tagWidth and tagDistance are in meters, pixelPitch is in meters per pixel.
// All three must be positive.
func FocalFromDistance(c Corners, tagWidth, tagDistance, pixelPitch float64) (FocalLength, error) {
	if tagWidth <= 0 {
		return FocalLength{}, fmt.Errorf("tag width must be positive, got %v", tagWidth)
	}
	if tagDistance <= 0 {
		return FocalLength{}, fmt.Errorf("tag distance must be positive, got %v", tagDistance)
	}
	if pixelPitch <= 0 {
		return FocalLength{}, fmt.Errorf("pixel pitch must be positive, got %v", pixelPitch)
	}

	sidePx := AverageSideLength(c)
	sideMeters := sidePx * pixelPitch
	focalMeters := sideMeters / tagWidth * tagDistance

	return FocalLength{
		Meters: focalMeters,
		Pixels: focalMeters / pixelPitch,
	}, nil
}

// ApparentDistance is the straight-line distance to the tag implied by a
// pose translation vector, in the same units the pose was estimated in.
func ApparentDistance(translation r3.Vector) float64 {
	return translation.Norm()
}

// ErrorPercent is the absolute percentage difference between an apparent
// distance and a known reference distance. The reference must be positive;
// a zero or negative reference is rejected here rather than letting the
// division produce Inf.
func ErrorPercent(apparent, reference float64) (float64, error) {
	if reference <= 0 {
		return 0, fmt.Errorf("reference distance must be positive, got %v", reference)
	}
	return math.Abs(apparent-reference) / reference * 100.0, nil
}

// Summarize reports the mean and sample standard deviation of repeated
// focal-length estimates. With fewer than two samples the deviation is NaN,
// so callers should only summarize multi-sample runs.
func Summarize(samples []float64) (mean, stddev float64) {
	return stat.MeanStdDev(samples, nil)
}
