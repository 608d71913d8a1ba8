// Package detect wraps OpenCV's ArUco detector for the AprilTag dictionary
// families and turns raw marker output into corner sets the calibration
// math can consume. Pose estimation for a detected tag lives here too.
package detect

import (
	"errors"
	"fmt"
	"sort"

	"gocv.io/x/gocv"

	"tagcal/calibration"
	"tagcal/camera"
)

// Expected, non-fatal detection outcomes. Callers report these and skip the
// calculation instead of treating them as failures.
var (
	ErrNoTags       = errors.New("no tags found")
	ErrMultipleTags = errors.New("multiple tags found")
)

// Detection is one decoded marker: its tag ID and the four corner points in
// the detector's winding order.
type Detection struct {
	ID      int
	Corners calibration.Corners
}

var families = map[string]gocv.ArucoDictionaryCode{
	"tag16h5":  gocv.ArucoDictAprilTag_16h5,
	"tag25h9":  gocv.ArucoDictAprilTag_25h9,
	"tag36h10": gocv.ArucoDictAprilTag_36h10,
	"tag36h11": gocv.ArucoDictAprilTag_36h11,
}

// Families lists the supported tag family names, sorted, for usage text.
func Families() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detector finds markers of a single AprilTag family in grayscale frames.
type Detector struct {
	family   string
	detector gocv.ArucoDetector
}

// NewDetector builds a detector for the named tag family. The caller must
// Close it.
func NewDetector(family string) (*Detector, error) {
	code, ok := families[family]
	if !ok {
		return nil, fmt.Errorf("unknown tag family %q, supported: %v", family, Families())
	}

	dict := gocv.GetPredefinedDictionary(code)
	params := gocv.NewArucoDetectorParameters()
	return &Detector{
		family:   family,
		detector: gocv.NewArucoDetectorWithParams(dict, params),
	}, nil
}

// Close releases the underlying OpenCV detector.
func (d *Detector) Close() error {
	return d.detector.Close()
}

// Detect runs marker detection on one captured frame and returns every
// decoded tag. An empty result is not an error.
func (d *Detector) Detect(frame camera.Grayscale) ([]Detection, error) {
	mat, err := frame.Mat()
	if err != nil {
		return nil, fmt.Errorf("converting frame for detection: %w", err)
	}
	defer mat.Close()

	corners, ids, _ := d.detector.DetectMarkers(mat)

	detections := make([]Detection, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) || len(corners[i]) != 4 {
			return nil, fmt.Errorf("detector returned malformed corners for tag %d", id)
		}
		var c calibration.Corners
		for j, pt := range corners[i] {
			c[j] = calibration.Point{X: float64(pt.X), Y: float64(pt.Y)}
		}
		detections = append(detections, Detection{ID: id, Corners: c})
	}
	return detections, nil
}

// Single enforces the one-tag-per-frame policy: exactly one detection passes
// through, zero or several come back as ErrNoTags / ErrMultipleTags. The
// tool deliberately refuses to pick between multiple tags rather than guess.
func Single(detections []Detection) (Detection, error) {
	switch len(detections) {
	case 0:
		return Detection{}, ErrNoTags
	case 1:
		return detections[0], nil
	default:
		return Detection{}, ErrMultipleTags
	}
}
