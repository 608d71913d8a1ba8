package detect

import (
	"github.com/golang/geo/r3"
	"gocv.io/x/gocv"
)

// Intrinsics are the pinhole camera parameters handed to the pose solver.
// Square pixels are assumed throughout, so Fx always equals Fy, and the
// principal point is always the geometric center of the frame.
type Intrinsics struct {
	Fx float64
	Fy float64
	Cx float64
	Cy float64
}

// IntrinsicsFor builds intrinsics for a frame of the given dimensions and a
// focal length in pixels.
func IntrinsicsFor(width, height int, focalPx float64) Intrinsics {
	return Intrinsics{
		Fx: focalPx,
		Fy: focalPx,
		Cx: float64(width) / 2.0,
		Cy: float64(height) / 2.0,
	}
}

// Pose is the estimated 6-DOF pose of a tag, reduced to the part the tools
// use: the translation from the camera in meters.
type Pose struct {
	Translation r3.Vector
}

// EstimatePose solves for the tag's pose from its corner pixels, its known
// physical width, and the camera intrinsics. A false return means the solver
// could not produce a pose, which is a normal outcome, not an error.
func EstimatePose(d Detection, tagWidth float64, in Intrinsics) (Pose, bool) {
	// Tag corner model centered on the tag, z=0, matching the detector's
	// top-left, top-right, bottom-right, bottom-left corner order.
	half := float32(tagWidth / 2.0)
	objectPoints := gocv.NewPoint3fVectorFromPoints([]gocv.Point3f{
		{X: -half, Y: half, Z: 0},
		{X: half, Y: half, Z: 0},
		{X: half, Y: -half, Z: 0},
		{X: -half, Y: -half, Z: 0},
	})
	defer objectPoints.Close()

	imagePoints := gocv.NewPoint2fVectorFromPoints([]gocv.Point2f{
		{X: float32(d.Corners[0].X), Y: float32(d.Corners[0].Y)},
		{X: float32(d.Corners[1].X), Y: float32(d.Corners[1].Y)},
		{X: float32(d.Corners[2].X), Y: float32(d.Corners[2].Y)},
		{X: float32(d.Corners[3].X), Y: float32(d.Corners[3].Y)},
	})
	defer imagePoints.Close()

	cameraMatrix := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 3, 3, gocv.MatTypeCV64F)
	defer cameraMatrix.Close()
	cameraMatrix.SetDoubleAt(0, 0, in.Fx)
	cameraMatrix.SetDoubleAt(1, 1, in.Fy)
	cameraMatrix.SetDoubleAt(0, 2, in.Cx)
	cameraMatrix.SetDoubleAt(1, 2, in.Cy)
	cameraMatrix.SetDoubleAt(2, 2, 1.0)

	// No lens distortion model; frames come straight off the webcam.
	distCoeffs := gocv.NewMat()
	defer distCoeffs.Close()

	rvec := gocv.NewMat()
	defer rvec.Close()
	tvec := gocv.NewMat()
	defer tvec.Close()

	if ok := gocv.SolvePnP(objectPoints, imagePoints, cameraMatrix, distCoeffs, &rvec, &tvec, false, 0); !ok {
		return Pose{}, false
	}

	return Pose{
		Translation: r3.Vector{
			X: tvec.GetDoubleAt(0, 0),
			Y: tvec.GetDoubleAt(1, 0),
			Z: tvec.GetDoubleAt(2, 0),
		},
	}, true
}
