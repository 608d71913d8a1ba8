package detect

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"tagcal/camera"
)

var (
	outlineColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	labelColor   = color.RGBA{R: 0, G: 0, B: 255, A: 0}
)

// SaveDebugFrame writes the captured frame to disk as a debugging artifact.
// Any detections are drawn onto it first: the tag outline in green and the
// tag ID in red at the first corner.
func SaveDebugFrame(path string, frame camera.Grayscale, detections []Detection) error {
	gray, err := frame.Mat()
	if err != nil {
		return fmt.Errorf("converting frame for saving: %w", err)
	}
	defer gray.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.CvtColor(gray, &out, gocv.ColorGrayToBGR)

	for _, d := range detections {
		for i := 0; i < 4; i++ {
			a := d.Corners[i]
			b := d.Corners[(i+1)%4]
			gocv.Line(&out,
				image.Pt(int(a.X), int(a.Y)),
				image.Pt(int(b.X), int(b.Y)),
				outlineColor, 2)
		}
		gocv.PutText(&out, fmt.Sprintf("id %d", d.ID),
			image.Pt(int(d.Corners[0].X), int(d.Corners[0].Y)-8),
			gocv.FontHersheySimplex, 0.6, labelColor, 2)
	}

	if ok := gocv.IMWrite(path, out); !ok {
		return fmt.Errorf("writing debug frame to %s", path)
	}
	return nil
}
