// Package camera is the frame source: it opens a webcam by OS device index,
// grabs a single still frame, and hands it back as a plain grayscale byte
// buffer. The capture device is opened and released inside Capture, so no
// camera handle ever outlives one frame.
package camera

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Grayscale is the one in-memory image representation the rest of the tool
// works with. Both the capture side and the detection side adapt to it, so
// there is no per-library image conversion anywhere else.
type Grayscale struct {
	Width  int
	Height int
	Pixels []byte // row-major, one byte per pixel
}

// Validate checks that the buffer matches the declared dimensions.
func (g Grayscale) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", g.Width, g.Height)
	}
	if len(g.Pixels) != g.Width*g.Height {
		return fmt.Errorf("frame buffer is %d bytes, expected %d for %dx%d",
			len(g.Pixels), g.Width*g.Height, g.Width, g.Height)
	}
	return nil
}

// Mat copies the frame into an OpenCV Mat. The caller owns the returned Mat
// and must Close it.
func (g Grayscale) Mat() (gocv.Mat, error) {
	if err := g.Validate(); err != nil {
		return gocv.Mat{}, err
	}
	return gocv.NewMatFromBytes(g.Height, g.Width, gocv.MatTypeCV8U, g.Pixels)
}

// Capture opens the camera at the given device index, waits out the capture
// delay, reads one frame, converts it to grayscale, and releases the device.
// Every failure here is fatal to the run; there is no retry.
func Capture(index int, delay time.Duration, logger *zap.Logger) (Grayscale, error) {
	if delay > 0 {
		logger.Debug("waiting before capture", zap.Duration("delay", delay))
		time.Sleep(delay)
	}

	webcam, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return Grayscale{}, fmt.Errorf("opening camera %d: %w", index, err)
	}
	defer webcam.Close()

	img := gocv.NewMat()
	defer img.Close()

	if ok := webcam.Read(&img); !ok {
		return Grayscale{}, fmt.Errorf("reading frame from camera %d", index)
	}
	if img.Empty() {
		return Grayscale{}, fmt.Errorf("camera %d returned an empty frame", index)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
	} else {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}

	frame := Grayscale{Width: gray.Cols(), Height: gray.Rows(), Pixels: gray.ToBytes()}
	logger.Debug("captured frame",
		zap.Int("camera", index),
		zap.Int("width", frame.Width),
		zap.Int("height", frame.Height))
	return frame, nil
}
