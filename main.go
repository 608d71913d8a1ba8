// tagcal captures still frames from a webcam, finds an AprilTag-family
// fiducial marker in them, and uses the tag's known physical size to either
// estimate the camera's focal length or check how well a focal length
// predicts the distance to the tag.
//
// The three workflows share one pipeline and are picked by a mode argument:
//
//	tagcal --tag-width=0.1 --tag-distance=2 -p=3.45 calibrate
//	tagcal --tag-width=0.1 --tag-distance1=2 --tag-distance2=4 --focal-length=950 validate
//	tagcal --tag-width=0.1 --tag-distance1=2 --tag-distance2=4 search
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tagcal/calibration"
	"tagcal/camera"
	"tagcal/config"
	"tagcal/detect"
)

var (
	tagDistance  = flag.Float64("tag-distance", 0, "Known distance to the tag in meters (calibrate mode)\n\t\tExample: --tag-distance=2.0")
	tagDistance1 = flag.Float64("tag-distance1", 0, "Known distance to the tag in the first frame in meters (validate and search modes)")
	tagDistance2 = flag.Float64("tag-distance2", 0, "Known distance to the tag in the second frame in meters (validate and search modes)")
	tagWidth     = flag.Float64("tag-width", 0, "Physical width of the tag in meters (required)\n\t\tExample: --tag-width=0.1 for a 10cm tag")
	focalLength  = flag.Float64("focal-length", 0, "Focal length in pixels to validate against (validate mode)")
	tagFamily    = flag.String("tag-family", "tag36h11", "AprilTag family to detect, one of: tag16h5, tag25h9, tag36h10, tag36h11")
	samples      = flag.Int("samples", 1, "Number of frames to capture and average in calibrate mode\n\t\tWith more than one sample the mean and standard deviation are reported")
	configPath   = flag.String("config", "", "Optional YAML profile with calibration constants; explicit flags override it")
	debugMode    = flag.Bool("debug", false, "Enable debug logging (camera open, frame sizes, detection details)")

	pixelWidth  float64
	cameraIndex int
	withDelay   float64
)

func init() {
	flag.Float64Var(&pixelWidth, "pixel-width", 0, "Sensor pixel pitch in micrometers (calibrate mode)\n\t\tExample: --pixel-width=3.45 for a 3.45um sensor")
	flag.Float64Var(&pixelWidth, "p", 0, "Shorthand for --pixel-width")
	flag.IntVar(&cameraIndex, "camera-index", 0, "The index of the camera to use as it appears to the OS")
	flag.IntVar(&cameraIndex, "c", 0, "Shorthand for --camera-index")
	flag.Float64Var(&withDelay, "with-delay", 0, "Seconds to wait after the Enter prompt before capturing")
	flag.Float64Var(&withDelay, "w", 0, "Shorthand for --with-delay")
}

// options is the merged view of flags and the optional config profile,
// immutable for the duration of one run.
type options struct {
	tagDistance  float64
	tagDistance1 float64
	tagDistance2 float64
	tagWidth     float64
	pixelWidth   float64 // micrometers
	focalLength  float64 // pixels
	cameraIndex  int
	delay        time.Duration
	tagFamily    string
	samples      int
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: tagcal [flags] <mode>

Modes:
  calibrate   Capture one frame and estimate the focal length from a tag of
              known width at a known distance (requires --tag-width,
              --tag-distance, --pixel-width; --samples repeats the capture)
  validate    Capture two frames and check the apparent distance to the tag
              against two known distances using a known focal length
              (requires --tag-width, --tag-distance1, --tag-distance2,
              --focal-length)
  search      Capture two frames, then interactively type focal length
              guesses and see the resulting apparent distances and errors
              (requires --tag-width, --tag-distance1, --tag-distance2)

Each captured frame is saved next to the binary (test.png, or test1.png and
test2.png for the two-frame modes) with any detected tag outlined.

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	logger := newLogger(*debugMode)
	defer func() { _ = logger.Sync() }()

	opts, err := buildOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	detector, err := detect.NewDetector(opts.tagFamily)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer detector.Close()

	scanner := bufio.NewScanner(os.Stdin)

	switch mode := flag.Arg(0); mode {
	case "calibrate":
		err = runCalibrate(opts, detector, scanner, logger)
	case "validate":
		err = runValidate(opts, detector, scanner, logger)
	case "search":
		err = runSearch(opts, detector, scanner, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n\n", mode)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		// Keep the interactive session clean unless something is wrong.
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: building logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// canonicalFlag maps shorthand flag names onto their long forms so the
// profile merge only has to reason about one name per setting.
func canonicalFlag(name string) string {
	switch name {
	case "p":
		return "pixel-width"
	case "c":
		return "camera-index"
	case "w":
		return "with-delay"
	}
	return name
}

func buildOptions() (options, error) {
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[canonicalFlag(f.Name)] = true })

	opts := options{
		tagDistance:  *tagDistance,
		tagDistance1: *tagDistance1,
		tagDistance2: *tagDistance2,
		tagWidth:     *tagWidth,
		pixelWidth:   pixelWidth,
		focalLength:  *focalLength,
		cameraIndex:  cameraIndex,
		tagFamily:    *tagFamily,
		samples:      *samples,
	}
	delaySeconds := withDelay

	if *configPath != "" {
		prof, err := config.Load(*configPath)
		if err != nil {
			return options{}, err
		}
		if !explicit["tag-distance"] && prof.TagDistance != 0 {
			opts.tagDistance = prof.TagDistance
		}
		if !explicit["tag-distance1"] && prof.TagDistance1 != 0 {
			opts.tagDistance1 = prof.TagDistance1
		}
		if !explicit["tag-distance2"] && prof.TagDistance2 != 0 {
			opts.tagDistance2 = prof.TagDistance2
		}
		if !explicit["tag-width"] && prof.TagWidth != 0 {
			opts.tagWidth = prof.TagWidth
		}
		if !explicit["pixel-width"] && prof.PixelWidth != 0 {
			opts.pixelWidth = prof.PixelWidth
		}
		if !explicit["focal-length"] && prof.FocalLength != 0 {
			opts.focalLength = prof.FocalLength
		}
		if !explicit["camera-index"] && prof.CameraIndex != 0 {
			opts.cameraIndex = prof.CameraIndex
		}
		if !explicit["with-delay"] && prof.WithDelay != 0 {
			delaySeconds = prof.WithDelay
		}
		if !explicit["tag-family"] && prof.TagFamily != "" {
			opts.tagFamily = prof.TagFamily
		}
		if !explicit["samples"] && prof.Samples != 0 {
			opts.samples = prof.Samples
		}
	}

	if delaySeconds < 0 {
		return options{}, fmt.Errorf("--with-delay must not be negative, got %v", delaySeconds)
	}
	opts.delay = time.Duration(delaySeconds * float64(time.Second))
	return opts, nil
}

// captureFrame prompts for Enter, captures one frame, runs detection on it,
// and saves the annotated debug image. A closed stdin during the prompt ends
// the run.
func captureFrame(opts options, detector *detect.Detector, scanner *bufio.Scanner, logger *zap.Logger, prompt, path string) (camera.Grayscale, []detect.Detection, error) {
	fmt.Println(prompt)
	if !scanner.Scan() {
		return camera.Grayscale{}, nil, errors.New("standard input closed before capture")
	}

	fmt.Println("Capturing frame")
	frame, err := camera.Capture(opts.cameraIndex, opts.delay, logger)
	if err != nil {
		return camera.Grayscale{}, nil, err
	}
	fmt.Println("Captured frame")

	detections, err := detector.Detect(frame)
	if err != nil {
		return camera.Grayscale{}, nil, err
	}
	logger.Debug("detection finished",
		zap.String("frame", path),
		zap.Int("tags", len(detections)))

	if err := detect.SaveDebugFrame(path, frame, detections); err != nil {
		// The saved frame is a debugging aid, not part of the result.
		logger.Warn("could not save debug frame", zap.String("path", path), zap.Error(err))
	}
	return frame, detections, nil
}

// gateSingle applies the one-tag-per-frame policy, printing the standard
// message when a frame is unusable.
func gateSingle(detections []detect.Detection, which string) (detect.Detection, bool) {
	d, err := detect.Single(detections)
	switch {
	case errors.Is(err, detect.ErrNoTags):
		fmt.Printf("No tags found in %s\n", which)
		return detect.Detection{}, false
	case errors.Is(err, detect.ErrMultipleTags):
		fmt.Printf("Multiple tags found in %s\n", which)
		return detect.Detection{}, false
	}
	return d, true
}

func runCalibrate(opts options, detector *detect.Detector, scanner *bufio.Scanner, logger *zap.Logger) error {
	if opts.tagWidth <= 0 {
		return errors.New("--tag-width must be positive")
	}
	if opts.tagDistance <= 0 {
		return errors.New("--tag-distance must be positive")
	}
	if opts.pixelWidth <= 0 {
		return errors.New("--pixel-width must be positive")
	}
	if opts.samples < 1 {
		return errors.New("--samples must be at least 1")
	}

	pitch := calibration.MicrometersToMeters(opts.pixelWidth)

	var estimates []float64
	for i := 0; i < opts.samples; i++ {
		prompt := "Press Enter to capture the frame"
		path := "test.png"
		if opts.samples > 1 {
			prompt = fmt.Sprintf("Press Enter to capture frame %d of %d", i+1, opts.samples)
			path = fmt.Sprintf("test%d.png", i+1)
		}

		_, detections, err := captureFrame(opts, detector, scanner, logger, prompt, path)
		if err != nil {
			return err
		}
		tag, ok := gateSingle(detections, "image")
		if !ok {
			continue
		}

		fl, err := calibration.FocalFromDistance(tag.Corners, opts.tagWidth, opts.tagDistance, pitch)
		if err != nil {
			return err
		}
		fmt.Printf("Estimated focal length: %.3fmm (%.1fpx)\n", fl.Millimeters(), fl.Pixels)
		estimates = append(estimates, fl.Pixels)
	}

	if len(estimates) > 1 {
		mean, stddev := calibration.Summarize(estimates)
		fmt.Printf("Focal length over %d samples: mean %.1fpx, stddev %.2fpx\n", len(estimates), mean, stddev)
	}
	return nil
}

// measuredFrame is one captured frame with its accepted tag and the known
// reference distance for that frame.
type measuredFrame struct {
	ordinal  int
	frame    camera.Grayscale
	tag      detect.Detection
	distance float64
}

// reportApparentDistance estimates the tag pose at the given focal length
// and prints the apparent distance plus its error against the reference. A
// failed pose estimate is reported and returns false, but is not an error.
func reportApparentDistance(m measuredFrame, tagWidth, focalPx float64) (bool, error) {
	in := detect.IntrinsicsFor(m.frame.Width, m.frame.Height, focalPx)
	pose, ok := detect.EstimatePose(m.tag, tagWidth, in)
	if !ok {
		fmt.Println("Failed to estimate pose")
		return false, nil
	}

	apparent := calibration.ApparentDistance(pose.Translation)
	errPct, err := calibration.ErrorPercent(apparent, m.distance)
	if err != nil {
		return false, err
	}
	fmt.Printf("Apparent distance %d: %.2fm\n", m.ordinal, apparent)
	fmt.Printf("Error %d: %.1f%%\n", m.ordinal, errPct)
	return true, nil
}

// captureTwo runs the shared two-frame front half of the validate and
// search modes. ok is false when a frame had zero or multiple tags, which
// ends the run without a result.
func captureTwo(opts options, detector *detect.Detector, scanner *bufio.Scanner, logger *zap.Logger) (frames [2]measuredFrame, ok bool, err error) {
	frame1, detections1, err := captureFrame(opts, detector, scanner, logger,
		"Press Enter to capture the first frame", "test1.png")
	if err != nil {
		return frames, false, err
	}
	frame2, detections2, err := captureFrame(opts, detector, scanner, logger,
		"Press Enter to capture the second frame", "test2.png")
	if err != nil {
		return frames, false, err
	}

	tag1, ok1 := gateSingle(detections1, "first image")
	if !ok1 {
		return frames, false, nil
	}
	tag2, ok2 := gateSingle(detections2, "second image")
	if !ok2 {
		return frames, false, nil
	}

	frames[0] = measuredFrame{ordinal: 1, frame: frame1, tag: tag1, distance: opts.tagDistance1}
	frames[1] = measuredFrame{ordinal: 2, frame: frame2, tag: tag2, distance: opts.tagDistance2}
	return frames, true, nil
}

func validateTwoFrameFlags(opts options) error {
	if opts.tagWidth <= 0 {
		return errors.New("--tag-width must be positive")
	}
	if opts.tagDistance1 <= 0 {
		return errors.New("--tag-distance1 must be positive")
	}
	if opts.tagDistance2 <= 0 {
		return errors.New("--tag-distance2 must be positive")
	}
	return nil
}

func runValidate(opts options, detector *detect.Detector, scanner *bufio.Scanner, logger *zap.Logger) error {
	if err := validateTwoFrameFlags(opts); err != nil {
		return err
	}
	if opts.focalLength <= 0 {
		return errors.New("--focal-length must be positive")
	}

	frames, ok, err := captureTwo(opts, detector, scanner, logger)
	if err != nil || !ok {
		return err
	}

	for _, m := range frames {
		if _, err := reportApparentDistance(m, opts.tagWidth, opts.focalLength); err != nil {
			return err
		}
	}
	return nil
}

func runSearch(opts options, detector *detect.Detector, scanner *bufio.Scanner, logger *zap.Logger) error {
	if err := validateTwoFrameFlags(opts); err != nil {
		return err
	}

	frames, ok, err := captureTwo(opts, detector, scanner, logger)
	if err != nil || !ok {
		return err
	}

	for {
		fmt.Println("\nType a guess for focal length px (q to quit)")
		if !scanner.Scan() {
			// stdin closed; done guessing.
			return nil
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "q" || text == "quit" {
			return nil
		}

		guess, parseErr := strconv.ParseFloat(text, 64)
		if parseErr != nil {
			fmt.Println("Failed to parse focal length guess")
			continue
		}
		if guess <= 0 {
			fmt.Println("Focal length guess must be positive")
			continue
		}

		for _, m := range frames {
			reported, err := reportApparentDistance(m, opts.tagWidth, guess)
			if err != nil {
				return err
			}
			if !reported {
				break
			}
		}
	}
}
