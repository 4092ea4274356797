package features

import (
	"fmt"
	"math"

	"github.com/cucumber/godog"

	"github.com/gophi/landmark/internal/cnn"
	"github.com/gophi/landmark/internal/detect"
	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/onnxmock"
	"github.com/gophi/landmark/internal/tensor"
)

// world carries the scratch state one scenario builds up across its
// Given/When/Then steps. InitializeScenario, which godog calls once per
// scenario, builds a fresh one.
type world struct {
	suppressor *detect.Suppressor
	dets       []detect.RawDetection
	results    []detect.RawDetection

	mapper cnn.ColorMapper

	tensor *tensor.Tensor
	view   tensor.View

	detector  *detect.Detector
	detection []detect.Detection
}

func rawDetection(conf, cx, cy, w, h float32) detect.RawDetection {
	return detect.RawDetection{
		Confidence: conf,
		Box:        detect.BoundingRect{XCenter: cx, YCenter: cy, W: w, H: h},
	}
}

func (w *world) nmsRemoveDuplicate() error {
	w.dets = []detect.RawDetection{
		rawDetection(0.6, 0, 0, 1, 1),
		rawDetection(0.55, 0, 0, 1.5, 1.5),
	}
	return nil
}

func (w *world) nmsDisjoint() error {
	w.dets = []detect.RawDetection{
		rawDetection(1.0, 0, 0, 1, 1),
		rawDetection(1.0, 5, 0, 1, 1),
	}
	return nil
}

func (w *world) nmaOverlapping() error {
	w.dets = []detect.RawDetection{
		rawDetection(1.0, -1, 3, 1, 1),
		rawDetection(0.5, -1, 3, 4, 4),
	}
	return nil
}

func (w *world) runSuppressorIn(mode string, iou float64) error {
	var m detect.Mode
	switch mode {
	case "remove":
		m = detect.Remove
	case "average":
		m = detect.Average
	default:
		return fmt.Errorf("unknown suppressor mode %q", mode)
	}
	w.suppressor = detect.NewSuppressor(float32(iou), m)
	w.results = w.suppressor.Run(w.dets)
	return nil
}

func (w *world) runSuppressorInRemoveModeWithTheDefaultIoUThreshold() error {
	return w.runSuppressorIn("remove", 0.3)
}

func (w *world) runSuppressorInAverageModeWithIoUThreshold(iou float64) error {
	return w.runSuppressorIn("average", iou)
}

func (w *world) exactlyOneDetectionRemainsWithConfidenceAndSize(conf, size float64) error {
	if len(w.results) != 1 {
		return fmt.Errorf("expected exactly 1 surviving detection, got %d", len(w.results))
	}
	got := w.results[0]
	if math.Abs(float64(got.Confidence)-conf) > 1e-6 {
		return fmt.Errorf("expected confidence %v, got %v", conf, got.Confidence)
	}
	if math.Abs(float64(got.Box.W)-size) > 1e-6 || math.Abs(float64(got.Box.H)-size) > 1e-6 {
		return fmt.Errorf("expected size %vx%v, got %vx%v", size, size, got.Box.W, got.Box.H)
	}
	return nil
}

func (w *world) bothDetectionsRemainUnchanged() error {
	if len(w.results) != 2 {
		return fmt.Errorf("expected both detections to survive, got %d", len(w.results))
	}
	return nil
}

func (w *world) oneDetectionRemainsWithConfidenceCenteredAtWithSize(conf, cx, cy, size float64) error {
	if len(w.results) != 1 {
		return fmt.Errorf("expected exactly 1 surviving detection, got %d", len(w.results))
	}
	got := w.results[0]
	if math.Abs(float64(got.Confidence)-conf) > 1e-6 {
		return fmt.Errorf("expected confidence %v, got %v", conf, got.Confidence)
	}
	if math.Abs(float64(got.Box.XCenter)-cx) > 1e-6 || math.Abs(float64(got.Box.YCenter)-cy) > 1e-6 {
		return fmt.Errorf("expected center (%v, %v), got (%v, %v)", cx, cy, got.Box.XCenter, got.Box.YCenter)
	}
	if math.Abs(float64(got.Box.W)-size) > 1e-6 || math.Abs(float64(got.Box.H)-size) > 1e-6 {
		return fmt.Errorf("expected size %vx%v, got %vx%v", size, size, got.Box.W, got.Box.H)
	}
	return nil
}

func (w *world) aLinearColorMapperFromTo(start, end float64) error {
	w.mapper = cnn.CreateLinearColorMapper(float32(start), float32(end))
	return nil
}

func (w *world) mappingYieldsApproximately(name string, r, g, b float64) error {
	var c image.Color
	switch name {
	case "black":
		c = image.Black
	case "white":
		c = image.White
	case "gray 128":
		c = image.FromRGB8(128, 128, 128)
	default:
		return fmt.Errorf("unknown color %q", name)
	}
	got := w.mapper(c)
	want := [3]float64{r, g, b}
	for i, g := range got {
		if math.Abs(float64(g)-want[i]) > 0.01 {
			return fmt.Errorf("channel %d: expected approximately %v, got %v", i, want[i], g)
		}
	}
	return nil
}

func (w *world) aTensorBuiltFromShapeInConstructionOrder(dims string) error {
	shape, err := parseIntList(dims)
	if err != nil {
		return err
	}
	next := float32(0)
	w.tensor = tensor.FromShapeFn(shape, func([]int) float32 {
		v := next
		next++
		return v
	})
	return nil
}

func (w *world) iIndexItAt(indices string) error {
	idx, err := parseIntList(indices)
	if err != nil {
		return err
	}
	w.view = w.tensor.Index(idx...)
	return nil
}

func (w *world) theResultingViewHasShapeAndEqualsTheLastConstructedValues(shapeStr string) error {
	wantShape, err := parseIntList(shapeStr)
	if err != nil {
		return err
	}
	gotShape := w.view.Shape()
	if len(gotShape) != len(wantShape) {
		return fmt.Errorf("expected shape rank %d, got %d (%v)", len(wantShape), len(gotShape), gotShape)
	}
	for i := range wantShape {
		if gotShape[i] != wantShape[i] {
			return fmt.Errorf("expected shape %v, got %v", wantShape, gotShape)
		}
	}

	flat := w.tensor.Flat()
	got := w.view.AsSlice()
	want := flat[len(flat)-len(got):]
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("expected trailing values %v, got %v", want, got)
		}
	}
	return nil
}

// faceDetectorBoxTensor hand-builds the 16-float-per-anchor box output
// a BlazeFace-family model emits, following ExtractDetections' layout
// (4 box floats, then 6 keypoints x/y). Only anchor 0 carries a real
// box; every other anchor reads all-zero. The two eye keypoints are
// offset left/right of center with matching y, so the decoded detection
// has level eyes and near-zero rotation.
func faceDetectorBoxTensor(numAnchors int) *tensor.Tensor {
	return tensor.FromShapeFn([]int{1, numAnchors, 16}, func(idx []int) float32 {
		if idx[1] != 0 {
			return 0
		}
		switch idx[2] {
		case 2, 3: // w, h
			return 2
		case 4: // right eye x
			return -0.5
		case 6: // left eye x
			return 0.5
		default:
			return 0
		}
	})
}

// singleHighScoreTensor builds a [1, numAnchors, 1] confidence tensor
// where highIdx scores the logit of high and every other anchor scores
// the logit of low, mirroring how internal/detect's own tests script a
// single confident anchor among a uniformly unconfident field.
func singleHighScoreTensor(numAnchors, highIdx int, high, low float32) *tensor.Tensor {
	return tensor.FromShapeFn([]int{1, numAnchors, 1}, func(idx []int) float32 {
		p := low
		if idx[1] == highIdx {
			p = high
		}
		if p <= 0 {
			return -20
		}
		if p >= 1 {
			return 20
		}
		return float32(math.Log(float64(p) / (1 - float64(p))))
	})
}

func (w *world) aMockFaceDetectorTunedToEmitOneConfidentDetectionWithLevelEyes() error {
	networkRes := image.Resolution{Width: 4, Height: 4}
	variant := detect.NetworkVariant{
		Name:              "test-portrait",
		InputResolution:   networkRes,
		Anchors:           detect.AnchorParams{Layers: []detect.LayerInfo{{AnchorsPerCell: 1, GridCols: 2, GridRows: 2}}},
		LooseBoxGrowth:    detect.BoxGrowth{Left: 0.1, Right: 0.1, Top: 0.1, Bottom: 0.1},
		Threshold:         0.5,
		NMSIoUThresh:      0.3,
		NMSMode:           detect.Remove,
		RotationKeypointA: detect.KeypointRightEye,
		RotationKeypointB: detect.KeypointLeftEye,
	}
	numAnchors := len(detect.CalculateAnchors(variant.Anchors))

	est := onnxmock.New(
		[]nn.InputInfo{{Name: "in", Shape: []int64{1, 3, 4, 4}}},
		[]nn.OutputInfo{{Name: "boxes"}, {Name: "confidences"}},
	)
	est.OutputFuncs = []func() *tensor.Tensor{
		func() *tensor.Tensor { return faceDetectorBoxTensor(numAnchors) },
		func() *tensor.Tensor { return singleHighScoreTensor(numAnchors, 0, 0.95, 0.05) },
	}

	detector, err := detect.NewDetector(variant, est, cnn.CreateLinearColorMapper(0, 1))
	if err != nil {
		return err
	}
	w.detector = detector
	return nil
}

func (w *world) iRunDetectionOnThePortraitImage() error {
	img := image.New(4, 4)
	img.Clear(image.White)

	results, err := w.detector.Detect(img)
	if err != nil {
		return err
	}
	w.detection = results
	return nil
}

func (w *world) exactlyOneDetectionIsReturnedWithConfidenceAtLeast(min float64) error {
	if len(w.detection) != 1 {
		return fmt.Errorf("expected exactly 1 detection, got %d", len(w.detection))
	}
	if float64(w.detection[0].Confidence()) < min {
		return fmt.Errorf("expected confidence >= %v, got %v", min, w.detection[0].Confidence())
	}
	return nil
}

// The scenario's "left" and "right" are image-relative, while the detect
// keypoint names are the subject's own: KeypointRightEye is the eye on
// the image's left, so the step checks it lies left of KeypointLeftEye.
func (w *world) itsLeftEyeXCoordinateIsLessThanItsRightEyeXCoordinate() error {
	det := w.detection[0]
	rightX, _ := det.Keypoint(detect.KeypointRightEye)
	leftX, _ := det.Keypoint(detect.KeypointLeftEye)
	if !(rightX < leftX) {
		return fmt.Errorf("expected right eye x (%v) < left eye x (%v)", rightX, leftX)
	}
	return nil
}

func (w *world) itsEstimatedRotationIsWithinDegreesOfZero(maxDegrees float64) error {
	rot := w.detection[0].RotationRadians() * 180 / math.Pi
	if math.Abs(rot) > maxDegrees {
		return fmt.Errorf("expected rotation within %v degrees of zero, got %v", maxDegrees, rot)
	}
	return nil
}

func parseIntList(s string) ([]int, error) {
	var out []int
	cur := 0
	started := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + int(r-'0')
			started = true
		case r == ',' || r == ' ' || r == '[' || r == ']':
			if started {
				out = append(out, cur)
				cur = 0
				started = false
			}
		default:
			return nil, fmt.Errorf("unexpected character %q in int list %q", r, s)
		}
	}
	if started {
		out = append(out, cur)
	}
	return out, nil
}

// InitializeScenario registers every step definition used by
// pipeline.feature, giving each scenario a fresh world.
func InitializeScenario(ctx *godog.ScenarioContext) {
	w := &world{}

	ctx.Step(`^two raw detections A with confidence 0\.6 and B with confidence 0\.55 both centered at \(0, 0\) with sizes 1x1 and 1\.5x1\.5$`, w.nmsRemoveDuplicate)
	ctx.Step(`^two raw detections A with confidence 1\.0 centered at \(0, 0\) size 1x1 and B with confidence 1\.0 centered at \(5, 0\) size 1x1$`, w.nmsDisjoint)
	ctx.Step(`^two raw detections A with confidence 1\.0 at rect \(-1, 3, 1x1\) and B with confidence 0\.5 at rect \(-1, 3, 4x4\)$`, w.nmaOverlapping)

	ctx.Step(`^I run the suppressor in remove mode with the default IoU threshold$`, w.runSuppressorInRemoveModeWithTheDefaultIoUThreshold)
	ctx.Step(`^I run the suppressor in average mode with IoU threshold (\d+(?:\.\d+)?)$`, w.runSuppressorInAverageModeWithIoUThreshold)

	ctx.Step(`^exactly one detection remains with confidence (\d+(?:\.\d+)?) and size (\d+(?:\.\d+)?)x(\d+(?:\.\d+)?)$`,
		func(conf, w1, w2 float64) error { return w.exactlyOneDetectionRemainsWithConfidenceAndSize(conf, w1) })
	ctx.Step(`^both detections remain unchanged$`, w.bothDetectionsRemainUnchanged)
	ctx.Step(`^one detection remains with confidence (\d+(?:\.\d+)?) centered at \((-?\d+(?:\.\d+)?), (\d+(?:\.\d+)?)\) with size (\d+(?:\.\d+)?)x(\d+(?:\.\d+)?)$`,
		func(conf, cx, cy, sw, sh float64) error { return w.oneDetectionRemainsWithConfidenceCenteredAtWithSize(conf, cx, cy, sw) })

	ctx.Step(`^a linear color mapper from (-?\d+) to (\d+)$`, w.aLinearColorMapperFromTo)
	ctx.Step(`^mapping (black|white) yields approximately \((-?\d+(?:\.\d+)?), (-?\d+(?:\.\d+)?), (-?\d+(?:\.\d+)?)\)$`,
		func(name string, r, g, b float64) error { return w.mappingYieldsApproximately(name, r, g, b) })
	ctx.Step(`^mapping (gray 128) yields approximately \((-?\d+(?:\.\d+)?), (-?\d+(?:\.\d+)?), (-?\d+(?:\.\d+)?)\)$`,
		func(name string, r, g, b float64) error { return w.mappingYieldsApproximately(name, r, g, b) })

	ctx.Step(`^a tensor built from shape (\[[\d, ]+\]) in construction order$`, w.aTensorBuiltFromShapeInConstructionOrder)
	ctx.Step(`^I index it at (\[[\d, ]+\])$`, w.iIndexItAt)
	ctx.Step(`^the resulting view has shape (\[[\d, ]+\]) and equals the last \d+ constructed values$`, w.theResultingViewHasShapeAndEqualsTheLastConstructedValues)

	ctx.Step(`^a mock face detector tuned to emit one confident detection with level eyes$`, w.aMockFaceDetectorTunedToEmitOneConfidentDetectionWithLevelEyes)
	ctx.Step(`^I run detection on the portrait image$`, w.iRunDetectionOnThePortraitImage)
	ctx.Step(`^exactly one detection is returned with confidence at least (\d+(?:\.\d+)?)$`, w.exactlyOneDetectionIsReturnedWithConfidenceAtLeast)
	ctx.Step(`^its left eye x-coordinate is less than its right eye x-coordinate$`, w.itsLeftEyeXCoordinateIsLessThanItsRightEyeXCoordinate)
	ctx.Step(`^its estimated rotation is within (\d+(?:\.\d+)?) degrees of zero$`, w.itsEstimatedRotationIsWithinDegreesOfZero)
}
