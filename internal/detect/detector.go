package detect

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gophi/landmark/internal/cnn"
	"github.com/gophi/landmark/internal/errs"
	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/models"
	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/timing"
)

// Indices of the six keypoints BlazeFace-family detection networks
// emit, used to pick out the eye keypoints for the rotation estimate.
// Left and Right name the subject's own side, so on an unmirrored face
// KeypointRightEye lies on the image's left.
const (
	KeypointRightEye = 0
	KeypointLeftEye  = 1
	KeypointNoseTip  = 2
	KeypointMouth    = 3
	KeypointRightEar = 4
	KeypointLeftEar  = 5
)

// BoxGrowth describes the asymmetric padding applied to a detector's
// raw box to produce its "loose" tracking-ROI box, as fractions of the
// raw box's own width (Left, Right) and height (Top, Bottom).
type BoxGrowth struct {
	Left, Right, Top, Bottom float64
}

// NetworkVariant binds one ONNX model file to the anchor configuration
// and box-growth constants that model's outputs must be decoded with.
// Face and palm detectors differ only in which NetworkVariant a
// Detector is constructed with — the decode/NMS/ROI-growth machinery is
// shared.
type NetworkVariant struct {
	Name              string
	ModelCategory     string
	ModelFilename     string
	InputResolution   image.Resolution
	Anchors           AnchorParams
	LooseBoxGrowth    BoxGrowth
	Threshold         float32
	NMSIoUThresh      float32
	NMSMode           Mode
	RotationKeypointA int // "from" keypoint for the rotation vector
	RotationKeypointB int // "to" keypoint for the rotation vector
}

// ShortRangeFaceNetwork is MediaPipe's short-range face detector: two
// SSD layers (16x16 and 8x8 grids, 2 anchors/cell), tuned for faces
// within about 2 meters of the camera.
func ShortRangeFaceNetwork() NetworkVariant {
	return NetworkVariant{
		Name:            "face-short-range",
		ModelCategory:   models.CategoryFace,
		ModelFilename:   models.FaceDetectionShortRange,
		InputResolution: image.Resolution{Width: 128, Height: 128},
		Anchors: AnchorParams{Layers: []LayerInfo{
			{AnchorsPerCell: 2, GridCols: 16, GridRows: 16},
			{AnchorsPerCell: 6, GridCols: 8, GridRows: 8},
		}},
		LooseBoxGrowth:    BoxGrowth{Left: 0.08, Right: 0.08, Top: 0.55, Bottom: 0.20},
		Threshold:         0.5,
		NMSIoUThresh:      0.3,
		NMSMode:           Average,
		RotationKeypointA: KeypointRightEye,
		RotationKeypointB: KeypointLeftEye,
	}
}

// FullRangeFaceNetwork is MediaPipe's full-range face detector: a
// single dense 48x48 grid, longer detection range at roughly 5x the
// inference cost of the short-range model.
func FullRangeFaceNetwork() NetworkVariant {
	return NetworkVariant{
		Name:            "face-full-range",
		ModelCategory:   models.CategoryFace,
		ModelFilename:   models.FaceDetectionFullRange,
		InputResolution: image.Resolution{Width: 192, Height: 192},
		Anchors: AnchorParams{Layers: []LayerInfo{
			{AnchorsPerCell: 1, GridCols: 48, GridRows: 48},
		}},
		LooseBoxGrowth:    BoxGrowth{Left: 0.08, Right: 0.08, Top: 0.55, Bottom: 0.20},
		Threshold:         0.5,
		NMSIoUThresh:      0.3,
		NMSMode:           Average,
		RotationKeypointA: KeypointRightEye,
		RotationKeypointB: KeypointLeftEye,
	}
}

// LiteHandNetwork is the lightweight palm detector variant: a single
// 24x24 grid with 2 anchors/cell, favoring speed over range.
func LiteHandNetwork() NetworkVariant {
	return NetworkVariant{
		Name:            "hand-lite",
		ModelCategory:   models.CategoryHand,
		ModelFilename:   models.HandDetectionLite,
		InputResolution: image.Resolution{Width: 192, Height: 192},
		Anchors: AnchorParams{Layers: []LayerInfo{
			{AnchorsPerCell: 2, GridCols: 24, GridRows: 24},
		}},
		LooseBoxGrowth:    BoxGrowth{Left: 0.1, Right: 0.1, Top: 0.1, Bottom: 0.1},
		Threshold:         0.5,
		NMSIoUThresh:      0.3,
		NMSMode:           Average,
		RotationKeypointA: KeypointRightEye,
		RotationKeypointB: KeypointLeftEye,
	}
}

// FullHandNetwork is the full-size palm detector variant, at double
// LiteHandNetwork's grid resolution.
func FullHandNetwork() NetworkVariant {
	variant := LiteHandNetwork()
	variant.Name = "hand-full"
	variant.ModelFilename = models.HandDetectionFull
	variant.Anchors = AnchorParams{Layers: []LayerInfo{
		{AnchorsPerCell: 2, GridCols: 48, GridRows: 48},
	}}
	return variant
}

// Detection is one surviving detection from a Detector call, carrying
// enough context (original image resolution, network input resolution)
// to back-map its normalized, letterboxed coordinates into full-image
// pixel space on demand.
type Detection struct {
	raw         RawDetection
	networkRes  image.Resolution
	originalRes image.Resolution
	growth      BoxGrowth
	rotationA   int
	rotationB   int
}

// Confidence returns the detection's confidence in [0,1].
func (d Detection) Confidence() float32 { return d.raw.Confidence }

// BoundingRectRaw returns the network's tight box, mapped into full
// original-image pixel space.
func (d Detection) BoundingRectRaw() image.Rect {
	return d.boundingRectPixels(d.raw.Box)
}

// BoundingRectLoose grows BoundingRectRaw asymmetrically per the
// variant's BoxGrowth, producing the tracking ROI seed (e.g. extending
// upward to include forehead/hairline for faces).
func (d Detection) BoundingRectLoose() image.Rect {
	return d.BoundingRectRaw().Grow(d.growth.Left, d.growth.Right, d.growth.Top, d.growth.Bottom)
}

func (d Detection) boundingRectPixels(box BoundingRect) image.Rect {
	cx, cy := image.UnletterboxPoint(float64(box.XCenter), float64(box.YCenter), d.networkRes, d.originalRes)
	w, h := image.UnletterboxSize(float64(box.W), float64(box.H), d.networkRes, d.originalRes)
	return image.FromCenter(cx, cy, w, h)
}

// Keypoint returns the i-th raw keypoint mapped into full-image pixel
// space.
func (d Detection) Keypoint(i int) (x, y float64) {
	kp := d.raw.Keypoints[i]
	return image.UnletterboxPoint(float64(kp.X), float64(kp.Y), d.networkRes, d.originalRes)
}

// RotationRadians estimates the detection's in-plane rotation from the
// angle of the vector between the variant's two rotation keypoints
// (the eyes, for face/palm networks), in full-image pixel space.
func (d Detection) RotationRadians() float64 {
	ax, ay := d.Keypoint(d.rotationA)
	bx, by := d.Keypoint(d.rotationB)
	return math.Atan2(by-ay, bx-ax)
}

// LooseRotatedRect pairs BoundingRectLoose with the detection's rotation
// estimate, for debug overlays that draw the tracking ROI tilted to
// match the subject's in-plane rotation instead of as a bare axis-aligned
// box.
func (d Detection) LooseRotatedRect() image.RotatedRect {
	return image.RotatedRect{Rect: d.BoundingRectLoose(), RotationRadians: d.RotationRadians()}
}

// Detector runs the resize -> infer -> decode -> NMS pipeline for one
// NetworkVariant, timing each stage.
type Detector struct {
	variant    NetworkVariant
	cnn        *cnn.Cnn
	anchors    Anchors
	suppressor *Suppressor

	ResizeTimer *timing.Timer
	InferTimer  *timing.Timer
	NMSTimer    *timing.Timer
}

// NewDetector binds variant's anchor/threshold configuration to a Cnn
// wrapping estimator. estimator must already be loaded from
// variant.ModelFilename; NewDetector only consumes its declared input
// shape (via Cnn) to determine NCHW/NHWC layout.
func NewDetector(variant NetworkVariant, estimator nn.Estimator, mapper cnn.ColorMapper) (*Detector, error) {
	slog.Debug("initializing detector",
		"variant", variant.Name,
		"model", variant.ModelFilename,
		"threshold", variant.Threshold,
		"nms_mode", variant.NMSMode)

	c, err := cnn.New(estimator, mapper)
	if err != nil {
		return nil, errs.Config("detect.NewDetector", fmt.Errorf("building cnn for %s: %w", variant.Name, err))
	}
	if c.InputResolution() != variant.InputResolution {
		return nil, errs.Configf("detect.NewDetector", "%s model input resolution %v doesn't match variant's declared %v",
			variant.Name, c.InputResolution(), variant.InputResolution)
	}

	detector := &Detector{
		variant:     variant,
		cnn:         c,
		anchors:     CalculateAnchors(variant.Anchors),
		suppressor:  NewSuppressor(variant.NMSIoUThresh, variant.NMSMode),
		ResizeTimer: timing.NewTimer(variant.Name + ".resize"),
		InferTimer:  timing.NewTimer(variant.Name + ".infer"),
		NMSTimer:    timing.NewTimer(variant.Name + ".nms"),
	}

	slog.Debug("detector initialized", "variant", variant.Name, "anchor_count", len(detector.anchors))
	return detector, nil
}

// Detect runs the full pipeline over img and returns every surviving
// detection, each able to back-map its coordinates into img's own
// resolution.
func (det *Detector) Detect(img image.AsImageView) ([]Detection, error) {
	view := img.AsImageView()
	originalRes := view.Resolution()
	networkRes := det.variant.InputResolution

	var resized *image.Image
	det.ResizeTimer.Time(func() {
		if originalRes == networkRes {
			resized = view.ToImage()
			return
		}
		resized = view.AspectAwareResize(networkRes)
	})

	var outputs nn.Outputs
	var inferErr error
	det.InferTimer.Time(func() {
		outputs, inferErr = det.cnn.Estimate(resized)
	})
	if inferErr != nil {
		return nil, errs.Infer("detect.Detect", fmt.Errorf("%s inference: %w", det.variant.Name, inferErr))
	}
	if outputs.Len() != 2 {
		return nil, errs.Inferf("detect.Detect", "%s model must emit exactly 2 outputs (boxes, confidences), got %d",
			det.variant.Name, outputs.Len())
	}
	boxes, confidences := outputs.At(0), outputs.At(1)

	var surviving []RawDetection
	det.NMSTimer.Time(func() {
		raw := ExtractDetections(boxes, confidences, det.anchors, networkRes.Width, networkRes.Height, det.variant.Threshold)
		surviving = det.suppressor.Run(raw)
	})

	results := make([]Detection, len(surviving))
	for i, raw := range surviving {
		results[i] = Detection{
			raw:         raw,
			networkRes:  networkRes,
			originalRes: originalRes,
			growth:      det.variant.LooseBoxGrowth,
			rotationA:   det.variant.RotationKeypointA,
			rotationB:   det.variant.RotationKeypointB,
		}
	}
	return results, nil
}
