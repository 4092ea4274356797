package landmark

import (
	"github.com/gophi/landmark/internal/cnn"
	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/timing"
)

// NumHandLandmarks is the point count the hand landmark network emits.
const NumHandLandmarks = 21

// Named indices into a HandLandmarkResult, following the standard
// MediaPipe Hands point ordering.
const (
	Wrist      = 0
	ThumbTip   = 4
	IndexTip   = 8
	MiddleTip  = 12
	RingTip    = 16
	PinkyTip   = 20
)

// HandLandmarkResult is the output of HandLandmarker.Compute, reused
// across calls exactly as LandmarkResult is.
type HandLandmarkResult struct {
	landmarks          []Point3
	presenceConfidence float32
}

// LandmarkPositions returns every landmark position, in the input
// image's pixel coordinates.
func (r *HandLandmarkResult) LandmarkPositions() []Point3 { return r.landmarks }

// LandmarkPosition returns one landmark's position by index.
func (r *HandLandmarkResult) LandmarkPosition(idx int) Point3 { return r.landmarks[idx] }

// LandmarkCount returns the number of landmarks (always
// NumHandLandmarks).
func (r *HandLandmarkResult) LandmarkCount() int { return len(r.landmarks) }

// PresenceConfidence returns the network's confidence, in [0,1], that
// the input actually depicted a hand.
func (r *HandLandmarkResult) PresenceConfidence() float32 { return r.presenceConfidence }

// BoundingBox returns the tight axis-aligned box over every landmark,
// in the same coordinate space as LandmarkPositions.
func (r *HandLandmarkResult) BoundingBox() image.Rect {
	return boundingRectAll(r.landmarks)
}

// HandLandmarker computes the 21-point MediaPipe-style hand landmark
// set from a cropped palm/hand image. It reuses the same
// resize/infer/unletterbox pipeline as Landmarker — this is a
// supplement beyond the face-only landmark pipeline, filling out the
// hand-tracking half of the pipeline spec.md already names in scope.
type HandLandmarker struct {
	cnn         *cnn.Cnn
	resizeTimer *timing.Timer
	inferTimer  *timing.Timer
	result      HandLandmarkResult
}

// NewHandLandmarker binds a HandLandmarker to estimator, which must
// declare a single NCHW/NHWC input and two outputs: landmark
// coordinates shaped [1,1,1,21*3] and a hand-presence logit.
func NewHandLandmarker(estimator nn.Estimator) (*HandLandmarker, error) {
	c, err := cnn.New(estimator, cnn.CreateLinearColorMapper(-1, 1))
	if err != nil {
		return nil, err
	}
	return &HandLandmarker{
		cnn:         c,
		resizeTimer: timing.NewTimer("hand-landmark.resize"),
		inferTimer:  timing.NewTimer("hand-landmark.infer"),
		result:      HandLandmarkResult{landmarks: make([]Point3, NumHandLandmarks)},
	}, nil
}

// InputResolution returns the resolution the bound network expects its
// input cropped/resized to.
func (lm *HandLandmarker) InputResolution() image.Resolution { return lm.cnn.InputResolution() }

// Timers returns the resize/infer timers accumulated across every
// Compute call.
func (lm *HandLandmarker) Timers() []*timing.Timer {
	return []*timing.Timer{lm.resizeTimer, lm.inferTimer}
}

// Compute runs the landmark pipeline over image, which should be a
// cropped view of a single hand/palm. The returned
// *HandLandmarkResult aliases HandLandmarker's internal state and is
// invalidated by the next Compute call.
func (lm *HandLandmarker) Compute(view image.AsImageView) (*HandLandmarkResult, error) {
	logit, err := computeInto(lm.cnn, lm.resizeTimer, lm.inferTimer, view, lm.result.landmarks)
	if err != nil {
		return nil, err
	}
	lm.result.presenceConfidence = sigmoid(logit)
	return &lm.result, nil
}
