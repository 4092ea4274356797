package landmark

import (
	"github.com/gophi/landmark/internal/cnn"
	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/timing"
)

// NumFaceLandmarks is the point count the face landmark network emits.
const NumFaceLandmarks = 468

// LandmarkIdx names the semantically meaningful indices into a face
// LandmarkResult. "Left" and "Right" are relative to the input image,
// not the depicted person's own point of view.
type LandmarkIdx int

const (
	MouthLeft   LandmarkIdx = 78
	MouthRight  LandmarkIdx = 308
	MouthTop    LandmarkIdx = 13
	MouthBottom LandmarkIdx = 14

	LeftEyeLeftCorner  LandmarkIdx = 33
	LeftEyeRightCorner LandmarkIdx = 133
	LeftEyeTop         LandmarkIdx = 159
	LeftEyeBottom      LandmarkIdx = 145

	RightEyeLeftCorner  LandmarkIdx = 362
	RightEyeRightCorner LandmarkIdx = 263
	RightEyeTop         LandmarkIdx = 386
	RightEyeBottom      LandmarkIdx = 374

	RightEyebrowLeftCorner LandmarkIdx = 295
	LeftEyebrowRightCorner LandmarkIdx = 65
)

// LandmarkResult is the output of Landmarker.Compute, reused across
// calls: it points at the Landmarker's own internal buffer and is only
// valid until the next Compute call. Callers needing to retain results
// across frames must copy LandmarkPositions themselves.
type LandmarkResult struct {
	landmarks      []Point3
	faceConfidence float32
}

// LandmarkPositions returns every landmark position, in the input
// image's pixel coordinates. The returned slice aliases the
// LandmarkResult's internal buffer.
func (r *LandmarkResult) LandmarkPositions() []Point3 { return r.landmarks }

// LandmarkPosition returns one landmark's position by index (see
// LandmarkIdx for named indices).
func (r *LandmarkResult) LandmarkPosition(idx int) Point3 { return r.landmarks[idx] }

// LandmarkCount returns the number of landmarks (always NumFaceLandmarks
// for a face LandmarkResult).
func (r *LandmarkResult) LandmarkCount() int { return len(r.landmarks) }

// FaceConfidence returns the network's confidence, in [0,1], that the
// input actually depicted a face.
func (r *LandmarkResult) FaceConfidence() float32 { return r.faceConfidence }

// BoundingBox returns the tight axis-aligned box over every landmark,
// in the same coordinate space as LandmarkPositions.
func (r *LandmarkResult) BoundingBox() image.Rect {
	return boundingRectAll(r.landmarks)
}

// LeftEye returns the tight axis-aligned box over the four left-eye
// landmarks.
func (r *LandmarkResult) LeftEye() image.Rect {
	return boundingRect(r.landmarks, []int{
		int(LeftEyeBottom), int(LeftEyeLeftCorner), int(LeftEyeRightCorner), int(LeftEyeTop),
	})
}

// RightEye returns the tight axis-aligned box over the four right-eye
// landmarks.
func (r *LandmarkResult) RightEye() image.Rect {
	return boundingRect(r.landmarks, []int{
		int(RightEyeBottom), int(RightEyeLeftCorner), int(RightEyeRightCorner), int(RightEyeTop),
	})
}

// Landmarker computes the 468-point MediaPipe-style facial landmark
// mesh from a cropped, mostly-upright face image. Use
// [Detection.BoundingRectLoose] to produce a good crop.
type Landmarker struct {
	cnn         *cnn.Cnn
	resizeTimer *timing.Timer
	inferTimer  *timing.Timer
	result      LandmarkResult
}

// NewLandmarker binds a Landmarker to estimator, which must declare a
// single NCHW/NHWC input and two outputs: landmark coordinates shaped
// [1,1,1,468*3] and a face-presence logit.
func NewLandmarker(estimator nn.Estimator) (*Landmarker, error) {
	c, err := cnn.New(estimator, cnn.CreateLinearColorMapper(-1, 1))
	if err != nil {
		return nil, err
	}
	return &Landmarker{
		cnn:         c,
		resizeTimer: timing.NewTimer("face-landmark.resize"),
		inferTimer:  timing.NewTimer("face-landmark.infer"),
		result:      LandmarkResult{landmarks: make([]Point3, NumFaceLandmarks)},
	}, nil
}

// InputResolution returns the resolution the bound network expects its
// input cropped/resized to.
func (lm *Landmarker) InputResolution() image.Resolution { return lm.cnn.InputResolution() }

// Timers returns the resize/infer timers accumulated across every
// Compute call, for callers (e.g. an FpsCounter) that report per-stage
// timing alongside the face detector's own timers.
func (lm *Landmarker) Timers() []*timing.Timer {
	return []*timing.Timer{lm.resizeTimer, lm.inferTimer}
}

// Compute runs the landmark pipeline over image, which should be a
// cropped, mostly-upright view of a single face. The returned
// *LandmarkResult aliases Landmarker's internal state and is
// invalidated by the next Compute call.
func (lm *Landmarker) Compute(view image.AsImageView) (*LandmarkResult, error) {
	logit, err := computeInto(lm.cnn, lm.resizeTimer, lm.inferTimer, view, lm.result.landmarks)
	if err != nil {
		return nil, err
	}
	lm.result.faceConfidence = sigmoid(logit)
	return &lm.result, nil
}
