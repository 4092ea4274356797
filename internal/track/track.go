// Package track implements the two-state (Untracked/Tracking) ROI
// tracker that turns a one-shot Landmarker into a stateful per-frame
// tracker: once a detector has located a face or hand, the tracker
// keeps re-cropping the input to a region of interest derived from the
// previous frame's landmarks instead of re-running detection on every
// frame, falling back to
// Untracked whenever the landmark network's own presence confidence
// drops too low.
package track

import (
	"log/slog"

	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/landmark"
)

// DefaultConfidenceThreshold is the presence-confidence floor below
// which a tracker drops back to Untracked.
const DefaultConfidenceThreshold = 0.5

// DefaultROIPadding is the fraction of the landmark bounding box's own
// width/height that the tracker grows the next frame's ROI by on every
// side, giving the subject room to move between frames without
// immediately falling out of the crop.
const DefaultROIPadding = 0.1

// TrackedFace seeds a LandmarkTracker with the region of interest and
// rotation estimate a Detector produced, normally via
// [detect.Detection.BoundingRectLoose] and
// [detect.Detection.RotationRadians].
type TrackedFace struct {
	roi             image.Rect
	rotationRadians float64
}

// NewTrackedFace constructs a TrackedFace from a detector's loose
// bounding box and rotation estimate.
func NewTrackedFace(roi image.Rect, rotationRadians float64) TrackedFace {
	return TrackedFace{roi: roi, rotationRadians: rotationRadians}
}

// ROI returns the region of interest, in full-image pixel coordinates.
func (f TrackedFace) ROI() image.Rect { return f.roi }

// RotationRadians returns the rotation estimate carried over from
// detection. LandmarkTracker does not itself use this to rotate the
// crop; it is exposed for callers that want to compensate for a
// tilted face some other way (e.g. when rendering).
func (f TrackedFace) RotationRadians() float64 { return f.rotationRadians }

// TrackResult is one frame's successful tracking output. Landmarks are
// expressed in ViewRect's local coordinate space: a landmark's
// full-image position is its own position plus ViewRect's origin.
type TrackResult struct {
	landmarks *landmark.LandmarkResult
	viewRect  image.Rect
}

// Landmarks returns the landmark result for this frame, in ViewRect's
// local coordinate space. The returned *landmark.LandmarkResult aliases
// the underlying Landmarker's internal buffer and is invalidated by the
// tracker's next Track call.
func (r *TrackResult) Landmarks() *landmark.LandmarkResult { return r.landmarks }

// ViewRect is the region of the full input image that was cropped and
// fed to the landmark network this frame.
func (r *TrackResult) ViewRect() image.Rect { return r.viewRect }

// LandmarkTracker holds the Untracked/Tracking state machine around a
// face Landmarker. The zero value is not usable; construct with
// NewLandmarkTracker.
type LandmarkTracker struct {
	landmarker          *landmark.Landmarker
	confidenceThreshold float32
	padLeft             float64
	padRight            float64
	padTop              float64
	padBottom           float64

	tracked *TrackedFace
}

// NewLandmarkTracker wraps lm in a tracker that starts Untracked.
func NewLandmarkTracker(lm *landmark.Landmarker) *LandmarkTracker {
	return &LandmarkTracker{
		landmarker:          lm,
		confidenceThreshold: DefaultConfidenceThreshold,
		padLeft:             DefaultROIPadding,
		padRight:            DefaultROIPadding,
		padTop:              DefaultROIPadding,
		padBottom:           DefaultROIPadding,
	}
}

// Landmarker returns the underlying Landmarker, e.g. to read its
// timers for an FpsCounter.
func (t *LandmarkTracker) Landmarker() *landmark.Landmarker { return t.landmarker }

// SetConfidenceThreshold overrides DefaultConfidenceThreshold.
func (t *LandmarkTracker) SetConfidenceThreshold(threshold float32) {
	t.confidenceThreshold = threshold
}

// SetROIPadding overrides DefaultROIPadding with independent per-side
// fractions.
func (t *LandmarkTracker) SetROIPadding(left, right, top, bottom float64) {
	t.padLeft, t.padRight, t.padTop, t.padBottom = left, right, top, bottom
}

// TrackedFace returns the tracker's current seed ROI, or nil if the
// tracker is Untracked.
func (t *LandmarkTracker) TrackedFace() *TrackedFace { return t.tracked }

// SetTrackedFace transitions the tracker into the Tracking state,
// seeded at face. Typically called after a Detector finds a face while
// the tracker is Untracked.
func (t *LandmarkTracker) SetTrackedFace(face TrackedFace) { t.tracked = &face }

// Reset transitions the tracker back to Untracked.
func (t *LandmarkTracker) Reset() { t.tracked = nil }

// Track runs one frame of the tracking state machine over img. It
// returns (nil, nil) if the tracker is Untracked, or if the landmark
// network's presence confidence fell below the configured threshold —
// in the latter case Track also transitions the tracker back to
// Untracked, so the caller should re-run detection before calling Track
// again.
func (t *LandmarkTracker) Track(img image.AsImageView) (*TrackResult, error) {
	if t.tracked == nil {
		return nil, nil
	}

	full := img.AsImageView()
	roi := t.tracked.roi
	view := full.View(roi)
	if view.Rect().Empty() {
		slog.Debug("landmark tracker ROI fell entirely outside the image, dropping to untracked")
		t.tracked = nil
		return nil, nil
	}

	result, err := t.landmarker.Compute(view)
	if err != nil {
		return nil, err
	}
	if result.FaceConfidence() < t.confidenceThreshold {
		slog.Debug("landmark tracker confidence below threshold, dropping to untracked",
			"confidence", result.FaceConfidence(), "threshold", t.confidenceThreshold)
		t.tracked = nil
		return nil, nil
	}

	viewRect := image.Rect{X: roi.X, Y: roi.Y, W: view.Width(), H: view.Height()}
	box := result.BoundingBox()
	nextROI := image.Rect{X: viewRect.X + box.X, Y: viewRect.Y + box.Y, W: box.W, H: box.H}.
		Grow(t.padLeft, t.padRight, t.padTop, t.padBottom)
	t.tracked = &TrackedFace{roi: nextROI, rotationRadians: t.tracked.rotationRadians}

	return &TrackResult{landmarks: result, viewRect: viewRect}, nil
}
