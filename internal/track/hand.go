package track

import (
	"log/slog"

	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/landmark"
)

// TrackedHand seeds a HandTracker with the region of interest a palm
// Detector produced, normally via [detect.Detection.BoundingRectLoose].
type TrackedHand struct {
	roi image.Rect
}

// NewTrackedHand constructs a TrackedHand from a detector's loose
// bounding box.
func NewTrackedHand(roi image.Rect) TrackedHand {
	return TrackedHand{roi: roi}
}

// ROI returns the region of interest, in full-image pixel coordinates.
func (h TrackedHand) ROI() image.Rect { return h.roi }

// HandTrackResult is one frame's successful hand-tracking output, with
// the same view-local coordinate convention as TrackResult.
type HandTrackResult struct {
	landmarks *landmark.HandLandmarkResult
	viewRect  image.Rect
}

// Landmarks returns the hand landmark result for this frame, in
// ViewRect's local coordinate space.
func (r *HandTrackResult) Landmarks() *landmark.HandLandmarkResult { return r.landmarks }

// ViewRect is the region of the full input image that was cropped and
// fed to the hand landmark network this frame.
func (r *HandTrackResult) ViewRect() image.Rect { return r.viewRect }

// HandTracker is the hand-tracking counterpart of LandmarkTracker: a
// documented supplement to the face pipeline, filling out the
// hand-tracking half of the pipeline the purpose/scope already names.
type HandTracker struct {
	landmarker          *landmark.HandLandmarker
	confidenceThreshold float32
	padLeft             float64
	padRight            float64
	padTop              float64
	padBottom           float64

	tracked *TrackedHand
}

// NewHandTracker wraps lm in a tracker that starts Untracked.
func NewHandTracker(lm *landmark.HandLandmarker) *HandTracker {
	return &HandTracker{
		landmarker:          lm,
		confidenceThreshold: DefaultConfidenceThreshold,
		padLeft:             DefaultROIPadding,
		padRight:            DefaultROIPadding,
		padTop:              DefaultROIPadding,
		padBottom:           DefaultROIPadding,
	}
}

// Landmarker returns the underlying HandLandmarker, e.g. to read its
// timers for an FpsCounter.
func (t *HandTracker) Landmarker() *landmark.HandLandmarker { return t.landmarker }

// SetConfidenceThreshold overrides DefaultConfidenceThreshold.
func (t *HandTracker) SetConfidenceThreshold(threshold float32) {
	t.confidenceThreshold = threshold
}

// SetROIPadding overrides DefaultROIPadding with independent per-side
// fractions.
func (t *HandTracker) SetROIPadding(left, right, top, bottom float64) {
	t.padLeft, t.padRight, t.padTop, t.padBottom = left, right, top, bottom
}

// TrackedHand returns the tracker's current seed ROI, or nil if the
// tracker is Untracked.
func (t *HandTracker) TrackedHand() *TrackedHand { return t.tracked }

// SetTrackedHand transitions the tracker into the Tracking state,
// seeded at hand.
func (t *HandTracker) SetTrackedHand(hand TrackedHand) { t.tracked = &hand }

// Reset transitions the tracker back to Untracked.
func (t *HandTracker) Reset() { t.tracked = nil }

// Track runs one frame of the tracking state machine over img, with
// the same semantics as LandmarkTracker.Track.
func (t *HandTracker) Track(img image.AsImageView) (*HandTrackResult, error) {
	if t.tracked == nil {
		return nil, nil
	}

	full := img.AsImageView()
	roi := t.tracked.roi
	view := full.View(roi)
	if view.Rect().Empty() {
		slog.Debug("hand tracker ROI fell entirely outside the image, dropping to untracked")
		t.tracked = nil
		return nil, nil
	}

	result, err := t.landmarker.Compute(view)
	if err != nil {
		return nil, err
	}
	if result.PresenceConfidence() < t.confidenceThreshold {
		slog.Debug("hand tracker confidence below threshold, dropping to untracked",
			"confidence", result.PresenceConfidence(), "threshold", t.confidenceThreshold)
		t.tracked = nil
		return nil, nil
	}

	viewRect := image.Rect{X: roi.X, Y: roi.Y, W: view.Width(), H: view.Height()}
	box := result.BoundingBox()
	nextROI := image.Rect{X: viewRect.X + box.X, Y: viewRect.Y + box.Y, W: box.W, H: box.H}.
		Grow(t.padLeft, t.padRight, t.padTop, t.padBottom)
	t.tracked = &TrackedHand{roi: nextROI}

	return &HandTrackResult{landmarks: result, viewRect: viewRect}, nil
}
