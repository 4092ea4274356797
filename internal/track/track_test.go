package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/landmark"
	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/onnxmock"
	"github.com/gophi/landmark/internal/tensor"
)

func newFaceEstimator(points [][3]float32, presence float32) *onnxmock.Estimator {
	est := onnxmock.New(
		[]nn.InputInfo{{Name: "input", Shape: []int64{1, 3, 64, 64}}},
		[]nn.OutputInfo{{Name: "coords"}, {Name: "presence"}},
	)
	est.OutputFuncs = []func() *tensor.Tensor{
		func() *tensor.Tensor { return onnxmock.LandmarkTensor(landmark.NumFaceLandmarks, points) },
		func() *tensor.Tensor { return onnxmock.PresenceLogit(presence) },
	}
	return est
}

func TestLandmarkTracker_UntrackedReturnsNil(t *testing.T) {
	est := newFaceEstimator(make([][3]float32, landmark.NumFaceLandmarks), 0.9)
	lm, err := landmark.NewLandmarker(est)
	require.NoError(t, err)

	tr := NewLandmarkTracker(lm)
	assert.Nil(t, tr.TrackedFace())

	img := image.New(200, 200)
	res, err := tr.Track(img)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestLandmarkTracker_TracksAndUpdatesROI(t *testing.T) {
	points := make([][3]float32, landmark.NumFaceLandmarks)
	// Two corner landmarks inside the 64x64 input define a known
	// bounding box; the rest stay at (0,0,0) inside that box.
	points[0] = [3]float32{10, 10, 0}
	points[1] = [3]float32{40, 30, 0}
	est := newFaceEstimator(points, 0.9)
	lm, err := landmark.NewLandmarker(est)
	require.NoError(t, err)

	tr := NewLandmarkTracker(lm)
	tr.SetTrackedFace(NewTrackedFace(image.Rect{X: 20, Y: 20, W: 64, H: 64}, 0))
	require.NotNil(t, tr.TrackedFace())

	img := image.New(200, 200)
	res, err := tr.Track(img)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, image.Rect{X: 20, Y: 20, W: 64, H: 64}, res.ViewRect())
	require.Equal(t, landmark.NumFaceLandmarks, res.Landmarks().LandmarkCount())

	// The tracker grows ROI padding, so the new ROI should strictly
	// contain the raw [0,0]-[40,30] bounding box translated by the
	// view origin (20,20): [20,20]-[60,50].
	next := tr.TrackedFace()
	require.NotNil(t, next)
	nextROI := next.ROI()
	assert.LessOrEqual(t, nextROI.X, 20)
	assert.LessOrEqual(t, nextROI.Y, 20)
	assert.GreaterOrEqual(t, nextROI.Right(), 60)
	assert.GreaterOrEqual(t, nextROI.Bottom(), 50)
}

func TestLandmarkTracker_LowConfidenceDropsToUntracked(t *testing.T) {
	est := newFaceEstimator(make([][3]float32, landmark.NumFaceLandmarks), 0.1)
	lm, err := landmark.NewLandmarker(est)
	require.NoError(t, err)

	tr := NewLandmarkTracker(lm)
	tr.SetTrackedFace(NewTrackedFace(image.Rect{X: 0, Y: 0, W: 64, H: 64}, 0))

	img := image.New(200, 200)
	res, err := tr.Track(img)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Nil(t, tr.TrackedFace())
}

func TestLandmarkTracker_ROIOutsideImageDropsToUntracked(t *testing.T) {
	est := newFaceEstimator(make([][3]float32, landmark.NumFaceLandmarks), 0.9)
	lm, err := landmark.NewLandmarker(est)
	require.NoError(t, err)

	tr := NewLandmarkTracker(lm)
	tr.SetTrackedFace(NewTrackedFace(image.Rect{X: 1000, Y: 1000, W: 64, H: 64}, 0))

	img := image.New(200, 200)
	res, err := tr.Track(img)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Nil(t, tr.TrackedFace())
}
