package onnxmock

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/tensor"
)

func TestEstimator_ReturnsConfiguredOutputs(t *testing.T) {
	est := New(
		[]nn.InputInfo{{Name: "input", Shape: []int64{1, 3, 128, 128}}},
		[]nn.OutputInfo{{Name: "scores"}, {Name: "boxes"}},
	)
	est.OutputFuncs = []func() *tensor.Tensor{
		func() *tensor.Tensor { return UniformScoreMap(4, 0.9) },
		func() *tensor.Tensor { return ZeroBoxes(4, 16) },
	}

	dummyInput := tensor.FromShapeFn([]int{1, 3, 2, 2}, func([]int) float32 { return 0 })
	out, err := est.Estimate(nn.NewInputs(dummyInput))
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []int{1, 4, 1}, out.At(0).Shape())
	assert.Equal(t, []int{1, 4, 16}, out.At(1).Shape())
	assert.Equal(t, 1, est.Calls)
}

func TestEstimator_MismatchedOutputFuncsErrors(t *testing.T) {
	est := New(nil, []nn.OutputInfo{{Name: "scores"}})
	_, err := est.Estimate(nn.NewInputs())
	assert.Error(t, err)
}

func TestUniformScoreMap_RecoversProbabilityViaSigmoid(t *testing.T) {
	tns := UniformScoreMap(4, 0.8)
	assert.Equal(t, []int{1, 4, 1}, tns.Shape())

	logit := float64(tns.Index(0, 0, 0).AsSingular())
	p := 1.0 / (1.0 + math.Exp(-logit))
	assert.InDelta(t, 0.8, p, 0.01)
}

func TestSingleDetectionBoxes_OnlyTargetAnchorNonZero(t *testing.T) {
	tns := SingleDetectionBoxes(3, 4, 1, 0.1, 0.2, 0.3, 0.4)
	assert.InDelta(t, float32(0), tns.Index(0, 0, 0).AsSingular(), 0)
	assert.InDelta(t, float32(0.1), tns.Index(0, 1, 0).AsSingular(), 0.0001)
	assert.InDelta(t, float32(0.4), tns.Index(0, 1, 3).AsSingular(), 0.0001)
	assert.InDelta(t, float32(0), tns.Index(0, 2, 0).AsSingular(), 0)
}

func TestLandmarkTensor_PadsMissingPoints(t *testing.T) {
	tns := LandmarkTensor(2, [][3]float32{{1, 2, 3}})
	assert.Equal(t, []int{1, 1, 1, 6}, tns.Shape())
	assert.InDelta(t, float32(1), tns.Index(0, 0, 0, 0).AsSingular(), 0)
	assert.InDelta(t, float32(0), tns.Index(0, 0, 0, 3).AsSingular(), 0)
}

func TestPresenceLogit_Bounds(t *testing.T) {
	tns := PresenceLogit(0)
	assert.Less(t, tns.Index(0, 0).AsSingular(), float32(-10))

	tns = PresenceLogit(1)
	assert.Greater(t, tns.Index(0, 0).AsSingular(), float32(10))
}
