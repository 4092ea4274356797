package cnn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/onnxmock"
	"github.com/gophi/landmark/internal/tensor"
)

func newMockEstimator(shape []int64) *onnxmock.Estimator {
	est := onnxmock.New(
		[]nn.InputInfo{{Name: "input", Shape: shape}},
		[]nn.OutputInfo{{Name: "out"}},
	)
	est.OutputFuncs = []func() *tensor.Tensor{
		func() *tensor.Tensor { return tensor.FromScalar(0) },
	}
	return est
}

func TestNew_DetectsNCHW(t *testing.T) {
	c, err := New(newMockEstimator([]int64{1, 3, 128, 192}), CreateLinearColorMapper(0, 1))
	require.NoError(t, err)
	assert.Equal(t, NCHW, c.InputShape())
	assert.Equal(t, image.Resolution{Width: 192, Height: 128}, c.InputResolution())
}

func TestNew_DetectsNHWC(t *testing.T) {
	c, err := New(newMockEstimator([]int64{1, 128, 192, 3}), CreateLinearColorMapper(0, 1))
	require.NoError(t, err)
	assert.Equal(t, NHWC, c.InputShape())
	assert.Equal(t, image.Resolution{Width: 192, Height: 128}, c.InputResolution())
}

func TestNew_RejectsMultipleInputs(t *testing.T) {
	est := onnxmock.New(
		[]nn.InputInfo{{Name: "a", Shape: []int64{1, 3, 1, 1}}, {Name: "b", Shape: []int64{1, 3, 1, 1}}},
		nil,
	)
	_, err := New(est, CreateLinearColorMapper(0, 1))
	assert.Error(t, err)
}

func TestNew_RejectsNonImageShape(t *testing.T) {
	est := onnxmock.New([]nn.InputInfo{{Name: "a", Shape: []int64{1, 4, 2, 2}}}, nil)
	_, err := New(est, CreateLinearColorMapper(0, 1))
	assert.Error(t, err)
}

func TestCreateLinearColorMapper_EndpointsZeroOne(t *testing.T) {
	mapper := CreateLinearColorMapper(0, 1)
	assert.Equal(t, [3]float32{0, 0, 0}, mapper(image.Black))
	assert.Equal(t, [3]float32{1, 1, 1}, mapper(image.White))
}

func TestCreateLinearColorMapper_EndpointsSignedRange(t *testing.T) {
	mapper := CreateLinearColorMapper(-1, 1)
	assert.Equal(t, [3]float32{-1, -1, -1}, mapper(image.Black))
	assert.Equal(t, [3]float32{1, 1, 1}, mapper(image.White))
}

func TestEstimate_NCHWSamplesSolidColor(t *testing.T) {
	estimator := onnxmock.New(
		[]nn.InputInfo{{Name: "input", Shape: []int64{1, 3, 2, 2}}},
		[]nn.OutputInfo{{Name: "echo"}},
	)

	var captured *tensor.Tensor
	estimator.OutputFuncs = []func() *tensor.Tensor{
		func() *tensor.Tensor { return captured },
	}

	c, err := New(wrapCapturing(estimator, &captured), CreateLinearColorMapper(0, 1))
	require.NoError(t, err)

	img := image.New(2, 2)
	img.Clear(image.Red)

	_, err = c.Estimate(img)
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, []int{1, 3, 2, 2}, captured.Shape())
	assert.InDelta(t, float32(1), captured.Index(0, 0, 0, 0).AsSingular(), 0.001) // R plane
	assert.InDelta(t, float32(0), captured.Index(0, 1, 0, 0).AsSingular(), 0.001) // G plane
	assert.InDelta(t, float32(0), captured.Index(0, 2, 0, 0).AsSingular(), 0.001) // B plane
}

func TestEstimate_NHWCSamplesSolidColor(t *testing.T) {
	estimator := onnxmock.New(
		[]nn.InputInfo{{Name: "input", Shape: []int64{1, 2, 2, 3}}},
		[]nn.OutputInfo{{Name: "echo"}},
	)

	var captured *tensor.Tensor
	estimator.OutputFuncs = []func() *tensor.Tensor{
		func() *tensor.Tensor { return captured },
	}

	c, err := New(wrapCapturing(estimator, &captured), CreateLinearColorMapper(0, 1))
	require.NoError(t, err)

	img := image.New(2, 2)
	img.Clear(image.Green)

	_, err = c.Estimate(img)
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, []int{1, 2, 2, 3}, captured.Shape())
	assert.InDelta(t, float32(0), captured.Index(0, 0, 0, 0).AsSingular(), 0.001)
	assert.InDelta(t, float32(1), captured.Index(0, 0, 0, 1).AsSingular(), 0.001)
	assert.InDelta(t, float32(0), captured.Index(0, 0, 0, 2).AsSingular(), 0.001)
}

// capturingEstimator records the tensor it was called with, so tests can
// inspect exactly what Cnn built without reaching into its internals.
type capturingEstimator struct {
	nn.Estimator
	captured **tensor.Tensor
}

func wrapCapturing(inner nn.Estimator, captured **tensor.Tensor) *capturingEstimator {
	return &capturingEstimator{Estimator: inner, captured: captured}
}

func (c *capturingEstimator) Estimate(in nn.Inputs) (nn.Outputs, error) {
	*c.captured = in.At(0)
	return c.Estimator.Estimate(in)
}
