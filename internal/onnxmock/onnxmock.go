// Package onnxmock provides a fake nn.Estimator that returns
// synthetically generated tensors instead of running a real ONNX Runtime
// session, so internal/detect and internal/landmark can be exercised in
// tests without a model file on disk.
package onnxmock

import (
	"fmt"
	"math"

	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/tensor"
)

// Estimator is a scripted nn.Estimator: it ignores its input tensors and
// always returns the tensors built by its OutputFuncs, one per
// configured output shape.
type Estimator struct {
	inputs  []nn.InputInfo
	outputs []nn.OutputInfo

	// OutputFuncs builds the i-th output tensor on every Estimate call.
	// Len(OutputFuncs) must equal len(outputs).
	OutputFuncs []func() *tensor.Tensor

	// Calls counts how many times Estimate has been invoked, useful for
	// assertions that a caller only ran inference once.
	Calls int
}

// New builds an Estimator advertising the given input/output node shapes.
// Callers must set OutputFuncs before calling Estimate.
func New(inputs []nn.InputInfo, outputs []nn.OutputInfo) *Estimator {
	return &Estimator{inputs: inputs, outputs: outputs}
}

var _ nn.Estimator = (*Estimator)(nil)

func (e *Estimator) NumInputs() int           { return len(e.inputs) }
func (e *Estimator) NumOutputs() int          { return len(e.outputs) }
func (e *Estimator) Inputs() []nn.InputInfo   { return e.inputs }
func (e *Estimator) Outputs() []nn.OutputInfo { return e.outputs }

// Estimate ignores in and returns the tensors produced by OutputFuncs.
func (e *Estimator) Estimate(in nn.Inputs) (nn.Outputs, error) {
	e.Calls++
	if len(e.OutputFuncs) != len(e.outputs) {
		return nn.Outputs{}, fmt.Errorf("onnxmock: have %d output funcs for %d outputs", len(e.OutputFuncs), len(e.outputs))
	}
	tensors := make([]*tensor.Tensor, len(e.OutputFuncs))
	for i, f := range e.OutputFuncs {
		tensors[i] = f()
	}
	return nn.NewOutputs(tensors...), nil
}

// clamp01 clamps v to [0, 1].
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// UniformScoreMap builds a [1, numAnchors, 1] confidence tensor with every
// anchor scored at logit(value) so that a sigmoid in internal/detect
// recovers value.
func UniformScoreMap(numAnchors int, probability float32) *tensor.Tensor {
	probability = clamp01(probability)
	logit := logitOf(probability)
	return tensor.FromShapeFn([]int{1, numAnchors, 1}, func([]int) float32 { return logit })
}

// ZeroBoxes builds a [1, numAnchors, numCoords] tensor of all-zero box
// regression outputs, i.e. every anchor's predicted box is exactly its
// anchor cell with no keypoints offset.
func ZeroBoxes(numAnchors, numCoords int) *tensor.Tensor {
	return tensor.FromShapeFn([]int{1, numAnchors, numCoords}, func([]int) float32 { return 0 })
}

// SingleDetectionBoxes builds a [1, numAnchors, numCoords] box tensor
// where every anchor predicts a zero box except anchorIdx, which predicts
// the given center offset (dx, dy) and size (w, h) in pixels.
func SingleDetectionBoxes(numAnchors, numCoords, anchorIdx int, dx, dy, w, h float32) *tensor.Tensor {
	return tensor.FromShapeFn([]int{1, numAnchors, numCoords}, func(idx []int) float32 {
		if idx[1] != anchorIdx {
			return 0
		}
		switch idx[2] {
		case 0:
			return dx
		case 1:
			return dy
		case 2:
			return w
		case 3:
			return h
		default:
			return 0
		}
	})
}

// LandmarkTensor builds a [1, 1, 1, numPoints*3] flattened (x, y, z)
// landmark tensor from a list of points, padding unset coordinates with
// zero.
func LandmarkTensor(numPoints int, points [][3]float32) *tensor.Tensor {
	return tensor.FromShapeFn([]int{1, 1, 1, numPoints * 3}, func(idx []int) float32 {
		flat := idx[3]
		point := flat / 3
		coord := flat % 3
		if point >= len(points) {
			return 0
		}
		return points[point][coord]
	})
}

// PresenceLogit builds a [1, 1] presence-confidence tensor holding the
// pre-sigmoid logit of the given probability, clamped to [0, 1] first.
func PresenceLogit(probability float32) *tensor.Tensor {
	logit := logitOf(clamp01(probability))
	return tensor.FromShapeFn([]int{1, 1}, func([]int) float32 { return logit })
}

func logitOf(p float32) float32 {
	if p <= 0 {
		return -20
	}
	if p >= 1 {
		return 20
	}
	return float32(math.Log(float64(p) / (1 - float64(p))))
}
