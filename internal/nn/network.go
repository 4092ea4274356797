// Package nn wraps ONNX Runtime inference behind a small, tensor-shaped
// contract so that internal/cnn, internal/detect, and internal/landmark
// never touch onnxruntime_go directly.
package nn

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yalue/onnxruntime_go"

	"github.com/gophi/landmark/internal/tensor"
)

// InputInfo describes one input node of a loaded network.
type InputInfo struct {
	Name  string
	Shape []int64
}

// OutputInfo describes one output node of a loaded network.
type OutputInfo struct {
	Name  string
	Shape []int64
}

// Inputs is an ordered list of tensors to feed to Estimator.Estimate, one
// per input node, in the order Estimator.Inputs returns them.
type Inputs struct {
	tensors []*tensor.Tensor
}

// NewInputs builds an Inputs value from one or more tensors.
func NewInputs(tensors ...*tensor.Tensor) Inputs {
	return Inputs{tensors: tensors}
}

// Len returns the number of input tensors.
func (in Inputs) Len() int { return len(in.tensors) }

// At returns the i-th input tensor.
func (in Inputs) At(i int) *tensor.Tensor { return in.tensors[i] }

// Outputs is an ordered list of tensors produced by one inference pass,
// one per output node, in the order Estimator.Outputs returns them.
type Outputs struct {
	tensors []*tensor.Tensor
}

// NewOutputs builds an Outputs value from one or more tensors. It exists
// so fakes such as internal/onnxmock can satisfy the Estimator contract
// without internal/nn exposing its fields.
func NewOutputs(tensors ...*tensor.Tensor) Outputs {
	return Outputs{tensors: tensors}
}

// Len returns the number of output tensors.
func (out Outputs) Len() int { return len(out.tensors) }

// At returns the i-th output tensor.
func (out Outputs) At(i int) *tensor.Tensor { return out.tensors[i] }

// Estimator is the narrow surface internal/cnn, internal/detect, and
// internal/landmark depend on. internal/onnxmock implements it for tests
// that need deterministic outputs without a real ONNX Runtime session.
type Estimator interface {
	NumInputs() int
	NumOutputs() int
	Inputs() []InputInfo
	Outputs() []OutputInfo
	Estimate(in Inputs) (Outputs, error)
}

// Loader configures and then loads a NeuralNetwork from an ONNX model
// file. The zero value is not usable; construct one with FromPath.
type Loader struct {
	modelPath  string
	gpu        GPUConfig
	numThreads int
}

// FromPath prepares a Loader for the ONNX model at path. The path must
// carry a ".onnx" extension.
func FromPath(path string) (*Loader, error) {
	if !strings.HasSuffix(path, ".onnx") {
		return nil, fmt.Errorf("neural network file must have .onnx extension, got %q", path)
	}
	return &Loader{modelPath: path, gpu: DefaultGPUConfig()}, nil
}

// WithGPU instructs Load to configure the CUDA execution provider. If the
// GPU backend cannot serve this network, Load returns an error rather
// than silently falling back to CPU.
func (l *Loader) WithGPU(cfg GPUConfig) *Loader {
	l.gpu = cfg
	return l
}

// WithNumThreads sets the intra-op thread count for CPU execution. A
// value <= 0 leaves ONNX Runtime's default in place.
func (l *Loader) WithNumThreads(n int) *Loader {
	l.numThreads = n
	return l
}

// Load opens an ONNX Runtime session for the configured model. Load
// fails if the model's GPU configuration was requested but unsupported
// by the installed ONNX Runtime build, rather than deferring that
// failure to the first Estimate call.
func (l *Loader) Load() (*NeuralNetwork, error) {
	if err := setLibraryPath(l.gpu.Enabled); err != nil {
		return nil, fmt.Errorf("set ONNX Runtime library path: %w", err)
	}
	if !onnxruntime_go.IsInitialized() {
		if err := onnxruntime_go.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize ONNX Runtime: %w", err)
		}
	}

	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(l.modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model %s: %w", l.modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s declares no inputs or outputs", l.modelPath)
	}

	sessionOptions, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer func() { _ = sessionOptions.Destroy() }()

	if err := configureSessionForGPU(sessionOptions, l.gpu); err != nil {
		return nil, fmt.Errorf("configure GPU execution provider: %w", err)
	}
	if l.numThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(l.numThreads); err != nil {
			return nil, fmt.Errorf("set thread count: %w", err)
		}
	}

	inputNames := make([]string, len(inputs))
	inputInfo := make([]InputInfo, len(inputs))
	for i, info := range inputs {
		inputNames[i] = info.Name
		inputInfo[i] = InputInfo{Name: info.Name, Shape: shapeOf(info)}
	}

	outputNames := make([]string, len(outputs))
	outputInfo := make([]OutputInfo, len(outputs))
	for i, info := range outputs {
		outputNames[i] = info.Name
		outputInfo[i] = OutputInfo{Name: info.Name, Shape: shapeOf(info)}
	}

	session, err := onnxruntime_go.NewDynamicAdvancedSession(l.modelPath, inputNames, outputNames, sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("create ONNX session for %s: %w", l.modelPath, err)
	}

	return &NeuralNetwork{
		session:    session,
		inputInfo:  inputInfo,
		outputInfo: outputInfo,
	}, nil
}

func shapeOf(info onnxruntime_go.InputOutputInfo) []int64 {
	shape := make([]int64, len(info.Dimensions))
	copy(shape, info.Dimensions)
	return shape
}

// NeuralNetwork is a loaded, ready-to-run ONNX model. It is safe for
// concurrent use by multiple goroutines.
type NeuralNetwork struct {
	mu         sync.RWMutex
	session    *onnxruntime_go.DynamicAdvancedSession
	inputInfo  []InputInfo
	outputInfo []OutputInfo
}

var _ Estimator = (*NeuralNetwork)(nil)

// NumInputs returns the number of input nodes of the network.
func (nw *NeuralNetwork) NumInputs() int { return len(nw.inputInfo) }

// NumOutputs returns the number of output nodes of the network.
func (nw *NeuralNetwork) NumOutputs() int { return len(nw.outputInfo) }

// Inputs returns the network's input node descriptions, in the order
// Estimate expects tensors to be supplied.
func (nw *NeuralNetwork) Inputs() []InputInfo { return nw.inputInfo }

// Outputs returns the network's output node descriptions, in the order
// Estimate returns tensors.
func (nw *NeuralNetwork) Outputs() []OutputInfo { return nw.outputInfo }

// Estimate runs one forward pass of the network.
func (nw *NeuralNetwork) Estimate(in Inputs) (Outputs, error) {
	if in.Len() != nw.NumInputs() {
		return Outputs{}, fmt.Errorf("network takes %d inputs, got %d", nw.NumInputs(), in.Len())
	}

	ortInputs := make([]onnxruntime_go.Value, in.Len())
	for i := 0; i < in.Len(); i++ {
		tns := in.At(i)
		shape := intToInt64(tns.Shape())
		data := make([]float32, len(tns.Flat()))
		copy(data, tns.Flat())

		val, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(shape...), data)
		if err != nil {
			return Outputs{}, fmt.Errorf("create input tensor %d: %w", i, err)
		}
		defer func() { _ = val.Destroy() }()
		ortInputs[i] = val
	}

	ortOutputs := make([]onnxruntime_go.Value, nw.NumOutputs())

	nw.mu.RLock()
	session := nw.session
	nw.mu.RUnlock()
	if session == nil {
		return Outputs{}, errors.New("network session is closed")
	}

	if err := session.Run(ortInputs, ortOutputs); err != nil {
		return Outputs{}, fmt.Errorf("inference failed: %w", err)
	}

	result := make([]*tensor.Tensor, len(ortOutputs))
	for i, raw := range ortOutputs {
		defer func(v onnxruntime_go.Value) { _ = v.Destroy() }(raw)

		floatTensor, ok := raw.(*onnxruntime_go.Tensor[float32])
		if !ok {
			return Outputs{}, fmt.Errorf("output %d: expected float32 tensor, got %T", i, raw)
		}
		data := floatTensor.GetData()
		shape := int64ToInt(floatTensor.GetShape())

		idx := 0
		result[i] = tensor.FromShapeFn(shape, func([]int) float32 {
			v := data[idx]
			idx++
			return v
		})
	}

	return Outputs{tensors: result}, nil
}

// Close releases the underlying ONNX Runtime session.
func (nw *NeuralNetwork) Close() error {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	if nw.session == nil {
		return nil
	}
	err := nw.session.Destroy()
	nw.session = nil
	return err
}

func intToInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func int64ToInt(in onnxruntime_go.Shape) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
