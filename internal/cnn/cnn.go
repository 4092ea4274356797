// Package cnn binds an internal/nn.Estimator to a fixed input layout and
// pixel format, so the rest of the pipeline can hand it an
// internal/image view and get back raw network output tensors without
// worrying about NCHW vs. NHWC or how pixels map to floats.
package cnn

import (
	"fmt"
	"math"

	"github.com/gophi/landmark/internal/errs"
	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/mempool"
	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/tensor"
)

// InputShape is the axis order a network expects its image input in.
type InputShape int

const (
	// NCHW is [1, 3, H, W], channel-first.
	NCHW InputShape = iota
	// NHWC is [1, H, W, 3], channel-last.
	NHWC
)

func (s InputShape) String() string {
	switch s {
	case NCHW:
		return "NCHW"
	case NHWC:
		return "NHWC"
	default:
		return "unknown"
	}
}

// ColorMapper converts a pixel into the three float32 channel values a
// network input expects. It is chosen once per Cnn so the sampling loop
// never has to dispatch on color format per-pixel.
type ColorMapper func(c image.Color) [3]float32

// CreateLinearColorMapper returns a ColorMapper that maps each 8-bit
// channel linearly onto [start, end]: Black maps to [start, start,
// start], White to [end, end, end]. Most face/hand detection and
// landmark networks expect either start=0, end=1 or start=-1, end=1.
func CreateLinearColorMapper(start, end float32) ColorMapper {
	scale := (end - start) / 255
	return func(c image.Color) [3]float32 {
		return [3]float32{
			start + float32(c.R)*scale,
			start + float32(c.G)*scale,
			start + float32(c.B)*scale,
		}
	}
}

// Cnn wraps an nn.Estimator with a fixed [InputShape] and [ColorMapper],
// resolved once at construction time from the network's declared input
// shape.
type Cnn struct {
	estimator  nn.Estimator
	inputName  string
	inputShape InputShape
	resolution image.Resolution
	mapper     ColorMapper
	build      func(view image.AsImageView, res image.Resolution, mapper ColorMapper) *tensor.Tensor
}

// New binds estimator to mapper, inferring the expected input layout
// and resolution from the estimator's single declared input. New fails
// if the estimator does not declare exactly one input, or if that
// input's shape isn't a 4-D [1,3,H,W] or [1,H,W,3] tensor.
func New(estimator nn.Estimator, mapper ColorMapper) (*Cnn, error) {
	inputs := estimator.Inputs()
	if len(inputs) != 1 {
		return nil, errs.Configf("cnn.New", "estimator must declare exactly one input, got %d", len(inputs))
	}
	in := inputs[0]
	if len(in.Shape) != 4 {
		return nil, errs.Configf("cnn.New", "input %q has rank %d, want 4 ([N,C,H,W] or [N,H,W,C])", in.Name, len(in.Shape))
	}

	shape, res, err := classifyInputShape(in.Shape)
	if err != nil {
		return nil, errs.Config("cnn.New", fmt.Errorf("input %q: %w", in.Name, err))
	}

	c := &Cnn{
		estimator:  estimator,
		inputName:  in.Name,
		inputShape: shape,
		resolution: res,
		mapper:     mapper,
	}
	switch shape {
	case NCHW:
		c.build = buildNCHW
	case NHWC:
		c.build = buildNHWC
	}
	return c, nil
}

func classifyInputShape(dims []int64) (InputShape, image.Resolution, error) {
	if dims[0] != 1 {
		return 0, image.Resolution{}, fmt.Errorf("batch dimension must be 1, got %d", dims[0])
	}
	switch {
	case dims[1] == 3:
		return NCHW, image.Resolution{Width: int(dims[3]), Height: int(dims[2])}, nil
	case dims[3] == 3:
		return NHWC, image.Resolution{Width: int(dims[2]), Height: int(dims[1])}, nil
	default:
		return 0, image.Resolution{}, fmt.Errorf("shape %v has no channel axis of size 3", dims)
	}
}

// InputShape reports whether the bound network expects NCHW or NHWC
// input.
func (c *Cnn) InputShape() InputShape { return c.inputShape }

// InputResolution reports the fixed width/height the bound network
// expects its input sampled at.
func (c *Cnn) InputResolution() image.Resolution { return c.resolution }

// Estimate samples view at the network's input resolution via
// nearest-neighbor interpolation, maps pixels through the bound
// ColorMapper, and runs inference.
func (c *Cnn) Estimate(view image.AsImageView) (nn.Outputs, error) {
	input := c.build(view, c.resolution, c.mapper)
	outputs, err := c.estimator.Estimate(nn.NewInputs(input))
	if err != nil {
		return nn.Outputs{}, errs.Infer("cnn.Estimate", err)
	}
	return outputs, nil
}

// sample returns the nearest source pixel for destination coordinate
// (dx, dy) in a destination of size (dstW, dstH), using texel-center
// sampling so edge pixels aren't systematically under-weighted.
func sample(view image.View, dx, dy, dstW, dstH int) image.Color {
	srcW, srcH := view.Width(), view.Height()
	sx := int(math.Round((float64(dx) + 0.5) / float64(dstW) * float64(srcW)))
	sy := int(math.Round((float64(dy) + 0.5) / float64(dstH) * float64(srcH)))
	if sx >= srcW {
		sx = srcW - 1
	}
	if sy >= srcH {
		sy = srcH - 1
	}
	return view.Get(sx, sy)
}

// buildNCHW and buildNHWC are the two concrete sampling loops a Cnn
// picks between once at construction time, rather than branching on
// layout for every pixel. Each samples and color-maps a pixel exactly
// once, writing its three channels into a pooled scratch buffer that's
// copied into the resulting Tensor and returned to the pool.

func buildNCHW(v image.AsImageView, res image.Resolution, mapper ColorMapper) *tensor.Tensor {
	view := v.AsImageView()
	w, h := res.Width, res.Height
	shape := []int{1, 3, h, w}
	planeSize := w * h

	buf := mempool.GetFloat32(3 * planeSize)
	defer mempool.PutFloat32(buf)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rgb := mapper(sample(view, x, y, w, h))
			pixel := y*w + x
			buf[0*planeSize+pixel] = rgb[0]
			buf[1*planeSize+pixel] = rgb[1]
			buf[2*planeSize+pixel] = rgb[2]
		}
	}
	return tensor.FromFlatSlice(shape, buf)
}

func buildNHWC(v image.AsImageView, res image.Resolution, mapper ColorMapper) *tensor.Tensor {
	view := v.AsImageView()
	w, h := res.Width, res.Height
	shape := []int{1, h, w, 3}

	buf := mempool.GetFloat32(h * w * 3)
	defer mempool.PutFloat32(buf)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rgb := mapper(sample(view, x, y, w, h))
			base := (y*w + x) * 3
			buf[base+0] = rgb[0]
			buf[base+1] = rgb[1]
			buf[base+2] = rgb[2]
		}
	}
	return tensor.FromFlatSlice(shape, buf)
}
