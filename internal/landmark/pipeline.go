// Package landmark implements the single-shot landmark pipeline shared
// by face (468-point) and hand (21-point) landmark networks: resize to
// the network's input resolution, run inference, and map each output
// coordinate back through the aspect-aware-resize undo into the full
// input image's pixel space.
package landmark

import (
	"math"

	"github.com/gophi/landmark/internal/cnn"
	"github.com/gophi/landmark/internal/errs"
	"github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/timing"
)

func sigmoid(logit float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(logit))))
}

// Point3 is a single landmark position: X and Y are in the input
// image's own pixel coordinates once computed by the pipeline; Z is
// passed through unmodified in network-input-pixel units and is not
// comparable across differently-sized inputs.
type Point3 struct {
	X, Y, Z float32
}

// computeInto runs the resize -> infer -> per-point unletterbox
// pipeline over view, writing numPoints landmark positions into dst
// (which must have length numPoints) and returning the raw
// (pre-sigmoid) presence logit the network's second output carries.
// computeInto never allocates the destination slice itself; callers
// own that buffer so repeated calls can reuse it without allocating.
func computeInto(
	c *cnn.Cnn,
	resizeTimer, inferTimer *timing.Timer,
	view image.AsImageView,
	dst []Point3,
) (presenceLogit float32, err error) {
	v := view.AsImageView()
	fullRes := v.Resolution()
	inputRes := c.InputResolution()

	var resized image.AsImageView = v
	resizeTimer.Time(func() {
		if fullRes != inputRes {
			resized = v.AspectAwareResize(inputRes)
		}
	})

	var outputs nn.Outputs
	inferTimer.Time(func() {
		outputs, err = c.Estimate(resized)
	})
	if err != nil {
		return 0, errs.Infer("landmark.computeInto", err)
	}
	if outputs.Len() != 2 {
		return 0, errs.Inferf("landmark.computeInto", "model must emit exactly 2 outputs (coords, presence), got %d", outputs.Len())
	}

	coords := outputs.At(0).Flat()
	if len(coords) != len(dst)*3 {
		return 0, errs.Inferf("landmark.computeInto", "coordinate output has %d values, want %d for %d points",
			len(coords), len(dst)*3, len(dst))
	}

	for i := range dst {
		x, y, z := coords[i*3], coords[i*3+1], coords[i*3+2]
		nx := float64(x) / float64(inputRes.Width)
		ny := float64(y) / float64(inputRes.Height)
		ux, uy := image.UnletterboxPoint(nx, ny, inputRes, fullRes)
		dst[i] = Point3{X: float32(ux), Y: float32(uy), Z: z}
	}

	presence := outputs.At(1).Flat()
	if len(presence) == 0 {
		return 0, errs.Inferf("landmark.computeInto", "presence output is empty")
	}
	return presence[0], nil
}

// boundingRectAll returns the tight axis-aligned box over every point
// in points.
func boundingRectAll(points []Point3) image.Rect {
	indices := make([]int, len(points))
	for i := range indices {
		indices[i] = i
	}
	return boundingRect(points, indices)
}

// boundingRect returns the tight axis-aligned box over the given
// landmark indices.
func boundingRect(points []Point3, indices []int) image.Rect {
	minX, minY := points[indices[0]].X, points[indices[0]].Y
	maxX, maxY := minX, minY
	for _, idx := range indices[1:] {
		p := points[idx]
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect{
		X: int(minX),
		Y: int(minY),
		W: int(maxX - minX),
		H: int(maxY - minY),
	}
}
