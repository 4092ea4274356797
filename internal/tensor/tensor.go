// Package tensor implements a dense, dynamically-ranked float32 tensor
// with row-major layout, matching the shapes ONNX Runtime hands back from
// inference (internal/nn) and the shapes internal/cnn needs to build
// before a forward pass.
package tensor

import "fmt"

// layout holds a tensor's shape and the strides (in elements, not bytes)
// needed to index into the flat backing slice. Strides are derived from
// shape with the last axis varying fastest, matching row-major / C order.
type layout struct {
	shape   []int
	strides []int
}

func newLayout(shape []int) layout {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return layout{shape: shape, strides: strides}
}

func (l layout) removePrefix(num int) layout {
	if num > len(l.shape) {
		panic(fmt.Sprintf("tensor: removePrefix(%d) exceeds rank %d", num, len(l.shape)))
	}
	return layout{shape: l.shape[num:], strides: l.strides[num:]}
}

// Tensor is an owned, dense, row-major N-dimensional array of float32.
type Tensor struct {
	layout layout
	data   []float32
}

// View is a read-only, non-owning window into a Tensor or another View.
type View struct {
	layout layout
	data   []float32
}

// shapeProduct returns the element count of shape, or 0 if any axis is 0.
func shapeProduct(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// shapeIndices enumerates every index vector for shape in row-major order
// (last axis fastest), matching the iteration order a nested for-loop
// over axes 0..N-1 would produce. It calls f once per element, or never
// if any axis is zero-sized; a rank-0 shape yields exactly one call with
// an empty index vector.
func shapeIndices(shape []int, f func(idx []int)) {
	for _, s := range shape {
		if s == 0 {
			return
		}
	}

	idx := make([]int, len(shape))
	if len(shape) == 0 {
		f(idx)
		return
	}

	for {
		f(idx)

		pos := len(shape) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < shape[pos] {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return
		}
	}
}

// FromShapeFn builds a Tensor of the given shape by invoking f once per
// element in row-major order, starting at the all-zero index. f may
// ignore the index it's given. A shape containing a zero axis produces an
// empty tensor without ever calling f; a rank-0 shape calls f exactly
// once.
func FromShapeFn(shape []int, f func(idx []int) float32) *Tensor {
	data := make([]float32, 0, shapeProduct(shape))
	shapeIndices(shape, func(idx []int) {
		data = append(data, f(idx))
	})
	shapeCopy := append([]int(nil), shape...)
	return &Tensor{layout: newLayout(shapeCopy), data: data}
}

// FromFlatSlice builds a Tensor of the given shape from a flat,
// row-major data slice. The tensor copies data into its own storage, so
// callers are free to reuse or pool the slice they passed in afterward.
// FromFlatSlice panics if len(data) doesn't match the element count
// implied by shape.
func FromFlatSlice(shape []int, data []float32) *Tensor {
	want := shapeProduct(shape)
	if len(data) != want {
		panic(fmt.Sprintf("tensor: FromFlatSlice shape %v wants %d elements, got %d", shape, want, len(data)))
	}
	owned := make([]float32, want)
	copy(owned, data)
	shapeCopy := append([]int(nil), shape...)
	return &Tensor{layout: newLayout(shapeCopy), data: owned}
}

// FromSlice builds a rank-1 Tensor from a slice of values.
func FromSlice(values []float32) *Tensor {
	return FromShapeFn([]int{len(values)}, func(idx []int) float32 { return values[idx[0]] })
}

// FromScalar builds a rank-0 Tensor holding a single value.
func FromScalar(value float32) *Tensor {
	return FromShapeFn(nil, func([]int) float32 { return value })
}

// Shape returns the tensor's per-axis sizes.
func (t *Tensor) Shape() []int { return t.layout.shape }

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return len(t.layout.shape) }

// Index indexes a prefix of the tensor's axes, returning a View over the
// remaining trailing axes. Indexing with zero indices returns a view of
// the whole tensor; indexing with all axes returns a rank-0 view.
//
// Index panics if indices has more entries than the tensor has axes, or
// any index is out of bounds for its axis.
func (t *Tensor) Index(indices ...int) View {
	return indexInto(t.layout, t.data, indices)
}

// Iter calls yield once per slice along the outermost axis, in order.
// Iter panics if the tensor is rank 0.
func (t *Tensor) Iter(yield func(View)) {
	iterOuter(t.layout, t.data, yield)
}

// AsSlice returns the backing data of a rank-1 tensor. AsSlice panics if
// the tensor is not rank 1.
func (t *Tensor) AsSlice() []float32 {
	if t.Rank() != 1 {
		panic(fmt.Sprintf("tensor: AsSlice on rank-%d tensor (shape %v)", t.Rank(), t.Shape()))
	}
	return t.data
}

// AsSingular returns the value of a rank-0 tensor. AsSingular panics if
// the tensor is not rank 0.
func (t *Tensor) AsSingular() float32 {
	if t.Rank() != 0 {
		panic(fmt.Sprintf("tensor: AsSingular on rank-%d tensor (shape %v)", t.Rank(), t.Shape()))
	}
	return t.data[0]
}

// Flat returns the tensor's backing storage as a single row-major slice,
// regardless of rank. Used by internal/nn to hand data to ONNX Runtime,
// which expects a flat buffer alongside an explicit shape.
func (t *Tensor) Flat() []float32 { return t.data }

// Shape returns the view's per-axis sizes.
func (v View) Shape() []int { return v.layout.shape }

// Rank returns the number of axes remaining in the view.
func (v View) Rank() int { return len(v.layout.shape) }

// Index indexes a prefix of the view's axes, exactly as Tensor.Index does.
func (v View) Index(indices ...int) View {
	return indexInto(v.layout, v.data, indices)
}

// Iter calls yield once per slice along the view's outermost axis.
func (v View) Iter(yield func(View)) {
	iterOuter(v.layout, v.data, yield)
}

// AsSlice returns the backing data of a rank-1 view.
func (v View) AsSlice() []float32 {
	if v.Rank() != 1 {
		panic(fmt.Sprintf("tensor: AsSlice on rank-%d view (shape %v)", v.Rank(), v.Shape()))
	}
	return v.data
}

// AsSingular returns the value of a rank-0 view.
func (v View) AsSingular() float32 {
	if v.Rank() != 0 {
		panic(fmt.Sprintf("tensor: AsSingular on rank-%d view (shape %v)", v.Rank(), v.Shape()))
	}
	return v.data[0]
}

// Flat returns the view's backing storage as a single row-major slice,
// regardless of rank.
func (v View) Flat() []float32 { return v.data }

func indexInto(l layout, data []float32, indices []int) View {
	if len(indices) > len(l.shape) {
		panic(fmt.Sprintf("tensor: indexed shape %v with %d indices", l.shape, len(indices)))
	}
	for axis, i := range indices {
		if i < 0 || i >= l.shape[axis] {
			panic(fmt.Sprintf("tensor: index %d out of bounds for axis %d of shape %v", i, axis, l.shape))
		}
		stride := l.strides[axis]
		data = data[i*stride : (i+1)*stride]
	}
	return View{layout: l.removePrefix(len(indices)), data: data}
}

func iterOuter(l layout, data []float32, yield func(View)) {
	if len(l.shape) == 0 {
		panic("tensor: attempted to iterate over rank-0 tensor")
	}
	for i := 0; i < l.shape[0]; i++ {
		yield(indexInto(l, data, []int{i}))
	}
}
