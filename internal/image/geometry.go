package image

import (
	"fmt"
	"math"
)

// Resolution is a pixel width/height pair.
type Resolution struct {
	Width  int
	Height int
}

// AspectRatio returns the width-to-height ratio of r. AspectRatio panics
// if Height is zero.
func (r Resolution) AspectRatio() AspectRatio {
	if r.Height == 0 {
		panic("image: AspectRatio of a zero-height resolution")
	}
	return AspectRatio(float64(r.Width) / float64(r.Height))
}

// FitAspectRatio returns the largest Rect with aspect ratio ar that fits
// inside r, centered within it. This is the "letter/pillar-boxing"
// placement used by AspectAwareResize.
func (r Resolution) FitAspectRatio(ar AspectRatio) Rect {
	target := float64(ar)
	outer := r.AspectRatio().asFloat()

	var w, h int
	if target > outer {
		w = r.Width
		h = int(float64(r.Width) / target)
	} else {
		h = r.Height
		w = int(float64(r.Height) * target)
	}
	x := (r.Width - w) / 2
	y := (r.Height - h) / 2
	return Rect{X: x, Y: y, W: w, H: h}
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// AspectRatio is a width/height ratio, stored as a plain float64 so it
// can be compared and multiplied without a constructor.
type AspectRatio float64

func (a AspectRatio) asFloat() float64 { return float64(a) }

// AsFloat32 returns a as a float32.
func (a AspectRatio) AsFloat32() float32 { return float32(a) }

// Rect is an axis-aligned, integer pixel rectangle, anchored at its
// top-left corner.
type Rect struct {
	X, Y int
	W, H int
}

// RectFromTopLeft constructs a Rect from its top-left corner and size.
func RectFromTopLeft(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// FromCenter constructs a Rect from its center point and size, rounding
// the top-left corner down. Detection decoding works in center form
// (XCenter, YCenter, W, H) straight off the network, so this is the
// constructor Detection.boundingRectPixels uses once it has unletterboxed
// a box back into pixel space.
func FromCenter(cx, cy, w, h float64) Rect {
	return Rect{
		X: int(math.Floor(cx - w/2)),
		Y: int(math.Floor(cy - h/2)),
		W: int(w),
		H: int(h),
	}
}

// Left, Top, Right, Bottom return the rectangle's edge coordinates.
func (r Rect) Left() int   { return r.X }
func (r Rect) Top() int    { return r.Y }
func (r Rect) Right() int  { return r.X + r.W }
func (r Rect) Bottom() int { return r.Y + r.H }

// Empty reports whether r has zero area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// CenterX and CenterY return the rectangle's center point, in float
// pixel coordinates.
func (r Rect) CenterX() float64 { return float64(r.X) + float64(r.W)/2 }
func (r Rect) CenterY() float64 { return float64(r.Y) + float64(r.H)/2 }

// Intersection returns the overlap of r and other. The second return
// value is false if the rectangles do not overlap, in which case the
// first return value is the zero Rect.
func (r Rect) Intersection(other Rect) (Rect, bool) {
	x1 := maxInt(r.Left(), other.Left())
	y1 := maxInt(r.Top(), other.Top())
	x2 := minInt(r.Right(), other.Right())
	y2 := minInt(r.Bottom(), other.Bottom())

	if x2 <= x1 || y2 <= y1 {
		return Rect{}, false
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}, true
}

// Grow returns a Rect expanded on each side by a fraction of its own
// width (left/right) and height (top/bottom). Fractions may differ per
// side, matching the asymmetric "loose" padding MediaPipe-style
// detectors use to grow a raw detection box into a face/hand ROI.
func (r Rect) Grow(left, right, top, bottom float64) Rect {
	dl := int(float64(r.W) * left)
	dr := int(float64(r.W) * right)
	dt := int(float64(r.H) * top)
	db := int(float64(r.H) * bottom)
	return Rect{
		X: r.X - dl,
		Y: r.Y - dt,
		W: r.W + dl + dr,
		H: r.H + dt + db,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// UnletterboxPoint maps a point normalized to [0,1]^2 over a detector's
// letterboxed input resolution back into pixel coordinates of the
// original image that was aspect-aware-resized into it. It is the
// inverse of the letter/pillar-box placement FitAspectRatio computes
// during AspectAwareResize.
func UnletterboxPoint(normX, normY float64, networkRes, originalRes Resolution) (x, y float64) {
	target := networkRes.FitAspectRatio(originalRes.AspectRatio())

	px := normX * float64(networkRes.Width)
	py := normY * float64(networkRes.Height)

	rx := (px - float64(target.X)) / float64(target.W)
	ry := (py - float64(target.Y)) / float64(target.H)

	return rx * float64(originalRes.Width), ry * float64(originalRes.Height)
}

// UnletterboxSize maps a size normalized to [0,1]^2 over a detector's
// letterboxed input resolution back into a pixel size in the original
// image, undoing the same letterbox scale factor UnletterboxPoint
// undoes for positions (no origin offset applies to a size).
func UnletterboxSize(normW, normH float64, networkRes, originalRes Resolution) (w, h float64) {
	target := networkRes.FitAspectRatio(originalRes.AspectRatio())

	pw := normW * float64(networkRes.Width)
	ph := normH * float64(networkRes.Height)

	return pw / float64(target.W) * float64(originalRes.Width), ph / float64(target.H) * float64(originalRes.Height)
}

// RotatedRect is a Rect together with a rotation around its own center,
// in radians. Used for face/hand ROIs, whose rotation is estimated from
// detected keypoints (e.g. the eye-to-eye vector for faces).
type RotatedRect struct {
	Rect
	RotationRadians float64
}

// Corners returns the rect's four corners, in order (top-left, top-right,
// bottom-right, bottom-left) before rotation, rotated by RotationRadians
// around the rect's own center. Used to draw a tilted ROI outline rather
// than its axis-aligned bounding box.
func (rr RotatedRect) Corners() [4][2]float64 {
	cx, cy := rr.CenterX(), rr.CenterY()
	hw, hh := float64(rr.W)/2, float64(rr.H)/2
	sin, cos := math.Sin(rr.RotationRadians), math.Cos(rr.RotationRadians)

	corners := [4][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	for i, c := range corners {
		corners[i] = [2]float64{
			cx + c[0]*cos - c[1]*sin,
			cy + c[0]*sin + c[1]*cos,
		}
	}
	return corners
}
