// Package image implements the RGBA image and clipped-view abstraction
// the rest of the pipeline operates on: internal/cnn samples from it to
// build network input tensors, and internal/gui displays it.
package image

import (
	stdimage "image"
	"image/color"
	stdjpeg "image/jpeg"
	stdpng "image/png"
	"io"
)

// Image is an owned, mutable 8-bit sRGB RGBA image.
type Image struct {
	buf *stdimage.RGBA
}

// New creates a black, fully-transparent image of the given size.
func New(width, height int) *Image {
	return &Image{buf: stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))}
}

// Decode reads a JPEG or PNG image from r.
func Decode(r io.Reader) (*Image, error) {
	src, _, err := stdimage.Decode(r)
	if err != nil {
		return nil, err
	}
	return fromStdImage(src), nil
}

// FromStdImage adapts a standard library image.Image into an Image,
// copying its pixels.
func FromStdImage(src stdimage.Image) *Image {
	return fromStdImage(src)
}

func fromStdImage(src stdimage.Image) *Image {
	bounds := src.Bounds()
	out := stdimage.NewRGBA(stdimage.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			out.Set(x, y, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return &Image{buf: out}
}

// EncodePNG writes img to w as a PNG.
func (img *Image) EncodePNG(w io.Writer) error {
	return stdpng.Encode(w, img.buf)
}

// EncodeJPEG writes img to w as a JPEG at the given quality (1-100).
func (img *Image) EncodeJPEG(w io.Writer, quality int) error {
	return stdjpeg.Encode(w, img.buf, &stdjpeg.Options{Quality: quality})
}

// Width returns the image width in pixels.
func (img *Image) Width() int { return img.buf.Rect.Dx() }

// Height returns the image height in pixels.
func (img *Image) Height() int { return img.buf.Rect.Dy() }

// Resolution returns the image's size.
func (img *Image) Resolution() Resolution {
	return Resolution{Width: img.Width(), Height: img.Height()}
}

// Rect returns a Rect covering the whole image, anchored at (0, 0).
func (img *Image) Rect() Rect {
	return Rect{X: 0, Y: 0, W: img.Width(), H: img.Height()}
}

// Get returns the color at (x, y). Get panics if (x, y) is out of
// bounds.
func (img *Image) Get(x, y int) Color {
	if x < 0 || y < 0 || x >= img.Width() || y >= img.Height() {
		panic("image: Get out of bounds")
	}
	c := img.buf.RGBAAt(img.buf.Rect.Min.X+x, img.buf.Rect.Min.Y+y)
	return Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Set writes the color at (x, y). Set panics if (x, y) is out of bounds.
func (img *Image) Set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= img.Width() || y >= img.Height() {
		panic("image: Set out of bounds")
	}
	img.buf.SetRGBA(img.buf.Rect.Min.X+x, img.buf.Rect.Min.Y+y, color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A})
}

// Clear sets every pixel to c.
func (img *Image) Clear(c Color) {
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			img.Set(x, y, c)
		}
	}
}

// View returns a read-only window over rect. If rect lies partially
// outside the image, the view is silently clipped to the image bounds;
// if it lies fully outside, the view is empty (Width/Height both 0).
// Callers that need to detect a clipped/degenerate result should use
// TryView instead.
func (img *Image) View(rect Rect) View {
	v, _ := img.TryView(rect)
	return v
}

// TryView is like View, but its second return value reports whether
// rect was already fully contained in the image (true) or had to be
// clipped, possibly down to an empty view (false).
func (img *Image) TryView(rect Rect) (View, bool) {
	clipped, ok := img.Rect().Intersection(rect)
	if !ok {
		return View{img: img, rect: Rect{X: rect.X, Y: rect.Y, W: 0, H: 0}}, false
	}
	return View{img: img, rect: clipped}, clipped == rect
}

// ViewMut is the mutable counterpart of View, with identical clipping
// behavior.
func (img *Image) ViewMut(rect Rect) ViewMut {
	v, _ := img.TryView(rect)
	return ViewMut{View: v}
}

// AspectAwareResize scales and letter/pillar-boxes img to newRes,
// preserving its original aspect ratio by adding black bars. Uses
// nearest-neighbor sampling: the whole pipeline samples network inputs
// at sub-pixel precision anyway, so a higher-quality resize here would
// be wasted work on the hot path.
func (img *Image) AspectAwareResize(newRes Resolution) *Image {
	return img.AsView().AspectAwareResize(newRes)
}

// AsView returns a View over the whole image.
func (img *Image) AsView() View {
	return View{img: img, rect: img.Rect()}
}

// AsImageView implements AsImageView.
func (img *Image) AsImageView() View { return img.AsView() }

// View is a read-only window into an Image's pixels.
type View struct {
	img  *Image
	rect Rect
}

// Width returns the view's width in pixels.
func (v View) Width() int { return v.rect.W }

// Height returns the view's height in pixels.
func (v View) Height() int { return v.rect.H }

// Resolution returns the view's size.
func (v View) Resolution() Resolution {
	return Resolution{Width: v.Width(), Height: v.Height()}
}

// Rect returns a Rect of the view's own size, anchored at (0, 0) in the
// view's local coordinate space.
func (v View) Rect() Rect {
	return Rect{X: 0, Y: 0, W: v.Width(), H: v.Height()}
}

// Get returns the color at view-local coordinates (x, y).
func (v View) Get(x, y int) Color {
	return v.img.Get(v.rect.X+x, v.rect.Y+y)
}

// View returns a subview of rect, in view-local coordinates, clipped
// exactly as Image.View clips.
func (v View) View(rect Rect) View {
	abs := Rect{X: v.rect.X + rect.X, Y: v.rect.Y + rect.Y, W: rect.W, H: rect.H}
	return v.img.View(abs)
}

// ToImage copies this view's pixels into a new, owned Image.
func (v View) ToImage() *Image {
	out := New(v.Width(), v.Height())
	for y := 0; y < v.Height(); y++ {
		for x := 0; x < v.Width(); x++ {
			out.Set(x, y, v.Get(x, y))
		}
	}
	return out
}

// AspectAwareResize scales and letter/pillar-boxes v to newRes,
// preserving its original aspect ratio by adding black bars via nearest
// -neighbor sampling.
func (v View) AspectAwareResize(newRes Resolution) *Image {
	out := New(newRes.Width, newRes.Height)
	targetRect := newRes.FitAspectRatio(v.Resolution().AspectRatio())
	dest := out.ViewMut(targetRect)

	w, h := v.Width(), v.Height()
	for dy := 0; dy < targetRect.H; dy++ {
		srcY := int((float64(dy) + 0.5) / float64(targetRect.H) * float64(h))
		if srcY >= h {
			srcY = h - 1
		}
		for dx := 0; dx < targetRect.W; dx++ {
			srcX := int((float64(dx) + 0.5) / float64(targetRect.W) * float64(w))
			if srcX >= w {
				srcX = w - 1
			}
			dest.Set(dx, dy, v.Get(srcX, srcY))
		}
	}
	return out
}

// AsImageView implements AsImageView.
func (v View) AsImageView() View { return v }

// ViewMut is a mutable window into an Image's pixels.
type ViewMut struct {
	View
}

// Set writes the color at view-local coordinates (x, y).
func (v ViewMut) Set(x, y int, c Color) {
	v.img.Set(v.rect.X+x, v.rect.Y+y, c)
}

// ViewMut returns a mutable subview of rect, in view-local coordinates,
// clipped exactly as Image.View clips.
func (v ViewMut) ViewMut(rect Rect) ViewMut {
	abs := Rect{X: v.rect.X + rect.X, Y: v.rect.Y + rect.Y, W: rect.W, H: rect.H}
	return v.img.ViewMut(abs)
}

// AsImageViewMut implements AsImageViewMut.
func (v ViewMut) AsImageViewMut() ViewMut { return v }

// AsImageView is implemented by anything that can be treated as a
// read-only image view: *Image and View.
type AsImageView interface {
	AsImageView() View
}

// AsImageViewMut is implemented by anything that can be treated as a
// mutable image view: *Image and ViewMut.
type AsImageViewMut interface {
	AsImageView
	AsImageViewMut() ViewMut
}

var (
	_ AsImageView    = (*Image)(nil)
	_ AsImageView    = View{}
	_ AsImageViewMut = (*Image)(nil)
	_ AsImageViewMut = ViewMut{}
)

// AsImageViewMut implements AsImageViewMut for *Image.
func (img *Image) AsImageViewMut() ViewMut { return ViewMut{View: img.AsView()} }
