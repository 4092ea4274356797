package testutil

import (
	stdimage "image"
	stdcolor "image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gophi/landmark/internal/image"
)

// Marker is a single labeled point to draw onto a synthetic test
// image, e.g. a detection keypoint or landmark position.
type Marker struct {
	Label string
	X, Y  int
}

// GenerateMarkerImage builds a synthetic RGBA image of the given size,
// filled with background, with a small crosshair and text label drawn
// at each marker's position. It stands in for a real photo in detector
// and landmark tests, where what matters is that specific pixel
// positions are recoverable, not photographic realism.
func GenerateMarkerImage(width, height int, background image.Color, markers []Marker) *image.Image {
	std := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	draw.Draw(std, std.Bounds(), &stdimage.Uniform{C: stdcolor.RGBA{R: background.R, G: background.G, B: background.B, A: background.A}}, stdimage.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  std,
		Src:  &stdimage.Uniform{C: stdcolor.Black},
		Face: basicfont.Face7x13,
	}
	for _, m := range markers {
		drawCrosshair(std, m.X, m.Y, 4)
		drawer.Dot = fixed.P(m.X+6, m.Y-6)
		drawer.DrawString(m.Label)
	}

	return image.FromStdImage(std)
}

func drawCrosshair(dst *stdimage.RGBA, x, y, radius int) {
	for d := -radius; d <= radius; d++ {
		setIfInBounds(dst, x+d, y)
		setIfInBounds(dst, x, y+d)
	}
}

func setIfInBounds(dst *stdimage.RGBA, x, y int) {
	b := dst.Bounds()
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		return
	}
	dst.Set(x, y, stdcolor.Black)
}

// RotateDegrees rotates img by degrees (counter-clockwise, matching
// imaging.Rotate), filling the expanded corners with fill.
func RotateDegrees(img *image.Image, degrees float64, fill image.Color) *image.Image {
	std := imageToStd(img)
	rotated := imaging.Rotate(std, math.Mod(degrees, 360), stdcolor.RGBA{R: fill.R, G: fill.G, B: fill.B, A: fill.A})
	return image.FromStdImage(rotated)
}

func imageToStd(img *image.Image) stdimage.Image {
	v := img.AsImageView()
	out := stdimage.NewRGBA(stdimage.Rect(0, 0, v.Width(), v.Height()))
	for y := 0; y < v.Height(); y++ {
		for x := 0; x < v.Width(); x++ {
			c := v.Get(x, y)
			out.Set(x, y, stdcolor.RGBA{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}
	return out
}
