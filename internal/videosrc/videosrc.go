// Package videosrc implements the pipeline's frame sources: anything
// that can hand the pipeline a sequence of (Image, display duration)
// frames one at a time, whether they come from a directory of still
// images or a decoded animated GIF.
package videosrc

import (
	"io"
	"time"

	"github.com/gophi/landmark/internal/image"
)

// Frame is one image from a FrameSource, paired with how long it
// should be displayed before the next frame is due.
type Frame struct {
	Image    *image.Image
	Duration time.Duration
}

// FrameSource yields a sequence of frames. Next returns io.EOF once the
// sequence is exhausted; a live source (e.g. a camera) that never ends
// simply never returns io.EOF.
type FrameSource interface {
	// Next returns the next frame, or io.EOF if the source is
	// exhausted.
	Next() (Frame, error)
	// Close releases any resources the source holds open.
	Close() error
}

// ErrExhausted is returned by a FrameSource's Next once every frame has
// been yielded. It is always equal to io.EOF; the alias exists so
// callers reading this package don't need to reach for the io package
// themselves to recognize end-of-sequence.
var ErrExhausted = io.EOF
