package videosrc

import (
	stdgif "image/gif"
	"io"
	"os"
	"time"

	"github.com/gophi/landmark/internal/errs"
	"github.com/gophi/landmark/internal/image"
)

// GifSequence is a FrameSource over a decoded animated GIF. It yields
// every frame once, in order; call OpenGifSequence again (or wrap in a
// looping FrameSource) to loop.
//
// Frames are decoded as-is, without compositing GIF disposal methods
// across frames: this is correct for the common case of GIFs whose
// frames are each already a full replacement image (e.g. screen
// recordings converted to GIF), but will show artifacts on GIFs that
// rely on partial-frame disposal to produce their next frame.
type GifSequence struct {
	frames []Frame
	next   int
}

// OpenGifSequence decodes every frame of the GIF read from r.
func OpenGifSequence(r io.Reader) (*GifSequence, error) {
	decoded, err := stdgif.DecodeAll(r)
	if err != nil {
		return nil, errs.IOErr("videosrc.OpenGifSequence", err)
	}

	frames := make([]Frame, len(decoded.Image))
	for i, paletted := range decoded.Image {
		delay := decoded.Delay[i]
		if delay <= 0 {
			delay = 10 // GIF's own default: 10/100s when unspecified.
		}
		frames[i] = Frame{
			Image:    image.FromStdImage(paletted),
			Duration: time.Duration(delay) * 10 * time.Millisecond,
		}
	}

	return &GifSequence{frames: frames}, nil
}

// OpenGifSequenceFile opens and decodes the GIF at path.
func OpenGifSequenceFile(path string) (*GifSequence, error) {
	f, err := os.Open(path) //nolint:gosec // path is caller-provided, same trust level as os.Open elsewhere in this package
	if err != nil {
		return nil, errs.IOErr("videosrc.OpenGifSequenceFile", err)
	}
	defer f.Close()
	return OpenGifSequence(f)
}

// Next implements FrameSource.
func (s *GifSequence) Next() (Frame, error) {
	if s.next >= len(s.frames) {
		return Frame{}, ErrExhausted
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// Close implements FrameSource. GifSequence decodes everything
// up-front, so Close is a no-op.
func (s *GifSequence) Close() error { return nil }

var _ FrameSource = (*GifSequence)(nil)
