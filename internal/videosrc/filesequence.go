package videosrc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gophi/landmark/internal/errs"
	"github.com/gophi/landmark/internal/image"
)

// FileSequence is a FrameSource over a directory of still images,
// sorted by filename and played back at a fixed frame rate.
type FileSequence struct {
	paths    []string
	duration time.Duration
	next     int
}

// OpenFileSequence lists every .png/.jpg/.jpeg file directly inside
// dir, sorts them by name, and returns a FileSequence that plays them
// back at fps frames per second.
func OpenFileSequence(dir string, fps float64) (*FileSequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.IOErr("videosrc.OpenFileSequence", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, errs.IOErr("videosrc.OpenFileSequence", fmt.Errorf("no images found in %s", dir))
	}

	return &FileSequence{
		paths:    paths,
		duration: time.Duration(float64(time.Second) / fps),
	}, nil
}

// Next implements FrameSource.
func (s *FileSequence) Next() (Frame, error) {
	if s.next >= len(s.paths) {
		return Frame{}, ErrExhausted
	}
	path := s.paths[s.next]
	s.next++

	f, err := os.Open(path) //nolint:gosec // path comes from an earlier os.ReadDir of a caller-chosen directory
	if err != nil {
		return Frame{}, errs.IOErr("videosrc.FileSequence.Next", err)
	}
	defer f.Close()

	img, err := image.Decode(f)
	if err != nil {
		return Frame{}, errs.IOErr("videosrc.FileSequence.Next", fmt.Errorf("decoding %s: %w", path, err))
	}
	return Frame{Image: img, Duration: s.duration}, nil
}

// Close implements FrameSource. FileSequence holds no resources
// between calls to Next, so Close is a no-op.
func (s *FileSequence) Close() error { return nil }

var _ FrameSource = (*FileSequence)(nil)
