package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophi/landmark/internal/detect"
	"github.com/gophi/landmark/internal/videosrc"
)

func TestOpenSource_DirectoryUsesFileSequence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), minimalPNG(t), 0o600))

	src, err := openSource(dir, 30)
	require.NoError(t, err)
	defer src.Close()

	_, ok := src.(*videosrc.FileSequence)
	assert.True(t, ok)
}

func TestOpenSource_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not a real video"), 0o600))

	_, err := openSource(path, 30)
	assert.Error(t, err)
}

func TestOpenSource_MissingPath(t *testing.T) {
	_, err := openSource(filepath.Join(t.TempDir(), "missing"), 30)
	assert.Error(t, err)
}

func TestRunRun_RejectsInvalidMode(t *testing.T) {
	orig := runFlags.mode
	defer func() { runFlags.mode = orig }()
	runFlags.mode = "ears"

	err := runCmd.RunE(runCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --mode")
}

func TestBestDetection_EmptyReturnsFalse(t *testing.T) {
	_, ok := bestDetection(nil)
	assert.False(t, ok)
}

func TestBestDetection_SingleDetectionWins(t *testing.T) {
	dets := []detect.Detection{{}}
	best, ok := bestDetection(dets)
	assert.True(t, ok)
	assert.Equal(t, dets[0].Confidence(), best.Confidence())
}

// minimalPNG returns the bytes of a tiny valid 1x1 PNG, enough to
// exercise FileSequence's directory listing without a real camera
// frame.
func minimalPNG(t *testing.T) []byte {
	t.Helper()
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
		0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
		0x42, 0x60, 0x82,
	}
}
