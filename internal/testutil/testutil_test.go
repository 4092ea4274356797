package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophi/landmark/internal/image"
)

func TestGetProjectRoot_FindsGoMod(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(root+"/go.mod"))
}

func TestGenerateMarkerImage_DrawsCrosshairAtGivenPosition(t *testing.T) {
	img := GenerateMarkerImage(64, 64, image.White, []Marker{
		{Label: "p0", X: 32, Y: 32},
	})
	require.Equal(t, 64, img.Width())
	require.Equal(t, 64, img.Height())

	center := img.Get(32, 32)
	assert.Equal(t, image.Black, center)

	corner := img.Get(2, 2)
	assert.Equal(t, image.White, corner)
}

func TestRotateDegrees_PreservesSizeAtMultipleOf360(t *testing.T) {
	img := GenerateMarkerImage(40, 40, image.White, nil)
	rotated := RotateDegrees(img, 0, image.White)
	assert.Equal(t, img.Width(), rotated.Width())
	assert.Equal(t, img.Height(), rotated.Height())
}
