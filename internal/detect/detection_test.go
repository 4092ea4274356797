package detect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophi/landmark/internal/onnxmock"
)

func TestExtractDetections_DiscardsBelowThreshold(t *testing.T) {
	anchors := CalculateAnchors(AnchorParams{Layers: []LayerInfo{{AnchorsPerCell: 1, GridCols: 2, GridRows: 2}}})
	confidences := onnxmock.UniformScoreMap(len(anchors), 0.2)
	boxes := onnxmock.ZeroBoxes(len(anchors), 16)

	out := ExtractDetections(boxes, confidences, anchors, 128, 128, 0.5)
	assert.Empty(t, out)
}

func TestExtractDetections_DecodesBoxRelativeToAnchor(t *testing.T) {
	anchors := CalculateAnchors(AnchorParams{Layers: []LayerInfo{{AnchorsPerCell: 1, GridCols: 2, GridRows: 2}}})
	confidences := onnxmock.UniformScoreMap(len(anchors), 0.9)
	// Anchor index 1 gets a non-zero box offset; everything else is zero.
	boxes := onnxmock.SingleDetectionBoxes(len(anchors), 16, 1, 10, 20, 30, 40)

	out := ExtractDetections(boxes, confidences, anchors, 128, 128, 0.5)
	require.Len(t, out, len(anchors))

	target := out[1]
	anchor := anchors[1]
	assert.InDelta(t, float64(anchor.X)+10.0/128, target.Box.XCenter, 0.0001)
	assert.InDelta(t, float64(anchor.Y)+20.0/128, target.Box.YCenter, 0.0001)
	assert.InDelta(t, 30.0/128, target.Box.W, 0.0001)
	assert.InDelta(t, 40.0/128, target.Box.H, 0.0001)

	other := out[0]
	assert.InDelta(t, float64(anchors[0].X), other.Box.XCenter, 0.0001)
	assert.InDelta(t, float64(anchors[0].Y), other.Box.YCenter, 0.0001)
}

func TestExtractDetections_ConfidenceMatchesSigmoid(t *testing.T) {
	anchors := CalculateAnchors(AnchorParams{Layers: []LayerInfo{{AnchorsPerCell: 1, GridCols: 1, GridRows: 1}}})
	confidences := onnxmock.UniformScoreMap(1, 0.73)
	boxes := onnxmock.ZeroBoxes(1, 16)

	out := ExtractDetections(boxes, confidences, anchors, 64, 64, 0.0)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.73, out[0].Confidence, 0.01)
}

func TestExtractDetections_KeypointCountIsSix(t *testing.T) {
	anchors := CalculateAnchors(AnchorParams{Layers: []LayerInfo{{AnchorsPerCell: 1, GridCols: 1, GridRows: 1}}})
	confidences := onnxmock.UniformScoreMap(1, 0.9)
	boxes := onnxmock.ZeroBoxes(1, 16)

	out := ExtractDetections(boxes, confidences, anchors, 64, 64, 0.5)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Keypoints, 6)
}

func TestSigmoid_MatchesMathDefinition(t *testing.T) {
	got := sigmoid(0.25)
	want := 1 / (1 + math.Exp(-0.25))
	assert.InDelta(t, want, got, 0.0001)
}
