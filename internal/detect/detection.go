package detect

import (
	"fmt"
	"math"

	"github.com/gophi/landmark/internal/tensor"
)

// Keypoint is a single normalized (x, y) coordinate decoded from a raw
// detection, relative to the detector's input resolution.
type Keypoint struct {
	X, Y float32
}

// BoundingRect is an axis-aligned box in center form: (XCenter,
// YCenter) is the box's center and (W, H) its full width/height, all
// normalized relative to the detector's input resolution.
type BoundingRect struct {
	XCenter, YCenter float32
	W, H             float32
}

// corners converts b to (x1, y1, x2, y2) form.
func (b BoundingRect) corners() (x1, y1, x2, y2 float32) {
	return b.XCenter - b.W/2, b.YCenter - b.H/2, b.XCenter + b.W/2, b.YCenter + b.H/2
}

// RawDetection is one decoded anchor prediction: a confidence, a
// bounding rect, and the fixed-size keypoint set the network variant
// emits (six for face/palm detectors).
type RawDetection struct {
	Confidence float32
	Box        BoundingRect
	Keypoints  []Keypoint
}

func sigmoid(logit float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(logit))))
}

// ExtractDetections walks confidences (shape [1, N, 1]) and decodes the
// matching box in boxes (shape [1, N, 16]) for every anchor whose
// sigmoid confidence meets threshold. inputW/inputH are the detector's
// input resolution in pixels, used to de-normalize the raw box offsets
// the network predicts relative to each anchor cell.
func ExtractDetections(boxes, confidences *tensor.Tensor, anchors Anchors, inputW, inputH int, threshold float32) []RawDetection {
	n := len(anchors)
	if confidences.Shape()[1] != n || boxes.Shape()[1] != n {
		panic(fmt.Sprintf("detect: anchor count %d doesn't match tensor anchor axis (boxes %v, confidences %v)",
			n, boxes.Shape(), confidences.Shape()))
	}

	w, h := float32(inputW), float32(inputH)
	out := make([]RawDetection, 0, n)
	for a := 0; a < n; a++ {
		conf := sigmoid(confidences.Index(0, a, 0).AsSingular())
		if conf < threshold {
			continue
		}

		anchor := anchors[a]
		raw := boxes.Index(0, a).AsSlice()

		box := BoundingRect{
			XCenter: raw[0]/w + anchor.X,
			YCenter: raw[1]/h + anchor.Y,
			W:       raw[2] / w,
			H:       raw[3] / h,
		}

		keypoints := make([]Keypoint, 6)
		for k := 0; k < 6; k++ {
			keypoints[k] = Keypoint{
				X: raw[4+2*k]/w + anchor.X,
				Y: raw[5+2*k]/h + anchor.Y,
			}
		}

		out = append(out, RawDetection{Confidence: conf, Box: box, Keypoints: keypoints})
	}
	return out
}
