package detect

import "sort"

// Mode selects how Suppressor resolves a cluster of overlapping
// detections.
type Mode int

const (
	// Remove discards every detection that overlaps the cluster seed
	// above the IoU threshold, keeping the seed unchanged.
	Remove Mode = iota
	// Average replaces a cluster with one detection whose bounding rect
	// and keypoints are a confidence-weighted average of every member,
	// but whose confidence is the (highest-confidence) seed's.
	Average
)

// Suppressor runs Non-Maximum Suppression or Averaging over a list of
// RawDetections. It holds reusable scratch slices so repeated calls on
// similarly-sized detection lists don't reallocate every frame.
type Suppressor struct {
	IoUThresh float32
	Mode      Mode

	sortBuf    []RawDetection
	clusterBuf []RawDetection
}

// NewSuppressor builds a Suppressor with the given IoU threshold and
// mode.
func NewSuppressor(iouThresh float32, mode Mode) *Suppressor {
	return &Suppressor{IoUThresh: iouThresh, Mode: mode}
}

// Run suppresses or averages dets, returning the surviving detections.
// dets is not mutated; the returned slice is freshly allocated on each
// call and stays valid after later calls to Run.
func (s *Suppressor) Run(dets []RawDetection) []RawDetection {
	if len(dets) == 0 {
		return nil
	}

	sorted := append(s.sortBuf[:0], dets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Confidence < sorted[j].Confidence })
	s.sortBuf = sorted

	remaining := sorted
	out := make([]RawDetection, 0, len(dets))

	for len(remaining) > 0 {
		seed := remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]

		switch s.Mode {
		case Remove:
			kept := remaining[:0]
			for _, d := range remaining {
				if iou(seed.Box, d.Box) >= s.IoUThresh {
					continue
				}
				kept = append(kept, d)
			}
			remaining = kept
			out = append(out, seed)

		case Average:
			cluster := append(s.clusterBuf[:0], seed)
			kept := remaining[:0]
			for _, d := range remaining {
				if iou(seed.Box, d.Box) >= s.IoUThresh {
					cluster = append(cluster, d)
				} else {
					kept = append(kept, d)
				}
			}
			remaining = kept
			s.clusterBuf = cluster
			out = append(out, averageCluster(seed, cluster))
		}
	}

	return out
}

// averageCluster computes the confidence-weighted average of a
// cluster's bounding rects and keypoints, emitting the seed's own
// confidence rather than the averaged one. The keypoint accumulator is
// pre-sized from the seed so clusters with a mismatched keypoint count
// still produce a result sized to what the seed actually has.
func averageCluster(seed RawDetection, cluster []RawDetection) RawDetection {
	keypoints := make([]Keypoint, len(seed.Keypoints))

	var weightSum, xc, yc, w, h float32
	for _, d := range cluster {
		c := d.Confidence
		weightSum += c
		xc += c * d.Box.XCenter
		yc += c * d.Box.YCenter
		w += c * d.Box.W
		h += c * d.Box.H
		for i := range keypoints {
			if i >= len(d.Keypoints) {
				break
			}
			keypoints[i].X += c * d.Keypoints[i].X
			keypoints[i].Y += c * d.Keypoints[i].Y
		}
	}

	if weightSum == 0 {
		return seed
	}
	inv := 1 / weightSum
	for i := range keypoints {
		keypoints[i].X *= inv
		keypoints[i].Y *= inv
	}

	return RawDetection{
		Confidence: seed.Confidence,
		Box: BoundingRect{
			XCenter: xc * inv,
			YCenter: yc * inv,
			W:       w * inv,
			H:       h * inv,
		},
		Keypoints: keypoints,
	}
}

// iou computes the intersection-over-union of two center-form
// bounding rects. Empty or zero-area rects yield 0.
func iou(a, b BoundingRect) float32 {
	ax1, ay1, ax2, ay2 := a.corners()
	bx1, by1, bx2, by2 := b.corners()

	left := max32(ax1, bx1)
	top := max32(ay1, by1)
	right := min32(ax2, bx2)
	bottom := min32(ay2, by2)
	if left >= right || top >= bottom {
		return 0
	}

	intersection := (right - left) * (bottom - top)
	areaA := (ax2 - ax1) * (ay2 - ay1)
	areaB := (bx2 - bx1) * (by2 - by1)
	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
