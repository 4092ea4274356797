package cmd

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gophi/landmark/internal/cnn"
	"github.com/gophi/landmark/internal/config"
	"github.com/gophi/landmark/internal/detect"
	"github.com/gophi/landmark/internal/gui"
	img "github.com/gophi/landmark/internal/image"
	"github.com/gophi/landmark/internal/landmark"
	"github.com/gophi/landmark/internal/models"
	"github.com/gophi/landmark/internal/nn"
	"github.com/gophi/landmark/internal/track"
)

// detectorColorMapper is the [0,1] remap the MediaPipe-family detection
// networks were trained against, distinct from the [-1,1] mapper the
// landmark networks use internally.
func detectorColorMapper() cnn.ColorMapper {
	return cnn.CreateLinearColorMapper(0, 1)
}

func loadEstimator(cfg *config.Config, modelPath string) (nn.Estimator, error) {
	loader, err := nn.FromPath(modelPath)
	if err != nil {
		return nil, err
	}
	if cfg.GPU.Enabled {
		gpu := nn.DefaultGPUConfig()
		gpu.Enabled = true
		gpu.DeviceID = cfg.GPU.Device
		loader = loader.WithGPU(gpu)
	}
	network, err := loader.Load()
	if err != nil {
		return nil, err
	}
	return network, nil
}

func resolveDetectorModelPath(cfg *config.Config, variant detect.NetworkVariant, override string) string {
	if override != "" {
		return override
	}
	return models.ResolveModelPath(cfg.ModelsDir, variant.ModelCategory, variant.ModelFilename)
}

func buildFacePipeline(cfg *config.Config, variant detect.NetworkVariant) (*detect.Detector, *landmark.Landmarker, error) {
	detModelPath := resolveDetectorModelPath(cfg, variant, cfg.Face.ModelPath)
	detEstimator, err := loadEstimator(cfg, detModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading face detector %s: %w", detModelPath, err)
	}
	detector, err := detect.NewDetector(variant, detEstimator, detectorColorMapper())
	if err != nil {
		return nil, nil, err
	}

	lmModelPath := models.ResolveModelPath(cfg.ModelsDir, models.CategoryFace, models.FaceLandmark)
	lmEstimator, err := loadEstimator(cfg, lmModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading face landmarker %s: %w", lmModelPath, err)
	}
	landmarker, err := landmark.NewLandmarker(lmEstimator)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("face pipeline ready", "variant", variant.Name, "detector_model", detModelPath, "landmark_model", lmModelPath)
	return detector, landmarker, nil
}

func buildHandPipeline(cfg *config.Config, variant detect.NetworkVariant) (*detect.Detector, *landmark.HandLandmarker, error) {
	detModelPath := resolveDetectorModelPath(cfg, variant, cfg.Hand.ModelPath)
	detEstimator, err := loadEstimator(cfg, detModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading hand detector %s: %w", detModelPath, err)
	}
	detector, err := detect.NewDetector(variant, detEstimator, detectorColorMapper())
	if err != nil {
		return nil, nil, err
	}

	lmModelPath := models.ResolveModelPath(cfg.ModelsDir, models.CategoryHand, models.HandLandmark)
	lmEstimator, err := loadEstimator(cfg, lmModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading hand landmarker %s: %w", lmModelPath, err)
	}
	landmarker, err := landmark.NewHandLandmarker(lmEstimator)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("hand pipeline ready", "variant", variant.Name, "detector_model", detModelPath, "landmark_model", lmModelPath)
	return detector, landmarker, nil
}

// showFaceOverlay draws the tracked face's eye boxes onto a blank canvas
// the size of the view it was computed from and pushes it to the GUI
// bridge under a fixed key.
func showFaceOverlay(res *track.TrackResult) {
	view := res.Landmarks()
	canvas := img.New(res.ViewRect().W, res.ViewRect().H)
	drawRectOutline(canvas, view.LeftEye(), img.Green)
	drawRectOutline(canvas, view.RightEye(), img.Green)
	drawRectOutline(canvas, view.BoundingBox(), img.Red)
	gui.ShowImage("face", canvas)
}

// showHandOverlay draws the tracked hand's bounding box onto a blank
// canvas the size of the view it was computed from.
func showHandOverlay(res *track.HandTrackResult) {
	view := res.Landmarks()
	canvas := img.New(res.ViewRect().W, res.ViewRect().H)
	drawRectOutline(canvas, view.BoundingBox(), img.Red)
	gui.ShowImage("hand", canvas)
}

// drawRectOutline paints the four edges of rect onto canvas, clipped to
// its bounds.
func drawRectOutline(canvas *img.Image, rect img.Rect, color img.Color) {
	for x := rect.Left(); x < rect.Right(); x++ {
		setIfInBounds(canvas, x, rect.Top(), color)
		setIfInBounds(canvas, x, rect.Bottom()-1, color)
	}
	for y := rect.Top(); y < rect.Bottom(); y++ {
		setIfInBounds(canvas, rect.Left(), y, color)
		setIfInBounds(canvas, rect.Right()-1, y, color)
	}
}

// showAcquisitionOverlay draws the rotated loose ROI a fresh detection
// seeds the tracker with directly on the full frame, tilted to the
// detection's own rotation estimate. This is the one place a bare
// RotationRadians becomes a visible tilted box rather than a number fed
// straight into the tracker.
func showAcquisitionOverlay(key string, frame *img.Image, rr img.RotatedRect) {
	canvas := img.New(frame.Width(), frame.Height())
	for y := 0; y < frame.Height(); y++ {
		for x := 0; x < frame.Width(); x++ {
			canvas.Set(x, y, frame.Get(x, y))
		}
	}
	drawRotatedRectOutline(canvas, rr, img.Yellow)
	gui.ShowImage(key, canvas)
}

// drawRotatedRectOutline paints the four edges of a RotatedRect, following
// its tilt rather than its untilted bounding box.
func drawRotatedRectOutline(canvas *img.Image, rr img.RotatedRect, color img.Color) {
	corners := rr.Corners()
	for i := range corners {
		drawLine(canvas, corners[i], corners[(i+1)%len(corners)], color)
	}
}

// drawLine paints a naive digital line between a and b, one pixel per
// step of the longer axis.
func drawLine(canvas *img.Image, a, b [2]float64, color img.Color) {
	steps := int(math.Max(math.Abs(b[0]-a[0]), math.Abs(b[1]-a[1])))
	if steps == 0 {
		setIfInBounds(canvas, int(a[0]), int(a[1]), color)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		setIfInBounds(canvas, int(a[0]+(b[0]-a[0])*t), int(a[1]+(b[1]-a[1])*t), color)
	}
}

func setIfInBounds(canvas *img.Image, x, y int, color img.Color) {
	if x < 0 || y < 0 || x >= canvas.Width() || y >= canvas.Height() {
		return
	}
	canvas.Set(x, y, color)
}
