// Package models resolves filesystem paths for the pre-trained ONNX models
// this pipeline depends on (face/hand detection and landmark networks).
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model filenames, matching the upstream MediaPipe-style model names.
const (
	FaceDetectionShortRange = "face_detection_short_range.onnx"
	FaceDetectionFullRange  = "face_detection_full_range.onnx"
	FaceLandmark            = "face_landmark.onnx"

	HandDetectionLite = "palm_detection_lite.onnx"
	HandDetectionFull = "palm_detection_full.onnx"
	HandLandmark      = "hand_landmark.onnx"
)

// Model category directories.
const (
	CategoryFace = "face"
	CategoryHand = "hand"
)

// DefaultModelsDir is used when no explicit directory or environment
// override is supplied.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory when set.
const EnvModelsDir = "LANDMARK_MODELS_DIR"

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// ModelInfo describes one known model.
type ModelInfo struct {
	Name        string
	Category    string
	Description string
	Filename    string
}

// GetModelsDir returns the models directory, preferring (in order) an
// explicit argument, the LANDMARK_MODELS_DIR environment variable, and
// finally the project root's "models" directory.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if root, err := findProjectRoot(); err == nil {
		return filepath.Join(root, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// ResolveModelPath resolves a filename to its full path, preferring a
// category subdirectory (e.g. "models/face/face_landmark.onnx") and
// falling back to a flat layout ("models/face_landmark.onnx").
func ResolveModelPath(modelsDir, category, filename string) string {
	baseDir := GetModelsDir(modelsDir)

	if category != "" {
		organized := filepath.Join(baseDir, category, filename)
		if _, err := os.Stat(organized); err == nil {
			return organized
		}
	}

	return filepath.Join(baseDir, filename)
}

// ValidateModelExists checks that a model file is present on disk.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// ListAvailableModels returns static metadata about every model this
// pipeline knows how to load.
func ListAvailableModels() []ModelInfo {
	return []ModelInfo{
		{Name: "face-detection-short-range", Category: CategoryFace, Description: "Short-range (16x16+8x8 grid) face detector", Filename: FaceDetectionShortRange},
		{Name: "face-detection-full-range", Category: CategoryFace, Description: "Full-range (48x48 grid) face detector", Filename: FaceDetectionFullRange},
		{Name: "face-landmark", Category: CategoryFace, Description: "468-point face landmark network", Filename: FaceLandmark},
		{Name: "hand-detection-lite", Category: CategoryHand, Description: "Lite palm detector", Filename: HandDetectionLite},
		{Name: "hand-detection-full", Category: CategoryHand, Description: "Full palm detector", Filename: HandDetectionFull},
		{Name: "hand-landmark", Category: CategoryHand, Description: "21-point hand landmark network", Filename: HandLandmark},
	}
}
