// Package config provides the tunable configuration surface for the
// face/hand detection and tracking pipeline.
package config

// Config is the top-level configuration for a pipeline instance. It is
// loadable from a YAML file, environment variables, or constructed directly
// via DefaultConfig and mutated in place.
type Config struct {
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level"  yaml:"log_level"  json:"log_level"`
	Verbose   bool   `mapstructure:"verbose"    yaml:"verbose"    json:"verbose"`

	Face    FaceConfig    `mapstructure:"face"    yaml:"face"    json:"face"`
	Hand    HandConfig    `mapstructure:"hand"    yaml:"hand"    json:"hand"`
	Tracker TrackerConfig `mapstructure:"tracker" yaml:"tracker" json:"tracker"`
	GPU     GPUConfig     `mapstructure:"gpu"     yaml:"gpu"     json:"gpu"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// FaceConfig controls the face detector variant and its post-processing.
type FaceConfig struct {
	ModelPath    string  `mapstructure:"model_path"     yaml:"model_path"     json:"model_path"`
	Variant      string  `mapstructure:"variant"        yaml:"variant"        json:"variant"` // "short_range" | "full_range"
	Threshold    float32 `mapstructure:"threshold"      yaml:"threshold"      json:"threshold"`
	NMSIoUThresh float32 `mapstructure:"nms_iou_thresh" yaml:"nms_iou_thresh" json:"nms_iou_thresh"`
	NMSMode      string  `mapstructure:"nms_mode"       yaml:"nms_mode"       json:"nms_mode"` // "remove" | "average"
}

// HandConfig controls the palm detector variant and its post-processing.
type HandConfig struct {
	ModelPath    string  `mapstructure:"model_path"     yaml:"model_path"     json:"model_path"`
	Variant      string  `mapstructure:"variant"        yaml:"variant"        json:"variant"` // "lite" | "full"
	Threshold    float32 `mapstructure:"threshold"      yaml:"threshold"      json:"threshold"`
	NMSIoUThresh float32 `mapstructure:"nms_iou_thresh" yaml:"nms_iou_thresh" json:"nms_iou_thresh"`
	NMSMode      string  `mapstructure:"nms_mode"       yaml:"nms_mode"       json:"nms_mode"`
}

// TrackerConfig controls the detect-then-track state machine.
type TrackerConfig struct {
	FaceConfidenceThresh float32 `mapstructure:"face_confidence_thresh" yaml:"face_confidence_thresh" json:"face_confidence_thresh"`
	ROIPadding           float32 `mapstructure:"roi_padding"            yaml:"roi_padding"            json:"roi_padding"`
}

// GPUConfig controls ONNX Runtime execution-provider selection.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled"      yaml:"enabled"      json:"enabled"`
	Device      int    `mapstructure:"device"       yaml:"device"       json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}

// MetricsConfig controls whether per-stage timing is published to
// Prometheus in addition to being tracked in-process by Timer/FpsCounter.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}
