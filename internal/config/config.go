package config

import (
	"fmt"
	"strings"
)

// DefaultConfig returns a Config populated with sane defaults for running
// the face/hand pipeline against the short-range face detector and the
// lite palm detector on CPU.
func DefaultConfig() *Config {
	return &Config{
		ModelsDir: "",
		LogLevel:  "info",
		Verbose:   false,
		Face:      defaultFaceConfig(),
		Hand:      defaultHandConfig(),
		Tracker:   defaultTrackerConfig(),
		GPU:       defaultGPUConfig(),
		Metrics:   MetricsConfig{Enabled: false},
	}
}

func defaultFaceConfig() FaceConfig {
	return FaceConfig{
		Variant:      "short_range",
		Threshold:    0.5,
		NMSIoUThresh: 0.3,
		NMSMode:      "average",
	}
}

func defaultHandConfig() HandConfig {
	return HandConfig{
		Variant:      "lite",
		Threshold:    0.5,
		NMSIoUThresh: 0.3,
		NMSMode:      "average",
	}
}

func defaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		FaceConfidenceThresh: 0.5,
		ROIPadding:           0.25,
	}
}

func defaultGPUConfig() GPUConfig {
	return GPUConfig{
		Enabled:     false,
		Device:      0,
		MemoryLimit: "2GB",
	}
}

// Validate checks the configuration for internally inconsistent or
// out-of-range values. It does not touch the filesystem; model file
// existence is checked separately via models.ValidateModelExists once the
// models directory has been resolved.
func (c *Config) Validate() error {
	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}
	if err := validateNetworkVariant("face.variant", c.Face.Variant, "short_range", "full_range"); err != nil {
		return err
	}
	if err := validateNetworkVariant("hand.variant", c.Hand.Variant, "lite", "full"); err != nil {
		return err
	}
	if err := validateNMSMode("face.nms_mode", c.Face.NMSMode); err != nil {
		return err
	}
	if err := validateNMSMode("hand.nms_mode", c.Hand.NMSMode); err != nil {
		return err
	}
	if err := validateThreshold("face.threshold", c.Face.Threshold); err != nil {
		return err
	}
	if err := validateThreshold("face.nms_iou_thresh", c.Face.NMSIoUThresh); err != nil {
		return err
	}
	if err := validateThreshold("hand.threshold", c.Hand.Threshold); err != nil {
		return err
	}
	if err := validateThreshold("hand.nms_iou_thresh", c.Hand.NMSIoUThresh); err != nil {
		return err
	}
	if err := validateThreshold("tracker.face_confidence_thresh", c.Tracker.FaceConfidenceThresh); err != nil {
		return err
	}
	if c.Tracker.ROIPadding < 0 {
		return fmt.Errorf("tracker.roi_padding must be >= 0, got %f", c.Tracker.ROIPadding)
	}
	if err := validateGPU(c.GPU); err != nil {
		return err
	}
	return nil
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log_level must be one of debug/info/warn/error, got %q", level)
	}
}

func validateNetworkVariant(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, "/"), value)
}

func validateNMSMode(field, value string) error {
	switch value {
	case "remove", "average":
		return nil
	default:
		return fmt.Errorf("%s must be \"remove\" or \"average\", got %q", field, value)
	}
}

func validateThreshold(field string, value float32) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("%s must be in [0,1], got %f", field, value)
	}
	return nil
}

func validateGPU(gpu GPUConfig) error {
	if !gpu.Enabled {
		return nil
	}
	if gpu.Device < 0 {
		return fmt.Errorf("gpu.device must be >= 0, got %d", gpu.Device)
	}
	if gpu.MemoryLimit == "" {
		return nil
	}
	if _, err := parseMemoryLimit(gpu.MemoryLimit); err != nil {
		return fmt.Errorf("gpu.memory_limit: %w", err)
	}
	return nil
}

// parseMemoryLimit accepts a simple "<N><unit>" string such as "512MB" or
// "2GB" and returns the equivalent byte count.
func parseMemoryLimit(s string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	units := []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if strings.HasSuffix(upper, u.suffix) {
			numPart := strings.TrimSuffix(upper, u.suffix)
			numPart = strings.TrimSpace(numPart)
			var n int64
			if _, err := fmt.Sscanf(numPart, "%d", &n); err != nil {
				return 0, fmt.Errorf("invalid memory limit %q", s)
			}
			return n * u.mult, nil
		}
	}
	return 0, fmt.Errorf("memory limit %q must end in B/KB/MB/GB", s)
}
