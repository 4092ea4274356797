package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigFileName is the base name (without extension) viper searches for.
const ConfigFileName = "landmark"

// EnvPrefix is prepended to every environment-variable override, e.g.
// LANDMARK_FACE_THRESHOLD overrides face.threshold.
const EnvPrefix = "LANDMARK"

// Loader loads and validates Config values from a config file, environment
// variables, and in-process defaults, using viper as the merge engine.
type Loader struct {
	v *viper.Viper
}

// NewLoader constructs a Loader with default search paths and environment
// binding already configured.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")

	l := &Loader{v: v}
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()
	return l
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "landmark"))
	}

	l.v.AddConfigPath("/etc/landmark")

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		l.v.AddConfigPath(filepath.Join(xdg, "landmark"))
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

func (l *Loader) setDefaults() {
	def := DefaultConfig()

	l.v.SetDefault("models_dir", def.ModelsDir)
	l.v.SetDefault("log_level", def.LogLevel)
	l.v.SetDefault("verbose", def.Verbose)

	l.v.SetDefault("face.model_path", def.Face.ModelPath)
	l.v.SetDefault("face.variant", def.Face.Variant)
	l.v.SetDefault("face.threshold", def.Face.Threshold)
	l.v.SetDefault("face.nms_iou_thresh", def.Face.NMSIoUThresh)
	l.v.SetDefault("face.nms_mode", def.Face.NMSMode)

	l.v.SetDefault("hand.model_path", def.Hand.ModelPath)
	l.v.SetDefault("hand.variant", def.Hand.Variant)
	l.v.SetDefault("hand.threshold", def.Hand.Threshold)
	l.v.SetDefault("hand.nms_iou_thresh", def.Hand.NMSIoUThresh)
	l.v.SetDefault("hand.nms_mode", def.Hand.NMSMode)

	l.v.SetDefault("tracker.face_confidence_thresh", def.Tracker.FaceConfidenceThresh)
	l.v.SetDefault("tracker.roi_padding", def.Tracker.ROIPadding)

	l.v.SetDefault("gpu.enabled", def.GPU.Enabled)
	l.v.SetDefault("gpu.device", def.GPU.Device)
	l.v.SetDefault("gpu.memory_limit", def.GPU.MemoryLimit)

	l.v.SetDefault("metrics.enabled", def.Metrics.Enabled)
}

// Load reads the config file (if present), merges environment overrides,
// unmarshals into a Config, and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.LoadWithoutValidation()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation is like Load but skips Config.Validate, useful for
// callers that want to inspect or repair a config before validating it.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFile loads configuration from an explicit file path instead of
// the default search paths.
func (l *Loader) LoadWithFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	return l.Load()
}

// LoadWithFileWithoutValidation is the unvalidated counterpart of
// LoadWithFile.
func (l *Loader) LoadWithFileWithoutValidation(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	return l.LoadWithoutValidation()
}

// BindFlag binds a single viper key to a cobra/pflag flag, so that an
// explicitly-set command-line flag takes precedence over the config
// file, environment, and defaults.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	return l.v.BindPFlag(key, flag)
}

// BindFlagSet binds every flag in fs under its own name, e.g. a
// "--face-threshold" flag binds to the "face-threshold" viper key.
func (l *Loader) BindFlagSet(fs *pflag.FlagSet) error {
	return l.v.BindPFlagSet(fs)
}

// Get returns the raw value bound to key, honoring the file/env/default
// precedence chain.
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// GetString returns the string value bound to key.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set overrides key with an explicit value, taking precedence over file,
// env, and defaults.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file viper actually
// read, or "" if none was found.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper exposes the underlying *viper.Viper for callers that need to
// bind a *pflag.FlagSet directly (e.g. cobra command wiring).
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// GetConfigSearchPaths returns the directories Load searches, in order.
func (l *Loader) GetConfigSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home, filepath.Join(home, ".config", "landmark"))
	}
	paths = append(paths, "/etc/landmark")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "landmark"))
	}
	return paths
}

// WriteConfigToFile writes the currently loaded configuration to path in
// YAML form.
func (l *Loader) WriteConfigToFile(path string) error {
	return l.v.WriteConfigAs(path)
}

// GenerateDefaultConfigFile writes DefaultConfig() to path in YAML form,
// for use as a starter file a user can edit.
func (l *Loader) GenerateDefaultConfigFile(path string) error {
	def := DefaultConfig()

	l.v.Set("models_dir", def.ModelsDir)
	l.v.Set("log_level", def.LogLevel)
	l.v.Set("verbose", def.Verbose)
	l.v.Set("face", def.Face)
	l.v.Set("hand", def.Hand)
	l.v.Set("tracker", def.Tracker)
	l.v.Set("gpu", def.GPU)
	l.v.Set("metrics", def.Metrics)

	return l.v.WriteConfigAs(path)
}

// PrintConfigInfo returns a human-readable summary of the resolved
// configuration source.
func (l *Loader) PrintConfigInfo() string {
	used := l.GetConfigFileUsed()
	if used == "" {
		return "no config file found; using defaults and environment overrides"
	}
	return fmt.Sprintf("config loaded from %s", used)
}
