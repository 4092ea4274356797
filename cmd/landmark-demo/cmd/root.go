// Package cmd implements the landmark-demo command-line interface: a
// thin cobra/viper wrapper around the face/hand detection and tracking
// pipeline in internal/, for running it against a directory of still
// frames or an animated GIF and showing the tracked landmarks through
// the internal/gui bridge.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gophi/landmark/internal/config"
	"github.com/gophi/landmark/internal/models"
	"github.com/gophi/landmark/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd is the base command when landmark-demo is invoked with no
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "landmark-demo",
	Short: "Real-time face and hand landmark detection and tracking",
	Long: `landmark-demo runs the face/hand detect-then-track pipeline against a
sequence of frames (a directory of still images or an animated GIF) and
shows the tracked landmarks through a pluggable GUI sink.

Examples:
  landmark-demo run --input ./frames --mode face
  landmark-demo run --input clip.gif --mode hand --metrics-addr :9090
  landmark-demo models`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.GitCommit, version.BuildDate),
}

// Execute adds all child commands to the root command and runs it. It
// is called by main.main and only needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command, for tests that want to
// execute subcommands without going through os.Exit.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// setupLogging installs a slog JSON handler at the level implied by
// cfg.Verbose/cfg.LogLevel.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/landmark, /etc/landmark)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	defaultModelsDir := models.DefaultModelsDir
	if envDir := os.Getenv(models.EnvModelsDir); envDir != "" {
		defaultModelsDir = envDir
	}
	rootCmd.PersistentFlags().String("models-dir", defaultModelsDir,
		"directory containing ONNX models (can also be set via LANDMARK_MODELS_DIR)")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("models_dir", rootCmd.PersistentFlags().Lookup("models-dir")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

// initConfig prepares the global loader. Loading and validation happen
// lazily in GetConfig, once flags have been parsed.
func initConfig() {
	configLoader = config.NewLoader()
}

// GetConfig returns the fully merged configuration (file, environment,
// flags, defaults), reading it afresh on each call, validating it, and
// exiting the process on an unrecoverable load or validation error.
func GetConfig() *config.Config {
	loader := GetConfigLoader()

	var cfg config.Config
	if err := loader.GetViper().Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogging(&cfg)
	globalConfig = &cfg
	return globalConfig
}

// GetConfigLoader returns the global configuration loader, constructing
// one if initConfig has not yet run (e.g. when a command is invoked
// directly from a test).
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	flags := rootCmd.PersistentFlags()
	_ = configLoader.BindFlag("verbose", flags.Lookup("verbose"))
	_ = configLoader.BindFlag("log_level", flags.Lookup("log-level"))
	_ = configLoader.BindFlag("models_dir", flags.Lookup("models-dir"))
	if cfgFile != "" {
		configLoader.GetViper().SetConfigFile(cfgFile)
	}
	_ = configLoader.GetViper().ReadInConfig()
	return configLoader
}
