package nn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/yalue/onnxruntime_go"
)

const (
	osLinux    = "linux"
	osDarwin   = "darwin"
	osWindows  = "windows"
	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

// GPUConfig selects and tunes the CUDA execution provider. Unlike CPU
// inference, GPU incompatibility must surface at Loader.Load time rather
// than silently falling back, since a caller who asked for GPU and got CPU
// would see misleading latency numbers.
type GPUConfig struct {
	Enabled             bool
	DeviceID            int
	MemLimitBytes       uint64
	ArenaExtendStrategy string
}

// DefaultGPUConfig returns a disabled GPU configuration.
func DefaultGPUConfig() GPUConfig {
	return GPUConfig{
		Enabled:             false,
		DeviceID:            0,
		MemLimitBytes:       0,
		ArenaExtendStrategy: "kNextPowerOfTwo",
	}
}

// configureSessionForGPU appends the CUDA execution provider to
// sessionOptions. Unlike CPU-only sessions, a failure here is returned to
// the caller rather than swallowed: a GPU request that silently becomes a
// CPU session would be a correctness surprise, not a graceful degradation.
func configureSessionForGPU(sessionOptions *onnxruntime_go.SessionOptions, gpu GPUConfig) error {
	if !gpu.Enabled {
		return nil
	}

	cudaOpts, err := onnxruntime_go.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("create CUDA provider options (GPU may not be available): %w", err)
	}
	defer func() { _ = cudaOpts.Destroy() }()

	settings := map[string]string{
		"device_id": strconv.Itoa(gpu.DeviceID),
	}
	if gpu.MemLimitBytes > 0 {
		settings["gpu_mem_limit"] = strconv.FormatUint(gpu.MemLimitBytes, 10)
	}
	if gpu.ArenaExtendStrategy != "" {
		settings["arena_extend_strategy"] = gpu.ArenaExtendStrategy
	}

	if err := cudaOpts.Update(settings); err != nil {
		return fmt.Errorf("update CUDA provider options: %w", err)
	}
	if err := sessionOptions.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		return fmt.Errorf("append CUDA execution provider: %w", err)
	}
	return nil
}

func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root (go.mod not found)")
		}
		dir = parent
	}
}

func libraryName() (string, error) {
	switch runtime.GOOS {
	case osLinux:
		return libLinux, nil
	case osDarwin:
		return libDarwin, nil
	case osWindows:
		return libWindows, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

func trySetLibraryPath(path string) bool {
	if _, err := os.Stat(path); err == nil {
		onnxruntime_go.SetSharedLibraryPath(path)
		return true
	}
	return false
}

func systemLibraryPaths(useGPU bool) []string {
	if useGPU {
		return []string{
			"/opt/onnxruntime/gpu/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
			"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
		}
	}
	return []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
}

// setLibraryPath locates the ONNX Runtime shared library, trying system
// install locations before falling back to a project-relative
// "onnxruntime/{gpu,}/lib/<libname>" layout.
func setLibraryPath(useGPU bool) error {
	for _, path := range systemLibraryPaths(useGPU) {
		if trySetLibraryPath(path) {
			return nil
		}
	}

	root, err := findProjectRoot()
	if err != nil {
		return err
	}
	libName, err := libraryName()
	if err != nil {
		return err
	}

	if useGPU {
		gpuPath := filepath.Join(root, "onnxruntime", "gpu", "lib", libName)
		if trySetLibraryPath(gpuPath) {
			return nil
		}
	}

	cpuPath := filepath.Join(root, "onnxruntime", "lib", libName)
	if !trySetLibraryPath(cpuPath) {
		return fmt.Errorf("ONNX Runtime library not found at %s", cpuPath)
	}
	return nil
}
