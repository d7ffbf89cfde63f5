package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath overrides the shared library search.
const EnvLibraryPath = "TEXTDET_ONNXRUNTIME_LIB"

// ErrLibraryNotFound is returned when no onnxruntime shared library exists.
var ErrLibraryNotFound = errors.New("onnxruntime shared library not found")

// GPUConfig selects the CUDA execution provider.
type GPUConfig struct {
	UseGPU      bool   `mapstructure:"use_gpu" yaml:"use_gpu" json:"use_gpu"`
	DeviceID    int    `mapstructure:"device_id" yaml:"device_id" json:"device_id"`
	GPUMemLimit uint64 `mapstructure:"gpu_mem_limit" yaml:"gpu_mem_limit" json:"gpu_mem_limit"`
}

// Validate reports unusable GPU settings.
func (g GPUConfig) Validate() error {
	if g.UseGPU && g.DeviceID < 0 {
		return fmt.Errorf("device ID must be non-negative, got %d", g.DeviceID)
	}
	return nil
}

func libraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// LibraryCandidates lists where the shared library is looked for, in order.
func LibraryCandidates(explicit string, useGPU bool) []string {
	var out []string
	if explicit != "" {
		out = append(out, explicit)
	}
	if env := os.Getenv(EnvLibraryPath); env != "" {
		out = append(out, env)
	}
	name, err := libraryName()
	if err != nil {
		return out
	}
	if useGPU {
		out = append(out, filepath.Join("/opt/onnxruntime/gpu/lib", name))
	}
	out = append(out,
		filepath.Join("/usr/local/lib", name),
		filepath.Join("/usr/lib", name),
		filepath.Join("/opt/onnxruntime/cpu/lib", name),
		filepath.Join("onnxruntime", "lib", name),
	)
	return out
}

var initMu sync.Mutex

// InitRuntime points onnxruntime_go at the first existing library candidate
// and initializes the environment once per process.
func InitRuntime(explicit string, useGPU bool) error {
	initMu.Lock()
	defer initMu.Unlock()
	if onnxruntime_go.IsInitialized() {
		return nil
	}
	found := ""
	for _, p := range LibraryCandidates(explicit, useGPU) {
		if _, err := os.Stat(p); err == nil {
			found = p
			break
		}
	}
	if found == "" {
		return ErrLibraryNotFound
	}
	onnxruntime_go.SetSharedLibraryPath(found)
	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime from %s: %w", found, err)
	}
	return nil
}

// configureGPU appends the CUDA provider to opts when requested.
func configureGPU(opts *onnxruntime_go.SessionOptions, g GPUConfig) error {
	if !g.UseGPU {
		return nil
	}
	cudaOpts, err := onnxruntime_go.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("failed to create CUDA provider options: %w", err)
	}
	defer func() { _ = cudaOpts.Destroy() }()

	settings := map[string]string{"device_id": strconv.Itoa(g.DeviceID)}
	if g.GPUMemLimit > 0 {
		settings["gpu_mem_limit"] = strconv.FormatUint(g.GPUMemLimit, 10)
	}
	if err := cudaOpts.Update(settings); err != nil {
		return fmt.Errorf("failed to update CUDA provider options: %w", err)
	}
	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		return fmt.Errorf("failed to append CUDA execution provider: %w", err)
	}
	return nil
}
