package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Default detection model files.
const (
	DetectionDB      = "model_1600x1600.onnx"
	DetectionSegLink = "model_1024x1024.onnx"
)

// Model family directories under <models>/detection/.
const (
	TypeDetection = "detection"
	FamilyDB      = "db"
	FamilySegLink = "seglink"
)

// DefaultModelsDir is used when neither a flag nor the environment names one.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "TEXTDET_MODELS_DIR"

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

// ModelInfo describes one known detection model.
type ModelInfo struct {
	Name        string
	Family      string
	InputSize   int
	Description string
	Filename    string
}

// GetModelsDir returns the models directory.
// Priority: explicit modelsDir, then $TEXTDET_MODELS_DIR, then <project root>/models.
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

// ResolveModelPath prefers <dir>/detection/<family>/<file> and falls back to
// the flat <dir>/<file> layout.
func ResolveModelPath(modelsDir, family, filename string) string {
	base := GetModelsDir(modelsDir)
	if family != "" {
		organized := filepath.Join(base, TypeDetection, family, filename)
		if _, err := os.Stat(organized); err == nil {
			return organized
		}
	}
	return filepath.Join(base, filename)
}

// DetectionModelPath returns the default model path for a family ("db" or "seglink").
func DetectionModelPath(modelsDir, family string) (string, error) {
	switch family {
	case FamilyDB:
		return ResolveModelPath(modelsDir, FamilyDB, DetectionDB), nil
	case FamilySegLink:
		return ResolveModelPath(modelsDir, FamilySegLink, DetectionSegLink), nil
	default:
		return "", fmt.Errorf("unknown model family %q", family)
	}
}

// ValidateModelExists checks that a model file exists at modelPath.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// ListAvailableModels returns the known detection models.
func ListAvailableModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:        "db-1600",
			Family:      FamilyDB,
			InputSize:   1600,
			Description: "Differentiable binarization, NCHW probability map output",
			Filename:    DetectionDB,
		},
		{
			Name:        "seglink-1024",
			Family:      FamilySegLink,
			InputSize:   1024,
			Description: "SegLink++ six-level segment/link output",
			Filename:    DetectionSegLink,
		},
	}
}
