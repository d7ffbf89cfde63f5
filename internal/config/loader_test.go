package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// isolate points the search paths at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func TestLoadWithNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := NewLoaderWithViper(viper.New()).Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.DB.InputSize != 1600 {
		t.Errorf("Expected default db input size 1600, got %d", cfg.DB.InputSize)
	}
	if len(cfg.SegLink.AnchorSizes) != 6 {
		t.Errorf("Expected default anchors, got %v", cfg.SegLink.AnchorSizes)
	}
}

func TestLoadWithYAMLFile(t *testing.T) {
	dir := isolate(t)
	configFile := filepath.Join(dir, "custom.yaml")
	content := `
log_level: debug
verbose: true
mode: seglink
model:
  path: /custom/seglink.onnx
db:
  thresh: 0.4
seglink:
  input_size: 768
  link_thresh: 0.7
parallel:
  batch_size: 4
`
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	l := NewLoaderWithViper(viper.New())
	cfg, err := l.Load(configFile)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != debugLevel || !cfg.Verbose {
		t.Errorf("Global settings not loaded: %+v", cfg)
	}
	if cfg.Mode != "seglink" || cfg.Model.Path != "/custom/seglink.onnx" {
		t.Errorf("Mode/model not loaded: %s %s", cfg.Mode, cfg.Model.Path)
	}
	if cfg.DB.Thresh != 0.4 {
		t.Errorf("Expected db.thresh 0.4, got %v", cfg.DB.Thresh)
	}
	if cfg.DB.BoxThresh != 0.3 {
		t.Errorf("Expected default db.box_thresh 0.3, got %v", cfg.DB.BoxThresh)
	}
	if cfg.SegLink.InputSize != 768 || cfg.SegLink.LinkThresh != 0.7 {
		t.Errorf("SegLink settings not loaded: %+v", cfg.SegLink)
	}
	if cfg.Parallel.BatchSize != 4 {
		t.Errorf("Expected batch size 4, got %d", cfg.Parallel.BatchSize)
	}
	if l.ConfigFileUsed() != configFile {
		t.Errorf("Expected config file %s, got %s", configFile, l.ConfigFileUsed())
	}
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "textdet.yaml"), []byte("mode: seglink\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	cfg, err := NewLoaderWithViper(viper.New()).Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Mode != "seglink" {
		t.Errorf("Expected mode from ./textdet.yaml, got %s", cfg.Mode)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TEXTDET_LOG_LEVEL", "warn")
	t.Setenv("TEXTDET_DB_BOX_THRESH", "0.55")
	t.Setenv("TEXTDET_PARALLEL_MAX_WORKERS", "7")

	cfg, err := NewLoaderWithViper(viper.New()).Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level from env, got %s", cfg.LogLevel)
	}
	if cfg.DB.BoxThresh != 0.55 {
		t.Errorf("Expected box thresh 0.55 from env, got %v", cfg.DB.BoxThresh)
	}
	if cfg.Parallel.MaxWorkers != 7 {
		t.Errorf("Expected 7 workers from env, got %d", cfg.Parallel.MaxWorkers)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	if _, err := NewLoaderWithViper(viper.New()).Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("db: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoaderWithViper(viper.New()).Load(bad); err == nil {
		t.Error("Expected error for malformed YAML")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("mode: east\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewLoaderWithViper(viper.New()).Load(invalid)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Expected validation error, got %v", err)
	}
	cfg, err := NewLoaderWithViper(viper.New()).LoadWithoutValidation(invalid)
	if err != nil {
		t.Fatalf("LoadWithoutValidation() unexpected error: %v", err)
	}
	if cfg.Mode != "east" {
		t.Errorf("Expected unvalidated mode 'east', got %s", cfg.Mode)
	}
}

func TestWriteDefaultConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "conf", "textdet.yaml")

	if err := WriteDefaultConfigFile(path, false); err != nil {
		t.Fatalf("WriteDefaultConfigFile() error: %v", err)
	}
	if err := WriteDefaultConfigFile(path, false); err == nil {
		t.Error("Expected error when file exists without force")
	}
	if err := WriteDefaultConfigFile(path, true); err != nil {
		t.Errorf("Expected overwrite with force, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Generated YAML does not parse: %v", err)
	}
	for _, key := range []string{"mode", "db", "seglink", "parallel", "gpu"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Generated YAML is missing key %q", key)
		}
	}

	// The generated file loads back to the defaults.
	cfg, err := NewLoaderWithViper(viper.New()).Load(path)
	if err != nil {
		t.Fatalf("Load() of generated file failed: %v", err)
	}
	if cfg.DB.UnclipRatio != 1.5 || cfg.SegLink.LinkThresh != 0.6 {
		t.Errorf("Generated file does not round trip: %+v", cfg)
	}
}

func TestGetConfigSearchPaths(t *testing.T) {
	dir := isolate(t)
	paths := GetConfigSearchPaths()
	if paths[0] != "." {
		t.Errorf("Expected working directory first, got %s", paths[0])
	}
	want := filepath.Join(dir, "xdg", "textdet")
	found := false
	for _, p := range paths {
		if p == want {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected %s in search paths %v", want, paths)
	}
}
