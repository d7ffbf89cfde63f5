package config

import (
	"strings"
	"testing"

	"github.com/MeKo-Tech/textdet/internal/models"
	"github.com/MeKo-Tech/textdet/internal/pipeline"
)

const (
	infoLevel  = "info"
	debugLevel = "debug"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ModelsDir != models.DefaultModelsDir {
		t.Errorf("Expected models_dir %s, got %s", models.DefaultModelsDir, cfg.ModelsDir)
	}
	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log_level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Mode != "db" {
		t.Errorf("Expected mode 'db', got %s", cfg.Mode)
	}
	if cfg.DB.InputSize != 1600 || cfg.SegLink.InputSize != 1024 {
		t.Errorf("Unexpected input sizes db=%d seglink=%d", cfg.DB.InputSize, cfg.SegLink.InputSize)
	}
	if cfg.DB.Thresh != 0.2 || cfg.DB.BoxThresh != 0.3 || cfg.DB.UnclipRatio != 1.5 {
		t.Errorf("Unexpected DB thresholds: %+v", cfg.DB)
	}
	if cfg.SegLink.NodeThresh != 0.4 || cfg.SegLink.LinkThresh != 0.6 {
		t.Errorf("Unexpected SegLink thresholds: %+v", cfg.SegLink)
	}
	if len(cfg.SegLink.AnchorSizes) != 6 {
		t.Errorf("Expected 6 anchor sizes, got %d", len(cfg.SegLink.AnchorSizes))
	}
	if cfg.Parallel.MaxWorkers <= 0 {
		t.Errorf("Expected positive max workers, got %d", cfg.Parallel.MaxWorkers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log level"},
		{"bad mode", func(c *Config) { c.Mode = "east" }, "mode"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "output format"},
		{"db thresh high", func(c *Config) { c.DB.Thresh = 1.5 }, "db.thresh"},
		{"box thresh negative", func(c *Config) { c.DB.BoxThresh = -0.1 }, "db.box_thresh"},
		{"node thresh", func(c *Config) { c.SegLink.NodeThresh = 2 }, "seglink.node_thresh"},
		{"link thresh", func(c *Config) { c.SegLink.LinkThresh = -1 }, "seglink.link_thresh"},
		{"workers", func(c *Config) { c.Parallel.MaxWorkers = 0 }, "max workers"},
		{"batch size", func(c *Config) { c.Parallel.BatchSize = -1 }, "batch size"},
		{"threads", func(c *Config) { c.Model.NumThreads = -2 }, "num threads"},
		{"memory limit", func(c *Config) { c.GPU.MemoryLimit = "lots" }, "memory limit"},
		{"anchor table", func(c *Config) { c.SegLink.AnchorSizes = []float64{1, 2} }, "anchor"},
		{"variance", func(c *Config) { c.SegLink.Variance = []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0} }, "variance"},
		{"input size", func(c *Config) { c.DB.InputSize = 0 }, "input sizes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "seglink"
	cfg.Model.Path = "/models/seglink.onnx"
	cfg.Model.NumThreads = 4
	cfg.DB.Letterbox = true
	cfg.SegLink.InputSize = 512
	cfg.SegLink.NodeThresh = 0.5
	cfg.Parallel.BatchSize = 8
	cfg.Parallel.MaxWorkers = 3
	cfg.GPU = GPUConfig{Enabled: true, Device: 1, MemoryLimit: "2GB"}

	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		t.Fatalf("ToPipelineConfig() error: %v", err)
	}
	if pc.Mode != pipeline.ModeSegLink {
		t.Errorf("Expected seglink mode, got %s", pc.Mode)
	}
	if pc.ModelPath != "/models/seglink.onnx" || pc.NumThreads != 4 {
		t.Errorf("Model settings not copied: %+v", pc)
	}
	if !pc.Letterbox || pc.SegSize != 512 || pc.BatchSize != 8 || pc.Parallel.MaxWorkers != 3 {
		t.Errorf("Pipeline settings not copied: %+v", pc)
	}
	if pc.SegLink.NodeThresh != 0.5 || pc.SegLink.BaseStride != 4 {
		t.Errorf("SegLink settings not copied: %+v", pc.SegLink)
	}
	if !pc.GPU.UseGPU || pc.GPU.DeviceID != 1 || pc.GPU.GPUMemLimit != 2<<30 {
		t.Errorf("GPU settings not copied: %+v", pc.GPU)
	}
	if err := pc.Validate(); err != nil {
		t.Errorf("Converted config should validate: %v", err)
	}
}

func TestResolveModelPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.Path = "/explicit.onnx"
	p, err := cfg.ResolveModelPath()
	if err != nil || p != "/explicit.onnx" {
		t.Errorf("Expected explicit path, got %q (%v)", p, err)
	}

	cfg.Model.Path = ""
	cfg.ModelsDir = t.TempDir()
	cfg.Mode = "seglink"
	p, err = cfg.ResolveModelPath()
	if err != nil {
		t.Fatalf("ResolveModelPath() error: %v", err)
	}
	if !strings.HasSuffix(p, models.DetectionSegLink) {
		t.Errorf("Expected seglink model file, got %s", p)
	}
}

func TestParseMemoryLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{"auto", 0, false},
		{"512MB", 512 << 20, false},
		{"1gb", 1 << 30, false},
		{"64KB", 64 << 10, false},
		{"100B", 100, false},
		{"1.5GB", 3 << 29, false},
		{"GB", 0, true},
		{"12", 0, true},
		{"-1MB", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMemoryLimit(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMemoryLimit(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseMemoryLimit(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
