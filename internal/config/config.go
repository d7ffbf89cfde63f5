package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/models"
	"github.com/MeKo-Tech/textdet/internal/onnx"
	"github.com/MeKo-Tech/textdet/internal/pipeline"
	"github.com/MeKo-Tech/textdet/internal/seglink"
)

// DefaultConfig returns DB mode with the standard thresholds.
func DefaultConfig() Config {
	db := detector.DefaultDBConfig()
	sl := seglink.DefaultConfig()
	pc := pipeline.DefaultConfig()
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Mode:      string(pipeline.ModeDB),
		DB: DBConfig{
			InputSize:       pc.DBSize,
			Thresh:          db.Thresh,
			BoxThresh:       db.BoxThresh,
			UnclipRatio:     db.UnclipRatio,
			MaxCandidates:   db.MaxCandidates,
			MinSize:         db.MinSize,
			MinSizeExpanded: db.MinSizeExpanded,
		},
		SegLink: SegLinkConfig{
			InputSize:   pc.SegSize,
			AnchorSizes: sl.AnchorSizes,
			Variance:    sl.Variance,
			NodeThresh:  sl.NodeThresh,
			LinkThresh:  sl.LinkThresh,
		},
		Parallel: ParallelConfig{
			MaxWorkers: pc.Parallel.MaxWorkers,
			BatchSize:  pc.BatchSize,
		},
		Output: OutputConfig{Format: "json"},
		GPU:    GPUConfig{MemoryLimit: "auto"},
	}
}

// Validate checks ranges and enumerations without touching the filesystem.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if _, err := pipeline.ParseMode(c.Mode); err != nil {
		return err
	}
	validFormats := []string{"json", "text"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := validateThreshold(float64(c.DB.Thresh), "db.thresh"); err != nil {
		return err
	}
	if err := validateThreshold(c.DB.BoxThresh, "db.box_thresh"); err != nil {
		return err
	}
	if err := validateThreshold(float64(c.SegLink.NodeThresh), "seglink.node_thresh"); err != nil {
		return err
	}
	if err := validateThreshold(float64(c.SegLink.LinkThresh), "seglink.link_thresh"); err != nil {
		return err
	}

	if c.Parallel.MaxWorkers <= 0 {
		return fmt.Errorf("invalid parallel max workers: %d (must be positive)", c.Parallel.MaxWorkers)
	}
	if c.Parallel.BatchSize < 0 {
		return fmt.Errorf("invalid batch size: %d (must be >= 0)", c.Parallel.BatchSize)
	}
	if c.Model.NumThreads < 0 {
		return fmt.Errorf("invalid num threads: %d (must be >= 0)", c.Model.NumThreads)
	}
	if _, err := parseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}

	// Remaining checks live with the components.
	pc, err := c.ToPipelineConfig()
	if err != nil {
		return err
	}
	return pc.Validate()
}

// ToPipelineConfig converts the file/flag view into the detector configuration.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	limit, err := parseMemoryLimit(c.GPU.MemoryLimit)
	if err != nil {
		return pipeline.Config{}, err
	}
	pc := pipeline.DefaultConfig()
	pc.Mode = pipeline.Mode(c.Mode)
	pc.ModelPath = c.Model.Path
	pc.LibraryPath = c.Model.LibraryPath
	pc.NumThreads = c.Model.NumThreads
	pc.GPU = onnx.GPUConfig{UseGPU: c.GPU.Enabled, DeviceID: c.GPU.Device, GPUMemLimit: limit}
	pc.DB = c.toDBConfig()
	pc.SegLink = c.toSegLinkConfig()
	pc.DBSize = c.DB.InputSize
	pc.SegSize = c.SegLink.InputSize
	pc.Letterbox = c.DB.Letterbox
	pc.BatchSize = c.Parallel.BatchSize
	pc.Parallel.MaxWorkers = c.Parallel.MaxWorkers
	return pc, nil
}

// ResolveModelPath returns Model.Path or the default model for Mode.
func (c *Config) ResolveModelPath() (string, error) {
	if c.Model.Path != "" {
		return c.Model.Path, nil
	}
	return models.DetectionModelPath(c.ModelsDir, c.Mode)
}

func (c *Config) toDBConfig() detector.DBConfig {
	return detector.DBConfig{
		Thresh:          c.DB.Thresh,
		BoxThresh:       c.DB.BoxThresh,
		UnclipRatio:     c.DB.UnclipRatio,
		MaxCandidates:   c.DB.MaxCandidates,
		MinSize:         c.DB.MinSize,
		MinSizeExpanded: c.DB.MinSizeExpanded,
	}
}

func (c *Config) toSegLinkConfig() seglink.Config {
	cfg := seglink.DefaultConfig()
	cfg.AnchorSizes = c.SegLink.AnchorSizes
	cfg.Variance = c.SegLink.Variance
	cfg.NodeThresh = c.SegLink.NodeThresh
	cfg.LinkThresh = c.SegLink.LinkThresh
	return cfg
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// parseMemoryLimit turns "auto", "", "512MB" or "2GB" into bytes; 0 means
// no limit.
func parseMemoryLimit(limit string) (uint64, error) {
	if limit == "" || strings.EqualFold(limit, "auto") {
		return 0, nil
	}
	upper := strings.ToUpper(strings.TrimSpace(limit))
	units := []struct {
		suffix string
		mult   float64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(upper, u.suffix)), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(n * u.mult), nil
	}
	return 0, fmt.Errorf("memory limit must end with one of: B, KB, MB, GB (got %s)", limit)
}
