package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "textdet"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "TEXTDET"
)

// Loader resolves configuration from defaults, file, environment and flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader uses a fresh viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// NewLoaderWithViper uses v, typically one with flags already bound.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads configFile, or searches the standard paths when it is empty,
// and validates the result.
func (l *Loader) Load(configFile string) (*Config, error) {
	cfg, err := l.LoadWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation is Load minus Validate, for `config show`.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		for _, p := range GetConfigSearchPaths() {
			l.v.AddConfigPath(p)
		}
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so AutomaticEnv and Unmarshal see it.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("models_dir", d.ModelsDir)
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("mode", d.Mode)

	l.v.SetDefault("model.path", d.Model.Path)
	l.v.SetDefault("model.library_path", d.Model.LibraryPath)
	l.v.SetDefault("model.num_threads", d.Model.NumThreads)

	l.v.SetDefault("db.input_size", d.DB.InputSize)
	l.v.SetDefault("db.letterbox", d.DB.Letterbox)
	l.v.SetDefault("db.thresh", d.DB.Thresh)
	l.v.SetDefault("db.box_thresh", d.DB.BoxThresh)
	l.v.SetDefault("db.unclip_ratio", d.DB.UnclipRatio)
	l.v.SetDefault("db.max_candidates", d.DB.MaxCandidates)
	l.v.SetDefault("db.min_size", d.DB.MinSize)
	l.v.SetDefault("db.min_size_expanded", d.DB.MinSizeExpanded)

	l.v.SetDefault("seglink.input_size", d.SegLink.InputSize)
	l.v.SetDefault("seglink.anchor_sizes", d.SegLink.AnchorSizes)
	l.v.SetDefault("seglink.variance", d.SegLink.Variance)
	l.v.SetDefault("seglink.node_thresh", d.SegLink.NodeThresh)
	l.v.SetDefault("seglink.link_thresh", d.SegLink.LinkThresh)

	l.v.SetDefault("parallel.max_workers", d.Parallel.MaxWorkers)
	l.v.SetDefault("parallel.batch_size", d.Parallel.BatchSize)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
	l.v.SetDefault("output.overlay_dir", d.Output.OverlayDir)
	l.v.SetDefault("output.chips_dir", d.Output.ChipsDir)
	l.v.SetDefault("output.metrics_file", d.Output.MetricsFile)

	l.v.SetDefault("gpu.enabled", d.GPU.Enabled)
	l.v.SetDefault("gpu.device", d.GPU.Device)
	l.v.SetDefault("gpu.memory_limit", d.GPU.MemoryLimit)
}

// GetConfigSearchPaths returns the directories searched for textdet.yaml.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && configDir != "" {
		paths = append(paths, filepath.Join(configDir, "textdet"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "textdet"), home)
	}
	return append(paths, "/etc/textdet")
}

// MarshalYAML renders cfg with the same keys the loader reads.
func MarshalYAML(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}

// WriteDefaultConfigFile writes the defaults to filename, refusing to
// overwrite unless force is set.
func WriteDefaultConfigFile(filename string, force bool) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	if !force {
		if _, err := os.Stat(filename); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", filename)
		}
	}
	d := DefaultConfig()
	data, err := MarshalYAML(&d)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(filename, data, 0o644)
}
