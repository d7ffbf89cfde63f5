//nolint:lll
package config

// Config is the complete textdet configuration. It is loaded from defaults,
// an optional YAML file, TEXTDET_* environment variables and command-line flags.
type Config struct {
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Mode selects the decoder: db or seglink.
	Mode string `mapstructure:"mode" yaml:"mode" json:"mode"`

	Model    ModelConfig    `mapstructure:"model" yaml:"model" json:"model"`
	DB       DBConfig       `mapstructure:"db" yaml:"db" json:"db"`
	SegLink  SegLinkConfig  `mapstructure:"seglink" yaml:"seglink" json:"seglink"`
	Parallel ParallelConfig `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	GPU      GPUConfig      `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// ModelConfig locates the ONNX model and runtime library.
type ModelConfig struct {
	Path        string `mapstructure:"path" yaml:"path" json:"path"`
	LibraryPath string `mapstructure:"library_path" yaml:"library_path" json:"library_path"`
	NumThreads  int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// DBConfig holds DB preprocessing and decode settings.
type DBConfig struct {
	InputSize       int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	Letterbox       bool    `mapstructure:"letterbox" yaml:"letterbox" json:"letterbox"`
	Thresh          float32 `mapstructure:"thresh" yaml:"thresh" json:"thresh"`
	BoxThresh       float64 `mapstructure:"box_thresh" yaml:"box_thresh" json:"box_thresh"`
	UnclipRatio     float64 `mapstructure:"unclip_ratio" yaml:"unclip_ratio" json:"unclip_ratio"`
	MaxCandidates   int     `mapstructure:"max_candidates" yaml:"max_candidates" json:"max_candidates"`
	MinSize         float64 `mapstructure:"min_size" yaml:"min_size" json:"min_size"`
	MinSizeExpanded float64 `mapstructure:"min_size_expanded" yaml:"min_size_expanded" json:"min_size_expanded"`
}

// SegLinkConfig holds SegLink preprocessing and decode settings.
type SegLinkConfig struct {
	InputSize   int       `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	AnchorSizes []float64 `mapstructure:"anchor_sizes" yaml:"anchor_sizes" json:"anchor_sizes"`
	Variance    []float64 `mapstructure:"variance" yaml:"variance" json:"variance"`
	NodeThresh  float32   `mapstructure:"node_thresh" yaml:"node_thresh" json:"node_thresh"`
	LinkThresh  float32   `mapstructure:"link_thresh" yaml:"link_thresh" json:"link_thresh"`
}

// ParallelConfig controls batching and decode workers.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
	BatchSize  int `mapstructure:"batch_size" yaml:"batch_size" json:"batch_size"`
}

// OutputConfig controls result formatting and side outputs.
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format" json:"format"`
	File        string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir  string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	ChipsDir    string `mapstructure:"chips_dir" yaml:"chips_dir" json:"chips_dir"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file" json:"metrics_file"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
