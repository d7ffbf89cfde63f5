package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/textdet/internal/config"
	"github.com/MeKo-Tech/textdet/internal/metrics"
	"github.com/MeKo-Tech/textdet/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "textdet",
	Short: "Scene text detection decoding for DB and SegLink models",
	Long: `textdet turns the raw outputs of text detection networks into text boxes.

It decodes DB probability maps and SegLink segment/link tensors, runs ONNX
models end to end, and cuts upright text chips for downstream recognition.

Examples:
  textdet db map.png --dest-width 1280 --dest-height 720
  textdet seglink outputs.json
  textdet detect page.jpg --model model_1600x1600.onnx --overlay-dir out/
  textdet crop page.jpg --quad 10,10,200,12,198,60,8,58 --out chip.png`,
	Version:      version.String(),
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentPreRunE = setupLogging
	rootCmd.PersistentPostRunE = writeMetrics

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is search in ., $XDG_CONFIG_HOME/textdet, $HOME/.config/textdet, $HOME, /etc/textdet)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("models-dir", "", "directory containing ONNX models (or $TEXTDET_MODELS_DIR)")
	pf.String("mode", "db", "detection mode (db, seglink)")
	pf.Int("workers", 0, "maximum concurrent images (default one per CPU)")
	pf.String("format", "json", "output format (json, text)")
	pf.StringP("output", "o", "", "write results to this file instead of stdout")
	pf.String("metrics-file", "", "write Prometheus metrics in text format to this file on exit")

	pf.Float32("thresh", 0.2, "DB binarization threshold")
	pf.Float64("box-thresh", 0.3, "DB minimum mean box score")
	pf.Float64("unclip-ratio", 1.5, "DB box expansion ratio")
	pf.Int("max-candidates", 1000, "DB maximum contours per map")
	pf.Float32("node-thresh", 0.4, "SegLink node probability threshold")
	pf.Float32("link-thresh", 0.6, "SegLink link probability threshold")

	bindFlags(rootCmd, map[string]string{
		"verbose":              "verbose",
		"log_level":            "log-level",
		"models_dir":           "models-dir",
		"mode":                 "mode",
		"output.format":        "format",
		"output.file":          "output",
		"output.metrics_file":  "metrics-file",
		"db.thresh":            "thresh",
		"db.box_thresh":        "box-thresh",
		"db.unclip_ratio":      "unclip-ratio",
		"db.max_candidates":    "max-candidates",
		"seglink.node_thresh":  "node-thresh",
		"seglink.link_thresh":  "link-thresh",
		"parallel.max_workers": "workers",
	})
}

// flagKeys maps viper keys to flag names per command.
var flagKeys = map[*cobra.Command]map[string]string{}

// bindFlags registers flags of c for binding when c (or, for the root, any
// command) runs.
func bindFlags(c *cobra.Command, keys map[string]string) {
	flagKeys[c] = keys
}

// newLoader creates a loader on a fresh viper instance bound to the root's
// persistent flags and the running command's own flags.
func newLoader(cmd *cobra.Command) (*config.Loader, error) {
	v := viper.New()
	for c, keys := range flagKeys {
		if c != rootCmd && c != cmd {
			continue
		}
		for key, name := range keys {
			f := c.PersistentFlags().Lookup(name)
			if f == nil {
				f = c.Flags().Lookup(name)
			}
			if f == nil {
				return nil, fmt.Errorf("flag %q not defined on %s", name, c.Name())
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return config.NewLoaderWithViper(v), nil
}

// setupLogging installs a JSON slog handler on stderr at the configured level.
func setupLogging(cmd *cobra.Command, _ []string) error {
	l, err := newLoader(cmd)
	if err != nil {
		return err
	}
	configLoader = l
	cfg, err := l.LoadWithoutValidation(cfgFile)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg))
	return nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case cfg.Verbose:
		level = slog.LevelDebug
	case cfg.LogLevel == "debug":
		level = slog.LevelDebug
	case cfg.LogLevel == "warn":
		level = slog.LevelWarn
	case cfg.LogLevel == "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// writeMetrics dumps the registry when --metrics-file is set.
func writeMetrics(_ *cobra.Command, _ []string) error {
	path := GetConfigLoader().Viper().GetString("output.metrics_file")
	if path == "" {
		return nil
	}
	if err := metrics.WriteTextfile(path); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	slog.Debug("metrics written", "path", path)
	return nil
}

// GetConfig returns the validated configuration including CLI flags.
func GetConfig() (*config.Config, error) {
	return GetConfigLoader().Load(cfgFile)
}

// GetConfigLoader returns the loader of the running command.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
