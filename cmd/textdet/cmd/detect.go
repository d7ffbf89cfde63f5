package cmd

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/pipeline"
	"github.com/MeKo-Tech/textdet/internal/utils"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>...",
	Short: "Run a detection model on images and decode the text boxes",
	Long: `Run a DB or SegLink ONNX model on one or more images.

The model path defaults to <models-dir>/detection/<mode>/ for the selected
mode. Overlays draw every box on a copy of the input; chips are upright crops
of every box, ready for a recognizer.

Examples:
  textdet detect page.jpg
  textdet detect scans/ -r --include '*.png'
  textdet detect *.png --mode seglink --model model_1024x1024.onnx --chips-dir chips/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.String("model", "", "detection model path (default per mode under --models-dir)")
	f.String("library", "", "ONNX Runtime shared library (or $TEXTDET_ONNXRUNTIME_LIB)")
	f.Int("threads", 0, "intra-op threads (0 = runtime default)")
	f.Int("batch-size", 1, "images per inference run (0 = all)")
	f.Bool("letterbox", false, "preserve aspect ratio when resizing DB input")
	f.Int("db-size", 1600, "DB network input side")
	f.Int("seglink-size", 1024, "SegLink network input side")
	f.Bool("gpu", false, "use the CUDA execution provider")
	f.Int("gpu-device", 0, "CUDA device id")
	f.String("overlay-dir", "", "write images with drawn boxes to this directory")
	f.String("chips-dir", "", "write one upright crop per box to this directory")
	f.Bool("progress", false, "draw a progress bar on stderr")
	addDiscoveryFlags(detectCmd)

	bindFlags(detectCmd, map[string]string{
		"model.path":          "model",
		"model.library_path":  "library",
		"model.num_threads":   "threads",
		"parallel.batch_size": "batch-size",
		"db.letterbox":        "letterbox",
		"db.input_size":       "db-size",
		"seglink.input_size":  "seglink-size",
		"gpu.enabled":         "gpu",
		"gpu.device":          "gpu-device",
		"output.overlay_dir":  "overlay-dir",
		"output.chips_dir":    "chips-dir",
	})
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return err
	}
	if pc.ModelPath, err = cfg.ResolveModelPath(); err != nil {
		return err
	}
	if show, _ := cmd.Flags().GetBool("progress"); show {
		pc.Parallel.Progress = pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "decode ")
	} else {
		pc.Parallel.Progress = pipeline.NewLogProgressCallback(slog.Default(), slog.LevelDebug, 10)
	}

	if args, err = discoverInputs(cmd, args, utils.IsSupportedImage); err != nil {
		return err
	}
	images := make([]image.Image, len(args))
	for i, path := range args {
		if images[i], err = utils.LoadImage(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	det, err := pipeline.NewDetector(pc)
	if err != nil {
		return err
	}
	defer func() {
		if err := det.Close(); err != nil {
			slog.Warn("failed to close detector", "error", err)
		}
	}()

	res, err := det.Detect(cmd.Context(), images)
	if err != nil {
		return err
	}

	results := make([]fileResult, len(args))
	for i, path := range args {
		results[i] = newFileResult(path, res[i].Detections, res[i].Width, res[i].Height)
		if err := writeSideOutputs(cfg.Output.OverlayDir, cfg.Output.ChipsDir, path, images[i], res[i].Detections); err != nil {
			return err
		}
	}
	return writeResults(cmd, cfg, results)
}

// writeSideOutputs saves the overlay and chips for one input when the
// corresponding directory is set.
func writeSideOutputs(overlayDir, chipsDir, path string, img image.Image, dets []detector.Detection) error {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if overlayDir != "" {
		out := filepath.Join(overlayDir, base+"_overlay.png")
		if err := utils.SaveImage(out, detector.Visualize(img, dets, 2)); err != nil {
			return fmt.Errorf("failed to save overlay: %w", err)
		}
		slog.Debug("overlay written", "path", out)
	}
	if chipsDir == "" {
		return nil
	}
	chips, err := pipeline.Chips(img, dets)
	if err != nil {
		return err
	}
	var errs []error
	for i, chip := range chips {
		if chip == nil {
			continue
		}
		out := filepath.Join(chipsDir, fmt.Sprintf("%s_%03d.png", base, i))
		if err := utils.SaveImage(out, chip); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
