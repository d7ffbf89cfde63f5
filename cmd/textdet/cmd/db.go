package cmd

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/pipeline"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db <map.png|map.json>...",
	Short: "Decode stored DB probability maps into text boxes",
	Long: `Decode one or more DB probability maps into quadrilateral text boxes.

Maps are read from grayscale images (0-255 maps to [0,1]) or from JSON
{"width","height","data"} files. Boxes are rescaled to --dest-width x
--dest-height, which default to the map size.

Examples:
  textdet db map.png
  textdet db maps/ --recursive
  textdet db map.json --dest-width 1920 --dest-height 1080 --box-thresh 0.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDB,
}

func init() {
	dbCmd.Flags().Int("dest-width", 0, "destination image width (default map width)")
	dbCmd.Flags().Int("dest-height", 0, "destination image height (default map height)")
	addDiscoveryFlags(dbCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDB(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return err
	}
	dec, err := detector.NewDBDecoder(pc.DB)
	if err != nil {
		return err
	}
	destW, _ := cmd.Flags().GetInt("dest-width")
	destH, _ := cmd.Flags().GetInt("dest-height")
	if destW < 0 || destH < 0 {
		return errors.New("destination size must not be negative")
	}

	if args, err = discoverInputs(cmd, args, isMapFile); err != nil {
		return err
	}
	maps := make([]detector.ProbabilityMap, len(args))
	sizes := make([]image.Point, len(args))
	for i, path := range args {
		m, err := detector.LoadProbabilityMap(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		maps[i] = m
		sizes[i] = image.Pt(m.Width, m.Height)
		if destW > 0 {
			sizes[i].X = destW
		}
		if destH > 0 {
			sizes[i].Y = destH
		}
	}

	dets, err := pipeline.DecodeDBBatch(cmd.Context(), dec, maps, sizes, pc.Parallel)
	if err != nil {
		return err
	}
	results := make([]fileResult, len(args))
	for i, path := range args {
		results[i] = newFileResult(path, dets[i], sizes[i].X, sizes[i].Y)
		slog.Debug("decoded map", "file", path, "detections", len(dets[i]))
	}
	return writeResults(cmd, cfg, results)
}
