package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/textdet/internal/pipeline"
	"github.com/MeKo-Tech/textdet/internal/seglink"
	"github.com/spf13/cobra"
)

var seglinkCmd = &cobra.Command{
	Use:   "seglink <bundle.json>...",
	Short: "Decode stored SegLink level tensors into text boxes",
	Long: `Decode SegLink network outputs saved as JSON bundles.

A bundle holds the six levels of cls, lnk and reg tensors together with the
network input size, the padded square side and the original image size:

  {"levels":[{"cls":{"data":[...],"shape":[1,H,W,2]},"lnk":{...},"reg":{...}}, ...],
   "input_width":1024,"input_height":1024,"pad_side":1280,
   "image_width":1280,"image_height":720}`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSegLink,
}

func init() {
	rootCmd.AddCommand(seglinkCmd)
}

func loadBundle(path string) (seglink.Output, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided bundle path
	if err != nil {
		return seglink.Output{}, err
	}
	var out seglink.Output
	if err := json.Unmarshal(data, &out); err != nil {
		return seglink.Output{}, fmt.Errorf("failed to parse bundle: %w", err)
	}
	return out, nil
}

func runSegLink(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return err
	}
	dec, err := seglink.NewDecoder(pc.SegLink)
	if err != nil {
		return err
	}

	outs := make([]seglink.Output, len(args))
	for i, path := range args {
		if outs[i], err = loadBundle(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	dets, err := pipeline.DecodeSegLinkBatch(cmd.Context(), dec, outs, pc.Parallel)
	if err != nil {
		return err
	}
	results := make([]fileResult, len(args))
	for i, path := range args {
		results[i] = newFileResult(path, dets[i], outs[i].ImageWidth, outs[i].ImageHeight)
		slog.Debug("decoded bundle", "file", path, "detections", len(dets[i]))
	}
	return writeResults(cmd, cfg, results)
}
