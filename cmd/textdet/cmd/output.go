package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MeKo-Tech/textdet/internal/config"
	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/spf13/cobra"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// fileResult is one input's detections as written by every command.
type fileResult struct {
	File string `json:"file"`
	detector.ResultJSON
}

func newFileResult(file string, dets []detector.Detection, width, height int) fileResult {
	return fileResult{File: file, ResultJSON: detector.NewResultJSON(dets, width, height)}
}

// writeResults renders results in the configured format to the configured
// file, or to the command's stdout.
func writeResults(cmd *cobra.Command, cfg *config.Config, results []fileResult) error {
	var w io.Writer = cmd.OutOrStdout()
	if cfg.Output.File != "" {
		f, err := os.Create(cfg.Output.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	switch cfg.Output.Format {
	case outputFormatText:
		return writeText(w, results)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
}

func writeText(w io.Writer, results []fileResult) error {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "%s (%dx%d): %d detection(s)\n", r.File, r.Width, r.Height, len(r.Detections))
		for i, d := range r.Detections {
			pts := make([]string, len(d.Polygon))
			for j, p := range d.Polygon {
				pts[j] = fmt.Sprintf("%d,%d", p[0], p[1])
			}
			fmt.Fprintf(&sb, "  %d: [%s] score=%.3f\n", i, strings.Join(pts, " "), d.Score)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
