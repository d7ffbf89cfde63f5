package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/MeKo-Tech/textdet/internal/benchmark"
	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/pipeline"
	"github.com/MeKo-Tech/textdet/internal/seglink"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench <input>...",
	Short: "Time the decoder on stored maps or SegLink bundles",
	Long: `Run the decoder of the configured mode repeatedly on each input and
report time and allocations per run. DB mode reads probability maps, SegLink
mode reads JSON bundles as accepted by the seglink command.

Examples:
  textdet bench map.png --iterations 50
  textdet bench --mode seglink bundle.json --csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().Int("iterations", 10, "runs per input")
	benchCmd.Flags().Bool("csv", false, "write CSV instead of text")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return err
	}
	iterations, _ := cmd.Flags().GetInt("iterations")
	asCSV, _ := cmd.Flags().GetBool("csv")

	suite := benchmark.NewSuite()
	if pc.Mode == pipeline.ModeSegLink {
		err = addSegLinkCases(suite, pc.SegLink, args)
	} else {
		err = addDBCases(suite, pc.DB, args)
	}
	if err != nil {
		return err
	}

	results := suite.RunAll(cmd.Context(), iterations)
	w := cmd.OutOrStdout()
	if asCSV {
		err = benchmark.WriteCSV(w, results)
	} else {
		err = benchmark.WriteText(w, results)
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%s: %w", r.Name, r.Err)
		}
	}
	return nil
}

func addDBCases(suite *benchmark.Suite, cfg detector.DBConfig, paths []string) error {
	dec, err := detector.NewDBDecoder(cfg)
	if err != nil {
		return err
	}
	for _, path := range paths {
		m, err := detector.LoadProbabilityMap(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		suite.Add("db/"+filepath.Base(path), func(context.Context) (int, error) {
			dets, err := dec.Decode(m, m.Width, m.Height)
			return len(dets), err
		})
	}
	return nil
}

func addSegLinkCases(suite *benchmark.Suite, cfg seglink.Config, paths []string) error {
	dec, err := seglink.NewDecoder(cfg)
	if err != nil {
		return err
	}
	for _, path := range paths {
		out, err := loadBundle(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		suite.Add("seglink/"+filepath.Base(path), func(context.Context) (int, error) {
			dets, err := dec.Decode(out)
			return len(dets), err
		})
	}
	return nil
}
