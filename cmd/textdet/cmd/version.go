package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/textdet/internal/models"
	"github.com/MeKo-Tech/textdet/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
		return err
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known detection models and where they resolve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfigLoader().LoadWithoutValidation(cfgFile)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, m := range models.ListAvailableModels() {
			path := models.ResolveModelPath(cfg.ModelsDir, m.Family, m.Filename)
			status := "missing"
			if models.ValidateModelExists(path) == nil {
				status = "found"
			}
			if _, err := fmt.Fprintf(w, "%-14s %-8s %5d  %-7s %s\n", m.Name, m.Family, m.InputSize, status, path); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, modelsCmd)
}
