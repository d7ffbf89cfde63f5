package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/textdet/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := config.WriteDefaultConfigFile(path, force); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return err
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Print the configuration after applying defaults, the config file,
TEXTDET_* environment variables and flags. Invalid values are shown and
reported as a warning instead of failing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := GetConfigLoader()
		cfg, err := l.LoadWithoutValidation(cfgFile)
		if err != nil {
			return err
		}
		data, err := config.MarshalYAML(cfg)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		source := l.ConfigFileUsed()
		if source == "" {
			source = "defaults"
		}
		if _, err := fmt.Fprintf(w, "# source: %s\n", source); err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
