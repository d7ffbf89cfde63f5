package cmd

import (
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/textdet/internal/batch"
	"github.com/MeKo-Tech/textdet/internal/utils"
	"github.com/spf13/cobra"
)

// addDiscoveryFlags lets a command take directories as inputs.
func addDiscoveryFlags(c *cobra.Command) {
	c.Flags().BoolP("recursive", "r", false, "descend into subdirectories of directory inputs")
	c.Flags().StringSlice("include", nil, "only process files matching these glob patterns")
	c.Flags().StringSlice("exclude", nil, "skip files matching these glob patterns")
}

// discoverInputs expands directory arguments with the command's discovery
// flags. accept filters files found inside directories.
func discoverInputs(cmd *cobra.Command, args []string, accept func(string) bool) ([]string, error) {
	opts := batch.Options{Accept: accept}
	opts.Recursive, _ = cmd.Flags().GetBool("recursive")
	opts.Include, _ = cmd.Flags().GetStringSlice("include")
	opts.Exclude, _ = cmd.Flags().GetStringSlice("exclude")
	return batch.Discover(args, opts)
}

func isMapFile(path string) bool {
	return utils.IsSupportedImage(path) || strings.EqualFold(filepath.Ext(path), ".json")
}
