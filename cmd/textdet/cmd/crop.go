package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/textdet/internal/utils"
	"github.com/spf13/cobra"
)

var cropCmd = &cobra.Command{
	Use:   "crop <image>",
	Short: "Cut an upright chip out of a quadrilateral",
	Long: `Rectify the quadrilateral given by --quad into an upright image.

The four corners may be in any order; they are sorted into top-left,
top-right, bottom-right, bottom-left first.

Example:
  textdet crop page.jpg --quad 10,10,200,12,198,60,8,58 --out chip.png`,
	Args: cobra.ExactArgs(1),
	RunE: runCrop,
}

func init() {
	cropCmd.Flags().String("quad", "", "x1,y1,x2,y2,x3,y3,x4,y4")
	cropCmd.Flags().String("out", "chip.png", "output image path")
	_ = cropCmd.MarkFlagRequired("quad")
	rootCmd.AddCommand(cropCmd)
}

func parseQuad(s string) ([4]utils.Point, error) {
	var q [4]utils.Point
	parts := strings.Split(s, ",")
	if len(parts) != 8 {
		return q, fmt.Errorf("quad needs 8 comma-separated numbers, got %d", len(parts))
	}
	for i := range 4 {
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[2*i]), 64)
		if err != nil {
			return q, fmt.Errorf("invalid x%d: %w", i+1, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[2*i+1]), 64)
		if err != nil {
			return q, fmt.Errorf("invalid y%d: %w", i+1, err)
		}
		q[i] = utils.Point{X: x, Y: y}
	}
	return q, nil
}

func runCrop(cmd *cobra.Command, args []string) error {
	quadFlag, _ := cmd.Flags().GetString("quad")
	out, _ := cmd.Flags().GetString("out")
	quad, err := parseQuad(quadFlag)
	if err != nil {
		return err
	}
	img, err := utils.LoadImage(args[0])
	if err != nil {
		return err
	}
	chip, err := utils.CropPerspective(img, utils.OrderPoints(quad))
	if err != nil {
		return err
	}
	if err := utils.SaveImage(out, chip); err != nil {
		return err
	}
	b := chip.Bounds()
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", out, b.Dx(), b.Dy())
	return err
}
