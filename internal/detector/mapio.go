package detector

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/textdet/internal/utils"
)

// MapFromImage reads a grayscale rendering of a probability map, 0 to 255
// mapping onto [0,1]. Color images are reduced to luminance.
func MapFromImage(img image.Image) ProbabilityMap {
	b := img.Bounds()
	m := ProbabilityMap{Width: b.Dx(), Height: b.Dy(), Data: make([]float32, b.Dx()*b.Dy())}
	if g, ok := img.(*image.Gray); ok {
		for y := range m.Height {
			row := g.Pix[y*g.Stride : y*g.Stride+m.Width]
			for x, v := range row {
				m.Data[y*m.Width+x] = float32(v) / 255
			}
		}
		return m
	}
	for y := range m.Height {
		for x := range m.Width {
			r, gg, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := (299*r + 587*gg + 114*bb) / 1000
			m.Data[y*m.Width+x] = float32(lum) / 0xffff
		}
	}
	return m
}

// MapToImage renders m as 8-bit grayscale.
func MapToImage(m ProbabilityMap) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Data {
		v = min(max(v, 0), 1)
		g.Pix[i] = uint8(v*255 + 0.5)
	}
	return g
}

// LoadProbabilityMap reads a map from JSON ({"width","height","data"}) or
// from any supported image format.
func LoadProbabilityMap(path string) (ProbabilityMap, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided map path
		if err != nil {
			return ProbabilityMap{}, err
		}
		var m ProbabilityMap
		if err := json.Unmarshal(data, &m); err != nil {
			return ProbabilityMap{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := m.Validate(); err != nil {
			return ProbabilityMap{}, err
		}
		return m, nil
	}
	img, err := utils.LoadImage(path)
	if err != nil {
		return ProbabilityMap{}, err
	}
	return MapFromImage(img), nil
}
