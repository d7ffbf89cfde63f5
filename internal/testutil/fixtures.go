package testutil

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/utils"
	"github.com/stretchr/testify/require"
)

// MapFixture is a synthetic probability map made of rectangular text blocks.
type MapFixture struct {
	Name   string
	Width  int
	Height int
	// Blocks are inclusive-exclusive rectangles filled with Value.
	Blocks []image.Rectangle
	Value  float32
	// Detections is the expected DB decode count at default thresholds.
	Detections int
}

// Map renders the fixture.
func (f MapFixture) Map() detector.ProbabilityMap {
	m := detector.ProbabilityMap{Width: f.Width, Height: f.Height, Data: make([]float32, f.Width*f.Height)}
	for _, r := range f.Blocks {
		r = r.Intersect(image.Rect(0, 0, f.Width, f.Height))
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				m.Data[y*f.Width+x] = f.Value
			}
		}
	}
	return m
}

// WritePNG saves the fixture as an 8-bit grayscale image under dir.
func (f MapFixture) WritePNG(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, f.Name+".png")
	require.NoError(t, utils.SaveImage(path, detector.MapToImage(f.Map())))
	return path
}

// WriteJSON saves the fixture as {"width","height","data"} under dir.
func (f MapFixture) WriteJSON(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, f.Name+".json")
	data, err := json.Marshal(f.Map())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// StandardMapFixtures covers the empty, single and multi-line cases.
func StandardMapFixtures() []MapFixture {
	return []MapFixture{
		{Name: "empty", Width: 64, Height: 48, Value: 0.9},
		{
			Name: "single_line", Width: 64, Height: 48, Value: 0.9,
			Blocks:     []image.Rectangle{image.Rect(8, 16, 56, 28)},
			Detections: 1,
		},
		{
			Name: "two_lines", Width: 96, Height: 64, Value: 0.9,
			Blocks:     []image.Rectangle{image.Rect(8, 8, 88, 20), image.Rect(8, 40, 60, 52)},
			Detections: 2,
		},
		{
			Name: "faint", Width: 64, Height: 48, Value: 0.25,
			Blocks: []image.Rectangle{image.Rect(8, 16, 56, 28)},
		},
	}
}

// MapFixtureByName returns the named standard fixture.
func MapFixtureByName(name string) (MapFixture, bool) {
	for _, f := range StandardMapFixtures() {
		if f.Name == name {
			return f, true
		}
	}
	return MapFixture{}, false
}
