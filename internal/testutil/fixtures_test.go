package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardMapFixturesDecode(t *testing.T) {
	dec, err := detector.NewDBDecoder(detector.DefaultDBConfig())
	require.NoError(t, err)

	for _, f := range StandardMapFixtures() {
		t.Run(f.Name, func(t *testing.T) {
			m := f.Map()
			require.NoError(t, m.Validate())
			dets, err := dec.Decode(m, f.Width, f.Height)
			require.NoError(t, err)
			assert.Len(t, dets, f.Detections)
		})
	}
}

func TestMapFixtureFiles(t *testing.T) {
	f, ok := MapFixtureByName("single_line")
	require.True(t, ok)
	dir := t.TempDir()

	fromPNG, err := detector.LoadProbabilityMap(f.WritePNG(t, dir))
	require.NoError(t, err)
	assert.InDelta(t, 0.9, fromPNG.At(20, 20), 1.0/255)

	fromJSON, err := detector.LoadProbabilityMap(f.WriteJSON(t, dir))
	require.NoError(t, err)
	assert.Equal(t, f.Map(), fromJSON)

	_, ok = MapFixtureByName("nope")
	assert.False(t, ok)
}

func TestGenerateTextImage(t *testing.T) {
	cfg := DefaultTextImageConfig()
	cfg.Lines = []string{"first line", "second"}
	img := GenerateTextImage(cfg)
	assert.Equal(t, 320, img.Bounds().Dx())

	dark := 0
	for y := range 240 {
		for x := range 320 {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				dark++
			}
		}
	}
	assert.Positive(t, dark)
	assert.False(t, CompareImages(img, CreateTestImage(320, 240, color.White), 0))

	cfg.Rotation = 90
	rot := GenerateTextImage(cfg)
	assert.Equal(t, 240, rot.Bounds().Dx())
	assert.Equal(t, 320, rot.Bounds().Dy())
}

func TestCompareImages(t *testing.T) {
	a := CreateTestImage(10, 10, color.White)
	assert.True(t, CompareImages(a, CreateTestImage(10, 10, color.White), 0))
	assert.False(t, CompareImages(a, CreateTestImage(10, 10, color.Black), 0.1))
	assert.False(t, CompareImages(a, CreateTestImage(5, 10, color.White), 1))
}

func TestProjectRoot(t *testing.T) {
	root, err := GetProjectRootValidated()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
	assert.True(t, DirExists(root))
	assert.Equal(t, filepath.Join(root, "testdata"), GetTestDataDir(t))
}
