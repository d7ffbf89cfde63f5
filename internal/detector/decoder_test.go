package detector

import (
	"image"
	"testing"

	"github.com/MeKo-Tech/textdet/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDecoder(t *testing.T, mutate func(*DBConfig)) *DBDecoder {
	t.Helper()
	cfg := DefaultDBConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := NewDBDecoder(cfg)
	require.NoError(t, err)
	return d
}

func polygonBounds(poly []image.Point) image.Rectangle {
	r := image.Rectangle{Min: poly[0], Max: poly[0]}
	for _, p := range poly[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

func TestDecodeSingleBlock(t *testing.T) {
	d := newTestDecoder(t, nil)
	m := blockMap(20, 20, 5, 5, 14, 14, 0.9)

	dets, err := d.Decode(m, 20, 20)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	det := dets[0]
	assert.InDelta(t, 0.9, det.Score, 1e-6)
	require.Len(t, det.Polygon, 4)

	b := polygonBounds(det.Polygon)
	// The expanded box strictly contains the original block.
	assert.Less(t, b.Min.X, 5)
	assert.Less(t, b.Min.Y, 5)
	assert.Greater(t, b.Max.X, 14)
	assert.Greater(t, b.Max.Y, 14)
	assert.InDelta(t, 2, b.Min.X, 1)
	assert.InDelta(t, 17, b.Max.X, 1)

	area := utils.PolygonAreaInt(det.Polygon)
	assert.Greater(t, area, 81.0)
	assert.NoError(t, Validate(dets, 20, 20))
}

func TestDecodeEmptyMap(t *testing.T) {
	d := newTestDecoder(t, nil)
	m := ProbabilityMap{Width: 16, Height: 16, Data: make([]float32, 256)}

	dets, err := d.Decode(m, 32, 32)
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestDecodeInvalidInput(t *testing.T) {
	d := newTestDecoder(t, nil)

	_, err := d.Decode(ProbabilityMap{Width: 4, Height: 4, Data: make([]float32, 15)}, 4, 4)
	assert.ErrorIs(t, err, ErrInvalidMap)

	_, err = d.Decode(ProbabilityMap{Width: 4, Height: 4, Data: make([]float32, 16)}, 0, 4)
	assert.ErrorIs(t, err, ErrInvalidMap)
}

func TestDecodeFilters(t *testing.T) {
	tests := []struct {
		name string
		v    float32
		x1   int
	}{
		{"below box threshold", 0.25, 14},
		{"too small", 0.9, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDecoder(t, nil)
			m := blockMap(20, 20, 5, 5, tt.x1, 14, tt.v)
			dets, err := d.Decode(m, 20, 20)
			require.NoError(t, err)
			assert.Empty(t, dets)
		})
	}
}

func TestDecodeKeepsDiscoveryOrder(t *testing.T) {
	d := newTestDecoder(t, nil)
	m := blockMap(40, 40, 24, 2, 35, 12, 0.8)
	fillBlock(m, 2, 22, 13, 33, 0.95)

	dets, err := d.Decode(m, 40, 40)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.InDelta(t, 0.8, dets[0].Score, 1e-6)
	assert.InDelta(t, 0.95, dets[1].Score, 1e-6)
	assert.Greater(t, polygonBounds(dets[0].Polygon).Min.X, 20)
}

func TestDecodeMaxCandidates(t *testing.T) {
	d := newTestDecoder(t, func(c *DBConfig) { c.MaxCandidates = 2 })
	m := blockMap(60, 20, 2, 5, 12, 14, 0.9)
	fillBlock(m, 22, 5, 32, 14, 0.9)
	fillBlock(m, 42, 5, 52, 14, 0.9)

	dets, err := d.Decode(m, 60, 20)
	require.NoError(t, err)
	assert.Len(t, dets, 2)
}

func TestDecodeRescalesAndClips(t *testing.T) {
	d := newTestDecoder(t, nil)
	m := blockMap(20, 20, 0, 0, 9, 9, 0.9)

	dets, err := d.Decode(m, 40, 10)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	b := polygonBounds(dets[0].Polygon)
	assert.Equal(t, 0, b.Min.X)
	assert.Equal(t, 0, b.Min.Y)
	assert.InDelta(t, 25, b.Max.X, 2)
	assert.InDelta(t, 6, b.Max.Y, 1)
	assert.NoError(t, Validate(dets, 40, 10))
}

func TestNewDBDecoderRejectsBadConfig(t *testing.T) {
	cfg := DefaultDBConfig()
	cfg.UnclipRatio = 0
	_, err := NewDBDecoder(cfg)
	assert.Error(t, err)
}

func TestRescale(t *testing.T) {
	pts := [4]utils.Point{{X: -1, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5.2}, {X: 0, Y: 5.2}}
	got := rescale(pts, 10, 10, 100, 50)
	assert.Equal(t, []image.Point{{0, 0}, {99, 0}, {99, 25}, {0, 25}}, got)

	// Vertices are truncated before scaling, so an upscale moves in whole
	// map pixels.
	pts = [4]utils.Point{{X: 2.9, Y: 1.6}, {X: 6.9, Y: 1.6}, {X: 6.9, Y: 4.99}, {X: 2.9, Y: 4.99}}
	got = rescale(pts, 10, 10, 40, 40)
	assert.Equal(t, []image.Point{{8, 4}, {24, 4}, {24, 16}, {8, 16}}, got)
}
