package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnclip_Square(t *testing.T) {
	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	grown := Unclip(square, 1.5)
	require.NotNil(t, grown)

	// distance = 100 * 1.5 / 40
	bb := BoundingBox(grown)
	assert.InDelta(t, -3.75, bb.MinX, 0.02)
	assert.InDelta(t, -3.75, bb.MinY, 0.02)
	assert.InDelta(t, 13.75, bb.MaxX, 0.02)
	assert.InDelta(t, 13.75, bb.MaxY, 0.02)

	area := PolygonArea(grown)
	assert.Greater(t, area, 250.0)
	assert.Less(t, area, 300.0)
}

func TestUnclip_Degenerate(t *testing.T) {
	tests := []struct {
		name  string
		pts   []Point
		ratio float64
	}{
		{"too few points", []Point{{0, 0}, {1, 1}}, 1.5},
		{"collinear", []Point{{0, 0}, {5, 0}, {10, 0}}, 1.5},
		{"single location", []Point{{3, 3}, {3, 3}, {3, 3}, {3, 3}}, 1.5},
		{"zero ratio", []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, 0},
		{"negative ratio", []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Unclip(tt.pts, tt.ratio))
		})
	}
}

func TestUnclip_ThenMinAreaRectGrowsShortSide(t *testing.T) {
	box := MinAreaRect([]Point{{5, 5}, {14, 5}, {14, 14}, {5, 14}})
	grown := Unclip(box.Slice(), 1.5)
	require.NotNil(t, grown)
	expanded := MinAreaRect(grown)
	assert.Greater(t, expanded.ShortSide, box.ShortSide)
	assert.Greater(t, PolygonArea(expanded.Slice()), PolygonArea(box.Slice()))
}
