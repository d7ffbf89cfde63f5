package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/textdet/internal/mempool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPadSquare(t *testing.T) {
	img := solidImage(30, 10, color.White)
	padded, err := PadSquare(img)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 30), padded.Bounds())

	r, _, _, _ := padded.At(29, 9).RGBA()
	assert.Equal(t, uint32(0xffff), r, "content stays top-left")
	r, _, _, _ = padded.At(29, 10).RGBA()
	assert.Zero(t, r, "padding is black")

	_, err = PadSquare(nil)
	require.Error(t, err)
}

func TestNormalizeNCHW(t *testing.T) {
	img := solidImage(2, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	data, w, h, err := NormalizeNCHW(img, 1.0/255)
	require.NoError(t, err)
	defer mempool.PutFloat32(data)

	require.Equal(t, 2, w)
	require.Equal(t, 1, h)
	require.Len(t, data, 6)
	// Planes are B, G, R with the mean taken per plane.
	assert.InDelta(t, (50-123.68)/255, data[0], 1e-6)
	assert.InDelta(t, (50-123.68)/255, data[1], 1e-6)
	assert.InDelta(t, (100-116.78)/255, data[2], 1e-6)
	assert.InDelta(t, (200-103.94)/255, data[5], 1e-6)
}

func TestNormalizeNHWC(t *testing.T) {
	img := solidImage(1, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	tests := []struct {
		name string
		bgr  bool
		want [3]float64
	}{
		{"bgr", true, [3]float64{-73.68, -16.78, 96.06}},
		{"rgb", false, [3]float64{76.32, -16.78, -53.94}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _, _, err := NormalizeNHWC(img, tt.bgr)
			require.NoError(t, err)
			defer mempool.PutFloat32(data)

			require.Len(t, data, 3)
			for c := range 3 {
				assert.InDelta(t, tt.want[c], data[c], 1e-4, "channel %d", c)
			}
		})
	}
}

func TestLetterbox_RoundTrip(t *testing.T) {
	img := solidImage(200, 100, color.Black)
	canvas, lb, err := LetterboxImage(img, 100, color.White)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), canvas.Bounds())
	assert.InDelta(t, 0.5, lb.Scale, 1e-12)
	assert.InDelta(t, 25, lb.PadY, 1e-12)
	assert.Zero(t, lb.PadX)

	polys := [][]image.Point{
		{{10, 35}, {50, 35}, {50, 45}, {10, 45}},
		{{10, 10}, {50, 10}, {50, 10}, {10, 10}},
	}
	out := lb.Unmap(polys)
	require.Len(t, out, 2)
	assert.Equal(t, []image.Point{{20, 20}, {100, 20}, {100, 40}, {20, 40}}, out[0])
	assert.Nil(t, out[1], "collapsed polygon is dropped")
}

func TestLetterbox_ClampsToImage(t *testing.T) {
	img := solidImage(50, 100, color.Black)
	_, lb, err := LetterboxImage(img, 100, color.White)
	require.NoError(t, err)
	assert.InDelta(t, 25, lb.PadX, 1e-12)

	out := lb.Unmap([][]image.Point{{{0, 0}, {99, 0}, {99, 99}, {0, 99}}})
	assert.Equal(t, []image.Point{{0, 0}, {49, 0}, {49, 99}, {0, 99}}, out[0])
}

func TestLetterbox_PadMatchesPaste(t *testing.T) {
	img := solidImage(1000, 333, color.Black)
	canvas, lb, err := LetterboxImage(img, 1600, color.White)
	require.NoError(t, err)

	// 1600/3.003 resizes to 532 rows, pasted at (1600-532)/2.
	assert.InDelta(t, 534, lb.PadY, 1e-12)
	assert.Zero(t, lb.PadX)
	r, _, _, _ := canvas.At(800, 533).RGBA()
	assert.Equal(t, uint32(0xffff), r, "fill above the image")
	r, _, _, _ = canvas.At(800, 534).RGBA()
	assert.Zero(t, r, "first image row")

	out := lb.Unmap([][]image.Point{{{0, 534}, {1599, 534}, {1599, 1066}, {0, 1066}}})
	require.NotNil(t, out[0])
	assert.Equal(t, 0, out[0][0].Y)
	assert.Equal(t, 332, out[0][2].Y)
}
