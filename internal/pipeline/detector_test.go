package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/onnx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner answers every run with outputs built from the input batch size.
type fakeRunner struct {
	shapes [][]int64
	build  func(n int) []onnx.Tensor
	err    error
	closed bool
}

func (f *fakeRunner) Run(in onnx.Tensor) ([]onnx.Tensor, error) {
	f.shapes = append(f.shapes, in.Shape)
	if f.err != nil {
		return nil, f.err
	}
	return f.build(int(in.Shape[0])), nil
}

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

// dbOutputs returns n copies of a 32x32 map with one text block.
func dbOutputs(n int) []onnx.Tensor {
	m := blockMap(32, 32, 4, 10, 27, 21, 0.9)
	data := make([]float32, 0, n*len(m.Data))
	for range n {
		data = append(data, m.Data...)
	}
	return []onnx.Tensor{{Data: data, Shape: []int64{int64(n), 1, 32, 32}}}
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	return img
}

func testConfig(mode Mode) Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.DBSize = 32
	cfg.SegSize = 64
	cfg.BatchSize = 2
	cfg.Parallel = ParallelConfig{MaxWorkers: 2}
	return cfg
}

func TestDetectorDB(t *testing.T) {
	r := &fakeRunner{build: dbOutputs}
	d, err := NewDetectorWithRunner(testConfig(ModeDB), r)
	require.NoError(t, err)

	imgs := []image.Image{solidImage(64, 48), solidImage(100, 40), solidImage(32, 32)}
	res, err := d.Detect(context.Background(), imgs)
	require.NoError(t, err)
	require.Len(t, res, 3)

	// Two runs: a batch of two and a batch of one.
	require.Len(t, r.shapes, 2)
	assert.Equal(t, []int64{2, 3, 32, 32}, r.shapes[0])
	assert.Equal(t, []int64{1, 3, 32, 32}, r.shapes[1])

	for i, img := range imgs {
		b := img.Bounds()
		assert.Equal(t, b.Dx(), res[i].Width)
		assert.Equal(t, b.Dy(), res[i].Height)
		require.Len(t, res[i].Detections, 1)
		assert.NoError(t, detector.Validate(res[i].Detections, b.Dx(), b.Dy()))
	}

	require.NoError(t, d.Close())
	assert.True(t, r.closed)
}

func TestDetectorDBLetterbox(t *testing.T) {
	cfg := testConfig(ModeDB)
	cfg.Letterbox = true
	d, err := NewDetectorWithRunner(cfg, &fakeRunner{build: dbOutputs})
	require.NoError(t, err)

	res, err := d.Detect(context.Background(), []image.Image{solidImage(64, 32)})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Len(t, res[0].Detections, 1)
	assert.NoError(t, detector.Validate(res[0].Detections, 64, 32))
}

func TestDetectorSegLink(t *testing.T) {
	r := &fakeRunner{build: func(n int) []onnx.Tensor {
		cl := make([][]cluster, n)
		for i := range cl {
			cl[i] = []cluster{{y: 2, x0: 2, x1: 4}}
		}
		return segLinkTensors(64, cl)
	}}
	d, err := NewDetectorWithRunner(testConfig(ModeSegLink), r)
	require.NoError(t, err)

	// A 128x64 image pads to 128, so the 64-pixel network input scales by 2.
	res, err := d.Detect(context.Background(), []image.Image{solidImage(128, 64)})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, []int64{1, 64, 64, 3}, r.shapes[0])
	require.Len(t, res[0].Detections, 1)
	assert.Equal(t, []image.Point{{14, 14}, {42, 14}, {42, 26}, {14, 26}}, res[0].Detections[0].Polygon)
}

func TestDetectorErrors(t *testing.T) {
	boom := errors.New("session failed")
	d, err := NewDetectorWithRunner(testConfig(ModeDB), &fakeRunner{err: boom})
	require.NoError(t, err)
	_, err = d.Detect(context.Background(), []image.Image{solidImage(8, 8)})
	assert.ErrorIs(t, err, boom)

	d, err = NewDetectorWithRunner(testConfig(ModeDB), &fakeRunner{build: func(int) []onnx.Tensor {
		return []onnx.Tensor{{Data: make([]float32, 4), Shape: []int64{1, 2, 2}}, {Data: make([]float32, 4), Shape: []int64{1, 2, 2}}}
	}})
	require.NoError(t, err)
	_, err = d.Detect(context.Background(), []image.Image{solidImage(8, 8)})
	assert.ErrorIs(t, err, onnx.ErrShapeMismatch)

	_, err = NewDetectorWithRunner(testConfig(ModeDB), nil)
	assert.Error(t, err)

	bad := testConfig("fast")
	_, err = NewDetectorWithRunner(bad, &fakeRunner{})
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("seglink")
	require.NoError(t, err)
	assert.Equal(t, ModeSegLink, m)
	_, err = ParseMode("east")
	assert.Error(t, err)
}

func TestChips(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for y := range 40 {
		for x := range 60 {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 6), 0, 255})
		}
	}
	dets := []detector.Detection{
		{Polygon: []image.Point{{50, 30}, {10, 30}, {10, 10}, {50, 10}}, Score: 0.9},
		{Polygon: []image.Point{{5, 5}, {5, 5}, {5, 5}, {5, 5}}, Score: 0.5},
	}
	chips, err := Chips(img, dets)
	require.NoError(t, err)
	require.Len(t, chips, 2)
	require.NotNil(t, chips[0])
	assert.InDelta(t, 40, chips[0].Bounds().Dx(), 1)
	assert.InDelta(t, 20, chips[0].Bounds().Dy(), 1)
	assert.Nil(t, chips[1])

	_, err = Chips(img, []detector.Detection{{Polygon: []image.Point{{0, 0}, {1, 1}}}})
	assert.Error(t, err)
}
