package pipeline

import (
	"context"
	"image"
	"testing"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/seglink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDBBatchIsOrderIndependent(t *testing.T) {
	dec, err := detector.NewDBDecoder(detector.DefaultDBConfig())
	require.NoError(t, err)

	a := blockMap(32, 32, 4, 4, 20, 12, 0.9)
	b := blockMap(32, 32, 10, 18, 28, 28, 0.7)
	sa, sb := image.Pt(64, 64), image.Pt(100, 50)
	cfg := ParallelConfig{MaxWorkers: 2}

	ab, err := DecodeDBBatch(context.Background(), dec, []detector.ProbabilityMap{a, b}, []image.Point{sa, sb}, cfg)
	require.NoError(t, err)
	ba, err := DecodeDBBatch(context.Background(), dec, []detector.ProbabilityMap{b, a}, []image.Point{sb, sa}, cfg)
	require.NoError(t, err)

	require.Len(t, ab[0], 1)
	require.Len(t, ab[1], 1)
	assert.Equal(t, ab[0], ba[1])
	assert.Equal(t, ab[1], ba[0])

	single, err := dec.Decode(b, sb.X, sb.Y)
	require.NoError(t, err)
	assert.Equal(t, single, ab[1])
}

func TestDecodeDBBatchSizeMismatch(t *testing.T) {
	dec, err := detector.NewDBDecoder(detector.DefaultDBConfig())
	require.NoError(t, err)
	_, err = DecodeDBBatch(context.Background(), dec, []detector.ProbabilityMap{blockMap(4, 4, 0, 0, 1, 1, 1)}, nil, ParallelConfig{})
	assert.ErrorIs(t, err, errSizeMismatch)
}

func TestDecodeSegLinkBatchIsOrderIndependent(t *testing.T) {
	dec, err := seglink.NewDecoder(seglink.DefaultConfig())
	require.NoError(t, err)

	a := []cluster{{y: 2, x0: 2, x1: 4}, {y: 10, x0: 10, x1: 11}}
	b := []cluster{{y: 7, x0: 1, x1: 6}}
	cfg := ParallelConfig{MaxWorkers: 2}

	ab, err := DecodeSegLinkBatch(context.Background(), dec, segLinkOutputs(64, [][]cluster{a, b}), cfg)
	require.NoError(t, err)
	ba, err := DecodeSegLinkBatch(context.Background(), dec, segLinkOutputs(64, [][]cluster{b, a}), cfg)
	require.NoError(t, err)

	require.Len(t, ab[0], 2)
	require.Len(t, ab[1], 1)
	assert.Equal(t, ab[0], ba[1])
	assert.Equal(t, ab[1], ba[0])
}

func TestDecodeSegLinkBatchShapeError(t *testing.T) {
	dec, err := seglink.NewDecoder(seglink.DefaultConfig())
	require.NoError(t, err)
	outs := segLinkOutputs(64, [][]cluster{nil, nil})
	outs[1].Levels = outs[1].Levels[:3]

	res, err := DecodeSegLinkBatch(context.Background(), dec, outs, ParallelConfig{MaxWorkers: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 1")
	assert.NotNil(t, res[0])
}
