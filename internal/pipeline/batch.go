package pipeline

import (
	"context"
	"fmt"
	"image"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/seglink"
)

type dbItem struct {
	m    detector.ProbabilityMap
	size image.Point
}

// DecodeDBBatch decodes one probability map per image. sizes[i] is the
// destination size for maps[i]; results[i] belongs to maps[i].
func DecodeDBBatch(ctx context.Context, dec *detector.DBDecoder, maps []detector.ProbabilityMap,
	sizes []image.Point, cfg ParallelConfig,
) ([][]detector.Detection, error) {
	if len(maps) != len(sizes) {
		return nil, fmt.Errorf("%w: %d maps, %d sizes", errSizeMismatch, len(maps), len(sizes))
	}
	items := make([]dbItem, len(maps))
	for i := range maps {
		items[i] = dbItem{m: maps[i], size: sizes[i]}
	}
	return parallelMap(ctx, items, cfg, func(_ context.Context, it dbItem) ([]detector.Detection, error) {
		return dec.Decode(it.m, it.size.X, it.size.Y)
	})
}

// DecodeSegLinkBatch decodes one segment/link output per image.
func DecodeSegLinkBatch(ctx context.Context, dec *seglink.Decoder, outs []seglink.Output,
	cfg ParallelConfig,
) ([][]detector.Detection, error) {
	return parallelMap(ctx, outs, cfg, func(_ context.Context, o seglink.Output) ([]detector.Detection, error) {
		return dec.Decode(o)
	})
}
