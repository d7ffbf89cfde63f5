package seglink

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/metrics"
	"github.com/MeKo-Tech/textdet/internal/utils"
)

// Decoder groups segment/link outputs into text polygons. It holds only
// configuration and is safe for concurrent use.
type Decoder struct {
	cfg Config
}

// NewDecoder validates cfg and returns a decoder.
func NewDecoder(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seglink config: %w", err)
	}
	return &Decoder{cfg: cfg}, nil
}

// Config returns the decoder's configuration.
func (d *Decoder) Config() Config { return d.cfg }

// Decode turns one image's level tensors into polygons in original-image
// pixels, sorted by descending box width. Scores are the mean positive
// probability of each group's nodes. Wrong tensor shapes are an error;
// inconsistent group state decodes to an empty list.
func (d *Decoder) Decode(out Output) ([]detector.Detection, error) {
	if err := out.Validate(); err != nil {
		return nil, err
	}
	lay, err := NewLayout(out.Levels, d.cfg)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	probs := computeProbabilities(out.Levels, lay, d.cfg)
	groups, numGroups := groupNodes(lay, probs, d.cfg)
	segs, segGroups, scores := decodeSegments(lay, probs, groups, d.cfg)
	probs.release()

	dets := d.decodeGroups(out, segs, segGroups, scores, numGroups)
	metrics.ObserveDecode(metrics.DecoderSegLink, time.Since(start), len(dets))
	slog.Debug("seglink decode",
		"nodes", lay.Nodes, "segments", len(segs), "groups", numGroups, "detections", len(dets))
	return dets, nil
}

// decodeGroups assembles detections, replacing inconsistent group state
// with an empty result for this image.
func (d *Decoder) decodeGroups(out Output, segs []Segment, segGroups []int, scores []float64, numGroups int) []detector.Detection {
	dets, err := d.assemble(out, segs, segGroups, scores, numGroups)
	if err != nil {
		metrics.IncInconsistent()
		slog.Warn("seglink decode produced inconsistent groups",
			"error", err, "groups", numGroups, "segments", len(segs))
		return []detector.Detection{}
	}
	return dets
}

// assemble combines groups, maps boxes to the original image and runs NMS.
func (d *Decoder) assemble(out Output, segs []Segment, segGroups []int, scores []float64, numGroups int) ([]detector.Detection, error) {
	boxes, groupScores, err := combineGroups(segs, segGroups, scores, numGroups)
	if err != nil {
		return nil, err
	}

	sx := float64(out.PadSide) / float64(out.InputWidth)
	sy := float64(out.PadSide) / float64(out.InputHeight)
	items := make([]NMSItem, 0, len(boxes))
	dropped := 0
	for i, b := range boxes {
		poly := scalePolygon(b.Polygon(), sx, sy, out.ImageWidth, out.ImageHeight)
		if utils.PolygonAreaInt(poly) <= 0 {
			dropped++
			continue
		}
		items = append(items, NMSItem{Polygon: poly, Score: WidthScore(poly), Index: i})
	}
	metrics.AddFiltered(metrics.DecoderSegLink, metrics.ReasonArea, dropped)

	kept := NMS(items)
	metrics.AddFiltered(metrics.DecoderSegLink, metrics.ReasonNMS, len(items)-len(kept))

	dets := make([]detector.Detection, len(kept))
	for i, it := range kept {
		dets[i] = detector.Detection{
			Polygon: it.Polygon,
			Score:   utils.ClampFloat(groupScores[it.Index], 0, 1),
		}
	}
	return dets, nil
}
