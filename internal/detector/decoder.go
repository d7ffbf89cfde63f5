package detector

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/textdet/internal/mempool"
	"github.com/MeKo-Tech/textdet/internal/metrics"
	"github.com/MeKo-Tech/textdet/internal/utils"
)

// DBDecoder turns a segmentation probability map into oriented text boxes.
// It holds only configuration and is safe for concurrent use.
type DBDecoder struct {
	cfg DBConfig
}

// NewDBDecoder validates cfg and returns a decoder.
func NewDBDecoder(cfg DBConfig) (*DBDecoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid db config: %w", err)
	}
	return &DBDecoder{cfg: cfg}, nil
}

// Config returns the decoder's configuration.
func (d *DBDecoder) Config() DBConfig { return d.cfg }

// dbStats counts candidates dropped at each gate.
type dbStats struct {
	small, score, unclip int
}

// Decode extracts text boxes from m and maps them into a destW x destH
// image. Results keep contour discovery order. Only a malformed map or
// destination size is an error; rejected candidates are dropped.
func (d *DBDecoder) Decode(m ProbabilityMap, destW, destH int) ([]Detection, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if destW <= 0 || destH <= 0 {
		return nil, fmt.Errorf("%w: destination size %dx%d", ErrInvalidMap, destW, destH)
	}
	start := time.Now()

	mask := binarize(m.Data, d.cfg.Thresh)
	comps, labels := labelComponents(mask, m.Width, m.Height, d.cfg.MaxCandidates)
	mempool.PutBool(mask)
	defer mempool.PutInt32(labels)

	var st dbStats
	out := make([]Detection, 0, len(comps))
	for _, c := range comps {
		contour := traceContour(labels, m.Width, m.Height, c)
		det, ok := d.candidate(m, contour, destW, destH, &st)
		if ok {
			out = append(out, det)
		}
	}

	metrics.AddFiltered(metrics.DecoderDB, metrics.ReasonSmall, st.small)
	metrics.AddFiltered(metrics.DecoderDB, metrics.ReasonScore, st.score)
	metrics.AddFiltered(metrics.DecoderDB, metrics.ReasonUnclip, st.unclip)
	metrics.ObserveDecode(metrics.DecoderDB, time.Since(start), len(out))
	slog.Debug("db decode",
		"map_width", m.Width, "map_height", m.Height,
		"contours", len(comps), "detections", len(out),
		"dropped_small", st.small, "dropped_score", st.score, "dropped_unclip", st.unclip)
	return out, nil
}

// candidate runs the size, score and expansion gates on one contour.
func (d *DBDecoder) candidate(m ProbabilityMap, contour []utils.Point, destW, destH int, st *dbStats) (Detection, bool) {
	box := utils.MinAreaRect(contour)
	if box.ShortSide < d.cfg.MinSize {
		st.small++
		return Detection{}, false
	}

	score := boxScore(m, box.Slice())
	if score < d.cfg.BoxThresh {
		st.score++
		return Detection{}, false
	}

	grown := utils.Unclip(box.Slice(), d.cfg.UnclipRatio)
	if grown == nil {
		st.unclip++
		return Detection{}, false
	}
	expanded := utils.MinAreaRect(grown)
	if expanded.ShortSide < d.cfg.MinSizeExpanded {
		st.small++
		return Detection{}, false
	}

	return Detection{
		Polygon: rescale(expanded.Points, m.Width, m.Height, destW, destH),
		Score:   utils.ClampFloat(score, 0, 1),
	}, true
}

// rescale truncates map-space vertices to whole pixels, maps them into the
// destination image and clips them to its pixel grid.
func rescale(pts [4]utils.Point, mapW, mapH, destW, destH int) []image.Point {
	sx := float64(destW) / float64(mapW)
	sy := float64(destH) / float64(mapH)
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		x := utils.ClampFloat(math.Round(math.Trunc(p.X)*sx), 0, float64(destW-1))
		y := utils.ClampFloat(math.Round(math.Trunc(p.Y)*sy), 0, float64(destH-1))
		out[i] = image.Pt(int(x), int(y))
	}
	return out
}
