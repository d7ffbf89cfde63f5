package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/metrics"
	"github.com/MeKo-Tech/textdet/internal/onnx"
	"github.com/MeKo-Tech/textdet/internal/seglink"
	"github.com/MeKo-Tech/textdet/internal/utils"
)

// Mode selects the detection network family.
type Mode string

const (
	ModeDB      Mode = "db"
	ModeSegLink Mode = "seglink"
)

// ParseMode accepts "db" or "seglink".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDB, ModeSegLink:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown detection mode %q (want db or seglink)", s)
	}
}

// Config configures an end-to-end Detector.
type Config struct {
	Mode        Mode
	ModelPath   string
	LibraryPath string
	NumThreads  int
	GPU         onnx.GPUConfig

	DB        detector.DBConfig
	SegLink   seglink.Config
	DBSize    int
	SegSize   int
	Letterbox bool

	// BatchSize is the number of images per inference run; 0 runs all at once.
	BatchSize int
	Parallel  ParallelConfig
}

// DefaultConfig returns DB mode with standard sizes and thresholds.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeDB,
		DB:        detector.DefaultDBConfig(),
		SegLink:   seglink.DefaultConfig(),
		DBSize:    1600,
		SegSize:   1024,
		BatchSize: 1,
		Parallel:  DefaultParallelConfig(),
	}
}

// Validate checks sizes and decoder settings for the selected mode.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.DBSize <= 0 || c.SegSize <= 0 {
		return fmt.Errorf("input sizes must be positive, got db=%d seglink=%d", c.DBSize, c.SegSize)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must be >= 0, got %d", c.BatchSize)
	}
	if err := c.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := c.SegLink.Validate(); err != nil {
		return fmt.Errorf("seglink: %w", err)
	}
	return c.GPU.Validate()
}

// outputNames lists the model outputs the mode decodes.
func (c Config) outputNames() []string {
	if c.Mode == ModeSegLink {
		return seglink.OutputNames()
	}
	return []string{"pred"}
}

// Runner executes a model on one batched input.
type Runner interface {
	Run(input onnx.Tensor) ([]onnx.Tensor, error)
	Close() error
}

// Result is one image's detections.
type Result struct {
	Width      int
	Height     int
	Detections []detector.Detection
}

// Detector runs preprocessing, inference and decoding for a batch of images.
type Detector struct {
	cfg    Config
	runner Runner
	db     *detector.DBDecoder
	sl     *seglink.Decoder
}

// NewDetector opens an ONNX Runtime session for cfg.ModelPath.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sess, err := onnx.NewSession(onnx.SessionConfig{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.LibraryPath,
		OutputNames: cfg.outputNames(),
		NumThreads:  cfg.NumThreads,
		GPU:         cfg.GPU,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open detection model: %w", err)
	}
	d, err := NewDetectorWithRunner(cfg, sess)
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	return d, nil
}

// NewDetectorWithRunner uses r in place of an ONNX Runtime session.
func NewDetectorWithRunner(cfg Config, r Runner) (*Detector, error) {
	if r == nil {
		return nil, errors.New("runner is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := detector.NewDBDecoder(cfg.DB)
	if err != nil {
		return nil, err
	}
	sl, err := seglink.NewDecoder(cfg.SegLink)
	if err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, runner: r, db: db, sl: sl}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.cfg }

// Close releases the runner.
func (d *Detector) Close() error { return d.runner.Close() }

// Detect returns one Result per image, in input order.
func (d *Detector) Detect(ctx context.Context, images []image.Image) ([]Result, error) {
	batch := d.cfg.BatchSize
	if batch <= 0 {
		batch = len(images)
	}
	results := make([]Result, 0, len(images))
	for start := 0; start < len(images); start += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batch, len(images))
		chunk, err := d.detectChunk(ctx, images[start:end])
		if err != nil {
			return nil, fmt.Errorf("images %d-%d: %w", start, end-1, err)
		}
		results = append(results, chunk...)
	}
	return results, nil
}

func (d *Detector) prepare(img image.Image) (prepared, error) {
	if d.cfg.Mode == ModeSegLink {
		return prepareSegLink(img, d.cfg.SegSize)
	}
	return prepareDB(img, d.cfg.DBSize, d.cfg.Letterbox)
}

func (d *Detector) detectChunk(ctx context.Context, images []image.Image) ([]Result, error) {
	preps, err := parallelMap(ctx, images, ParallelConfig{MaxWorkers: d.cfg.Parallel.MaxWorkers},
		func(_ context.Context, img image.Image) (prepared, error) { return d.prepare(img) })
	defer func() {
		for _, p := range preps {
			p.release()
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	tensors := make([]onnx.Tensor, len(preps))
	for i, p := range preps {
		tensors[i] = p.tensor
	}
	input, err := onnx.Stack(tensors)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	outputs, err := d.runner.Run(input)
	if err != nil {
		return nil, err
	}
	metrics.ObserveInference(string(d.cfg.Mode), time.Since(start))
	slog.Debug("inference done", "mode", d.cfg.Mode, "images", len(images), "elapsed", time.Since(start))

	var dets [][]detector.Detection
	if d.cfg.Mode == ModeSegLink {
		dets, err = d.decodeSegLink(ctx, outputs, preps)
	} else {
		dets, err = d.decodeDB(ctx, outputs, preps)
	}
	if err != nil {
		return nil, err
	}

	res := make([]Result, len(preps))
	for i, p := range preps {
		res[i] = Result{Width: p.width, Height: p.height, Detections: dets[i]}
	}
	return res, nil
}

func (d *Detector) decodeDB(ctx context.Context, outputs []onnx.Tensor, preps []prepared) ([][]detector.Detection, error) {
	if len(outputs) != 1 {
		return nil, fmt.Errorf("%w: db model returned %d outputs", onnx.ErrShapeMismatch, len(outputs))
	}
	maps, err := detector.SplitProbabilityMaps(outputs[0])
	if err != nil {
		return nil, err
	}
	if len(maps) != len(preps) {
		return nil, fmt.Errorf("%w: %d maps for %d images", onnx.ErrShapeMismatch, len(maps), len(preps))
	}

	sizes := make([]image.Point, len(preps))
	for i, p := range preps {
		if p.letterbox != nil {
			sizes[i] = image.Pt(p.letterbox.Target, p.letterbox.Target)
		} else {
			sizes[i] = image.Pt(p.width, p.height)
		}
	}
	dets, err := DecodeDBBatch(ctx, d.db, maps, sizes, d.cfg.Parallel)
	if err != nil {
		return nil, err
	}
	for i, p := range preps {
		if p.letterbox != nil {
			dets[i] = unletterbox(*p.letterbox, dets[i])
		}
	}
	return dets, nil
}

// unletterbox maps canvas detections back to the original image and drops
// those that collapse.
func unletterbox(lb utils.Letterbox, dets []detector.Detection) []detector.Detection {
	polys := make([][]image.Point, len(dets))
	for i, det := range dets {
		polys[i] = det.Polygon
	}
	mapped := lb.Unmap(polys)
	out := make([]detector.Detection, 0, len(dets))
	for i, poly := range mapped {
		if poly == nil {
			continue
		}
		out = append(out, detector.Detection{Polygon: poly, Score: dets[i].Score})
	}
	return out
}

func (d *Detector) decodeSegLink(ctx context.Context, outputs []onnx.Tensor, preps []prepared) ([][]detector.Detection, error) {
	levels, err := seglink.SplitBatch(outputs)
	if err != nil {
		return nil, err
	}
	if len(levels) != len(preps) {
		return nil, fmt.Errorf("%w: %d outputs for %d images", onnx.ErrShapeMismatch, len(levels), len(preps))
	}
	outs := make([]seglink.Output, len(preps))
	for i, p := range preps {
		outs[i] = seglink.Output{
			Levels:      levels[i],
			InputWidth:  d.cfg.SegSize,
			InputHeight: d.cfg.SegSize,
			PadSide:     p.padSide,
			ImageWidth:  p.width,
			ImageHeight: p.height,
		}
	}
	return DecodeSegLinkBatch(ctx, d.sl, outs, d.cfg.Parallel)
}

// Chips cuts an upright image for every detection, in detection order.
// Detections whose quadrilateral is degenerate yield a nil chip.
func Chips(img image.Image, dets []detector.Detection) ([]image.Image, error) {
	chips := make([]image.Image, len(dets))
	for i, det := range dets {
		if len(det.Polygon) != 4 {
			return nil, fmt.Errorf("detection %d has %d vertices, want 4", i, len(det.Polygon))
		}
		var quad [4]utils.Point
		copy(quad[:], utils.FromImagePoints(det.Polygon))
		chip, err := utils.CropPerspective(img, utils.OrderPoints(quad))
		if errors.Is(err, utils.ErrDegenerateQuad) {
			slog.Debug("skipping degenerate chip", "index", i, "polygon", det.Polygon)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		chips[i] = chip
	}
	return chips, nil
}
